package worker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects worker instrumentation. A fresh instance registers its
// collectors against the supplied registerer so tests can use isolated
// registries.
type Metrics struct {
	TranscodeDuration prometheus.Histogram
	ActiveJobs        prometheus.Gauge
	JobsTotal         *prometheus.CounterVec
}

// Outcome labels for the jobs counter.
const (
	OutcomeReady     = "ready"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
	OutcomeSkipped   = "skipped"
)

// NewMetrics constructs and registers worker metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TranscodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vodworks_transcode_duration_seconds",
			Help:    "Time taken to transcode one movie.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ActiveJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vodworks_worker_active_jobs",
			Help: "Number of encode jobs currently processing.",
		}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vodworks_worker_jobs_total",
			Help: "Completed job deliveries by outcome.",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.TranscodeDuration, m.ActiveJobs, m.JobsTotal)
	}
	return m
}
