package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"vodworks/internal/jobqueue"
	"vodworks/internal/logging"
	"vodworks/internal/services"
)

// process drives exactly one delivery through the state machine. Every code
// path acknowledges the delivery and, once the record has entered
// processing, every path ends in a persisted terminal status.
func (p *Pool) process(ctx context.Context, logger *slog.Logger, delivery *jobqueue.Delivery) {
	jobCtx := services.WithMovieID(ctx, delivery.MovieID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	jobLogger := logging.WithContext(jobCtx, logger)

	// Status writes and the final ack must survive shutdown cancellation.
	persistCtx := context.WithoutCancel(jobCtx)
	defer func() {
		if err := p.queue.Ack(persistCtx, delivery.ID); err != nil {
			jobLogger.Warn("failed to acknowledge delivery",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_ack_failed"),
				logging.String(logging.FieldErrorHint, "delivery will be redelivered after lease expiry"),
			)
		}
	}()

	movie, err := p.store.GetByID(jobCtx, delivery.MovieID)
	if err != nil {
		jobLogger.Error("failed to load movie record", logging.Error(err))
		return
	}
	if movie == nil {
		// Deleted between enqueue and dequeue; discard quietly.
		jobLogger.Debug("movie record missing, discarding delivery")
		p.metrics.JobsTotal.WithLabelValues(OutcomeDiscarded).Inc()
		return
	}

	// The claim returns the source path it latched onto; the copy on the
	// loaded record may already be stale if a replacement landed in between.
	sourcePath, claimed, err := p.store.ClaimProcessing(jobCtx, movie.ID)
	if err != nil {
		jobLogger.Error("failed to claim movie for processing", logging.Error(err))
		return
	}
	if !claimed {
		// Already ready, already processing elsewhere, or the source was
		// cleared; duplicate or late delivery either way.
		jobLogger.Info("skipping duplicate delivery",
			logging.String("status", string(movie.Status)),
			logging.String(logging.FieldEventType, "duplicate_delivery"),
		)
		p.metrics.JobsTotal.WithLabelValues(OutcomeSkipped).Inc()
		return
	}

	p.metrics.ActiveJobs.Inc()
	defer p.metrics.ActiveJobs.Dec()

	terminal := false
	defer func() {
		if terminal {
			return
		}
		// A record must never be left stranded in processing once this
		// worker stops handling it.
		if _, err := p.store.MarkFailed(persistCtx, movie.ID, "worker aborted before completing attempt"); err != nil {
			jobLogger.Error("failed to persist abort failure", logging.Error(err))
		}
		p.metrics.JobsTotal.WithLabelValues(OutcomeFailed).Inc()
	}()

	outputDir, err := p.artifacts.PrepareOutputDir(movie.ID)
	if err != nil {
		p.failAttempt(persistCtx, jobLogger, movie.ID, "", services.Wrap(services.ErrTransient, "worker", "prepare output", "", err))
		terminal = true
		return
	}

	heartbeatCtx, stopHeartbeat := context.WithCancel(jobCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go p.heartbeatLoop(heartbeatCtx, &hbWG, movie.ID)

	jobLogger.Info("encode started",
		logging.String(logging.FieldEventType, "encode_start"),
		logging.String("source", sourcePath),
		logging.String("output_dir", outputDir),
	)

	start := time.Now()
	result, encodeErr := p.encoder.Transcode(jobCtx, sourcePath, outputDir)
	stopHeartbeat()
	hbWG.Wait()
	p.metrics.TranscodeDuration.Observe(time.Since(start).Seconds())

	if encodeErr != nil {
		p.failAttempt(persistCtx, jobLogger, movie.ID, outputDir, encodeErr)
		terminal = true
		return
	}

	ready, err := p.store.MarkReady(persistCtx, movie.ID, result.ManifestPath)
	if err != nil {
		p.failAttempt(persistCtx, jobLogger, movie.ID, outputDir, services.Wrap(services.ErrTransient, "worker", "persist ready", "", err))
		terminal = true
		return
	}
	if !ready {
		// Record vanished mid-encode; its deletion already cleaned the old
		// artifacts, so the fresh output must not be left behind.
		jobLogger.Info("movie deleted during encode, removing output",
			logging.String(logging.FieldEventType, "encode_orphaned"),
		)
		if err := p.artifacts.RemoveDir(outputDir); err != nil {
			jobLogger.Warn("failed to remove orphaned output", logging.Error(err))
		}
		p.metrics.JobsTotal.WithLabelValues(OutcomeDiscarded).Inc()
		terminal = true
		return
	}

	// Ready state is persisted; the original upload is no longer needed.
	if err := p.artifacts.Remove(sourcePath); err != nil {
		jobLogger.Warn("failed to remove source artifact",
			logging.Error(err),
			logging.String("path", sourcePath),
			logging.String(logging.FieldEventType, "source_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the file manually to reclaim space"),
		)
	}

	jobLogger.Info("encode completed",
		logging.String(logging.FieldEventType, "encode_complete"),
		logging.String("manifest", result.ManifestPath),
		logging.Duration("encode_duration", time.Since(start)),
	)
	p.metrics.JobsTotal.WithLabelValues(OutcomeReady).Inc()
	terminal = true
}

// failAttempt persists the failed status and purges the incomplete output
// directory. The source artifact stays intact so a retry can reuse it.
func (p *Pool) failAttempt(ctx context.Context, logger *slog.Logger, movieID int64, outputDir string, cause error) {
	logger.Error("encode attempt failed",
		logging.Error(cause),
		logging.String(logging.FieldEventType, "encode_failed"),
		logging.String(logging.FieldErrorHint, "inspect the message and retry or re-upload"),
	)
	if _, err := p.store.MarkFailed(ctx, movieID, cause.Error()); err != nil {
		logger.Error("failed to persist failure", logging.Error(err))
	}
	if outputDir != "" {
		if err := p.artifacts.RemoveDir(outputDir); err != nil {
			logger.Warn("failed to remove partial output", logging.Error(err))
		}
	}
	p.metrics.JobsTotal.WithLabelValues(OutcomeFailed).Inc()
}

func (p *Pool) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, movieID int64) {
	defer wg.Done()
	interval := time.Duration(p.cfg.Workflow.HeartbeatInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.store.UpdateHeartbeat(ctx, movieID); err != nil {
				p.logger.Warn("heartbeat update failed",
					logging.Int64(logging.FieldMovieID, movieID),
					logging.Error(err),
				)
			}
		}
	}
}
