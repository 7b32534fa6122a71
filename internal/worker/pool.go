package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"vodworks/internal/artifacts"
	"vodworks/internal/catalog"
	"vodworks/internal/config"
	"vodworks/internal/encoding"
	"vodworks/internal/jobqueue"
	"vodworks/internal/logging"
)

// Pool pulls job deliveries from the queue and drives movie records through
// the transcoding state machine. All collaborators are injected; the pool
// holds no global state and is shut down explicitly.
type Pool struct {
	cfg       *config.Config
	store     *catalog.Store
	queue     *jobqueue.Queue
	artifacts *artifacts.Store
	encoder   encoding.Client
	logger    *slog.Logger
	metrics   *Metrics

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool constructs a worker pool.
func NewPool(cfg *config.Config, store *catalog.Store, queue *jobqueue.Queue, artifactStore *artifacts.Store, encoder encoding.Client, logger *slog.Logger, metrics *Metrics) *Pool {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Pool{
		cfg:       cfg,
		store:     store,
		queue:     queue,
		artifacts: artifactStore,
		encoder:   encoder,
		logger:    logging.NewComponentLogger(logger, "worker"),
		metrics:   metrics,
	}
}

// Start begins background processing.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("worker pool already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	workers := p.cfg.Workflow.Workers
	p.wg.Add(workers + 1)
	for i := 0; i < workers; i++ {
		go p.runLoop(runCtx, i)
	}
	go p.reclaimLoop(runCtx)

	p.logger.Info("worker pool started", logging.Int("workers", workers))
	return nil
}

// Stop terminates background processing and waits for in-flight jobs to
// reach a terminal state.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *Pool) runLoop(ctx context.Context, index int) {
	defer p.wg.Done()
	logger := p.logger.With(logging.Int("loop", index))

	for {
		delivery, err := p.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.Error("failed to fetch next delivery",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(p.cfg.Workflow.ErrorRetryInterval) * time.Second):
			}
			continue
		}
		p.process(ctx, logger, delivery)
	}
}

func (p *Pool) reclaimLoop(ctx context.Context) {
	defer p.wg.Done()
	interval := time.Duration(p.cfg.Workflow.ReclaimSweepInterval) * time.Second
	staleAfter := time.Duration(p.cfg.Workflow.StaleProcessingTimeout) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-staleAfter)
			count, err := p.store.ReclaimStaleProcessing(ctx, cutoff)
			if err != nil {
				p.logger.Warn("stale processing reclaim failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "reclaim_failed"),
					logging.String(logging.FieldErrorHint, "check catalog database access"),
				)
				continue
			}
			if count > 0 {
				p.logger.Info("reclaimed stale processing movies", logging.Int64("count", count))
			}
		}
	}
}
