package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"

	"vodworks/internal/catalog"
	"vodworks/internal/config"
	"vodworks/internal/jobqueue"
	"vodworks/internal/logging"
	"vodworks/internal/worker"
)

// Daemon coordinates the worker pool and the HTTP API, and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	queue    *jobqueue.Queue
	pool     *worker.Pool
	registry *prometheus.Registry
	api      *apiServer
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	CatalogDBPath string
	QueueDBPath   string
	LockFilePath  string
	QueueDepth    int
	QueueLeased   int
	Catalog       catalog.Stats
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *catalog.Store, queue *jobqueue.Queue, pool *worker.Pool, registry *prometheus.Registry, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || queue == nil || pool == nil {
		return nil, errors.New("daemon requires config, catalog store, queue, and worker pool")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "vodworksd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		queue:    queue,
		pool:     pool,
		registry: registry,
		logPath:  filepath.Join(cfg.Paths.LogDir, "vodworks.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, launches the worker pool, and begins
// serving the API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vodworks daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.pool.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start worker pool: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.pool.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("vodworks daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.pool.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("vodworks daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	var errs []error
	if d.queue != nil {
		errs = append(errs, d.queue.Close())
	}
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status. Queue and catalog counters are
// best effort: a read failure leaves them at zero rather than failing the
// whole status call.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:       d.running.Load(),
		CatalogDBPath: filepath.Join(d.cfg.Paths.LogDir, "catalog.db"),
		QueueDBPath:   filepath.Join(d.cfg.Paths.LogDir, "queue.db"),
		LockFilePath:  d.lockPath,
	}
	if queued, leased, err := d.queue.Depth(ctx); err == nil {
		status.QueueDepth = queued
		status.QueueLeased = leased
	}
	if stats, err := d.store.Stats(ctx); err == nil {
		status.Catalog = stats
	}
	return status
}
