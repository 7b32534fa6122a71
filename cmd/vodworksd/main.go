package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"vodworks/internal/artifacts"
	"vodworks/internal/catalog"
	"vodworks/internal/config"
	"vodworks/internal/daemon"
	"vodworks/internal/encoding"
	"vodworks/internal/jobqueue"
	"vodworks/internal/logging"
	"vodworks/internal/worker"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		logger.Error("open catalog store", logging.Error(err))
		return
	}

	queue, err := jobqueue.Open(cfg)
	if err != nil {
		logger.Error("open job queue", logging.Error(err))
		_ = store.Close()
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	artifactStore := artifacts.NewStore(cfg.Paths.MediaRoot)
	encoder := encoding.NewFFmpeg(cfg, logger)
	metrics := worker.NewMetrics(registry)
	pool := worker.NewPool(cfg, store, queue, artifactStore, encoder, logger, metrics)

	d, err := daemon.New(cfg, store, queue, pool, registry, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = queue.Close()
		_ = store.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("vodworksd shutting down")
}
