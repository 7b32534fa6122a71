package main

import (
	"strings"
	"sync"

	"vodworks/internal/artifacts"
	"vodworks/internal/catalog"
	"vodworks/internal/config"
	"vodworks/internal/jobqueue"
	"vodworks/internal/logging"
	"vodworks/internal/submit"
)

// commandContext lazily loads configuration and opens the stores the CLI
// talks to. Store access is direct: the catalog and queue databases run in
// WAL mode, so the CLI can read and write alongside a running daemon.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStores opens the catalog and queue for the duration of fn.
func (c *commandContext) withStores(fn func(*catalog.Store, *jobqueue.Queue) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	queue, err := jobqueue.Open(cfg)
	if err != nil {
		return err
	}
	defer queue.Close()

	return fn(store, queue)
}

// withGateway opens all three stores behind a submission gateway.
func (c *commandContext) withGateway(fn func(*submit.Gateway) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	return c.withStores(func(store *catalog.Store, queue *jobqueue.Queue) error {
		gateway := submit.NewGateway(store, queue, artifacts.NewStore(cfg.Paths.MediaRoot), logging.NewNop())
		return fn(gateway)
	})
}
