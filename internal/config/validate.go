package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEncoding(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.MediaRoot == "" {
		return errors.New("paths.media_root must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateEncoding() error {
	if c.Encoding.FFmpegBinary == "" {
		return errors.New("encoding.ffmpeg_binary must be set")
	}
	if c.Encoding.SegmentSeconds < 1 || c.Encoding.SegmentSeconds > 60 {
		return errors.New("encoding.segment_seconds must be between 1 and 60")
	}
	if c.Encoding.TimeoutSeconds < 1 {
		return errors.New("encoding.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 1 || c.Workflow.Workers > 32 {
		return errors.New("workflow.workers must be between 1 and 32")
	}
	if c.Workflow.StaleProcessingTimeout < c.Workflow.HeartbeatInterval {
		return errors.New("workflow.stale_processing_timeout must exceed workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
