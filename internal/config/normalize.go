package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEncoding()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.MediaRoot) == "" {
		c.Paths.MediaRoot = defaultMediaRoot
	}
	if c.Paths.MediaRoot, err = expandPath(c.Paths.MediaRoot); err != nil {
		return fmt.Errorf("paths.media_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeEncoding() {
	c.Encoding.FFmpegBinary = strings.TrimSpace(c.Encoding.FFmpegBinary)
	if c.Encoding.FFmpegBinary == "" {
		c.Encoding.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Encoding.TimeoutSeconds <= 0 {
		c.Encoding.TimeoutSeconds = defaultEncodeTimeout
	}
	if c.Encoding.SegmentSeconds <= 0 {
		c.Encoding.SegmentSeconds = defaultSegmentSeconds
	}
	if strings.TrimSpace(c.Encoding.VideoCodec) == "" {
		c.Encoding.VideoCodec = defaultVideoCodec
	}
	if strings.TrimSpace(c.Encoding.Preset) == "" {
		c.Encoding.Preset = defaultPreset
	}
	if strings.TrimSpace(c.Encoding.Profile) == "" {
		c.Encoding.Profile = defaultProfile
	}
	if strings.TrimSpace(c.Encoding.Level) == "" {
		c.Encoding.Level = defaultLevel
	}
	if strings.TrimSpace(c.Encoding.AudioCodec) == "" {
		c.Encoding.AudioCodec = defaultAudioCodec
	}
	if strings.TrimSpace(c.Encoding.AudioBitrate) == "" {
		c.Encoding.AudioBitrate = defaultAudioBitrate
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = defaultHeartbeatInterval
	}
	if c.Workflow.StaleProcessingTimeout <= 0 {
		c.Workflow.StaleProcessingTimeout = defaultStaleProcessingTimeout
	}
	if c.Workflow.QueueLeaseTimeout <= 0 {
		c.Workflow.QueueLeaseTimeout = defaultQueueLeaseTimeout
	}
	if c.Workflow.ReclaimSweepInterval <= 0 {
		c.Workflow.ReclaimSweepInterval = defaultReclaimSweepInterval
	}
	if c.Workflow.SourceRetryDelaySeconds <= 0 {
		c.Workflow.SourceRetryDelaySeconds = defaultSourceRetryDelay
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
