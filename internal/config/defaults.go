package config

const (
	defaultMediaRoot = "~/.local/share/vodworks/media"
	defaultLogDir    = "~/.local/share/vodworks/logs"
	defaultAPIBind   = "127.0.0.1:7512"

	defaultFFmpegBinary   = "ffmpeg"
	defaultEncodeTimeout  = 3600
	defaultSegmentSeconds = 6
	defaultVideoCodec     = "libx264"
	defaultPreset         = "veryfast"
	defaultProfile        = "main"
	defaultLevel          = "4.0"
	defaultAudioCodec     = "aac"
	defaultAudioBitrate   = "128k"

	defaultWorkers                = 2
	defaultQueuePollInterval      = 5
	defaultErrorRetryInterval     = 10
	defaultHeartbeatInterval      = 15
	defaultStaleProcessingTimeout = 7200
	defaultQueueLeaseTimeout      = 7200
	defaultReclaimSweepInterval   = 300
	defaultSourceRetryDelay       = 2

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaRoot: defaultMediaRoot,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Encoding: Encoding{
			FFmpegBinary:   defaultFFmpegBinary,
			TimeoutSeconds: defaultEncodeTimeout,
			SegmentSeconds: defaultSegmentSeconds,
			VideoCodec:     defaultVideoCodec,
			Preset:         defaultPreset,
			Profile:        defaultProfile,
			Level:          defaultLevel,
			AudioCodec:     defaultAudioCodec,
			AudioBitrate:   defaultAudioBitrate,
		},
		Workflow: Workflow{
			Workers:                 defaultWorkers,
			QueuePollInterval:       defaultQueuePollInterval,
			ErrorRetryInterval:      defaultErrorRetryInterval,
			HeartbeatInterval:       defaultHeartbeatInterval,
			StaleProcessingTimeout:  defaultStaleProcessingTimeout,
			QueueLeaseTimeout:       defaultQueueLeaseTimeout,
			ReclaimSweepInterval:    defaultReclaimSweepInterval,
			SourceRetryDelaySeconds: defaultSourceRetryDelay,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
