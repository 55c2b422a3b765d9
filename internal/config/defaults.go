package config

const (
	defaultInputDir             = "~/vodmill/input"
	defaultOutputDir            = "~/vodmill/output"
	defaultTmpDir               = "~/.local/share/vodmill/tmp"
	defaultLogDir               = "~/.local/share/vodmill/logs"
	defaultStatusBind           = "0.0.0.0:8080"
	defaultAPIMaxRetries        = 3
	defaultAPIRetryDelay        = 1
	defaultAPIRequestTimeout    = 5
	defaultWatcherPollInterval  = 1
	defaultWatcherStableSeconds = 10
	defaultWatcherExtension     = ".mp4"
	defaultSilenceNoiseDB       = -40
	defaultSilenceMinDuration   = 1.5
	defaultHighlightsMaxCount   = 10
	defaultHighlightMinDuration = 10.0
	defaultHighlightMaxDuration = 90.0
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultSceneDetectBinary    = "scenedetect"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:   defaultInputDir,
			OutputDir:  defaultOutputDir,
			TmpDir:     defaultTmpDir,
			LogDir:     defaultLogDir,
			StatusBind: defaultStatusBind,
		},
		API: API{
			MaxRetries:     defaultAPIMaxRetries,
			RetryDelay:     defaultAPIRetryDelay,
			RequestTimeout: defaultAPIRequestTimeout,
		},
		Watcher: Watcher{
			PollInterval:  defaultWatcherPollInterval,
			StableSeconds: defaultWatcherStableSeconds,
			Extension:     defaultWatcherExtension,
		},
		Silence: Silence{
			NoiseDB:     defaultSilenceNoiseDB,
			MinDuration: defaultSilenceMinDuration,
		},
		Highlights: Highlights{
			MaxCount:    defaultHighlightsMaxCount,
			MinDuration: defaultHighlightMinDuration,
			MaxDuration: defaultHighlightMaxDuration,
		},
		Tools: Tools{
			FFmpeg:      defaultFFmpegBinary,
			FFprobe:     defaultFFprobeBinary,
			SceneDetect: defaultSceneDetectBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
