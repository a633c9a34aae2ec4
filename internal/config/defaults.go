package config

const (
	defaultLibraryDir = "~/audiobooks"
	defaultDataDir    = "~/.local/share/lectern"
	defaultLogDir     = "~/.local/share/lectern/logs"
	defaultCacheDir   = "~/.cache/lectern"
	defaultLocale     = "en-US"
	defaultModel      = "small"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"

	defaultMaxAttempts          = 3
	defaultRetryDelaySeconds    = 30
	defaultProgressPollSeconds  = 5
	defaultStallTimeoutSeconds  = 30
	defaultFirstSentenceSeconds = 60
	defaultDedupWindowSeconds   = 1.0
	defaultShutdownSeconds      = 10
	defaultSettleDelayMillis    = 500
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			CacheDir:   defaultCacheDir,
		},
		Transcription: Transcription{
			Enabled: true,
			Locale:  defaultLocale,
			Model:   defaultModel,
		},
		Scheduler: Scheduler{
			MaxAttempts:            defaultMaxAttempts,
			RetryDelaySeconds:      defaultRetryDelaySeconds,
			ProgressPollSeconds:    defaultProgressPollSeconds,
			StallTimeoutSeconds:    defaultStallTimeoutSeconds,
			FirstSentenceSeconds:   defaultFirstSentenceSeconds,
			DedupWindowSeconds:     defaultDedupWindowSeconds,
			PrefetchNextChapter:    true,
			ShutdownTimeoutSeconds: defaultShutdownSeconds,
		},
		Trigger: Trigger{
			SettleDelayMillis: defaultSettleDelayMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
