package config

const (
	defaultConfigPath           = "~/.config/timelapse/config.toml"
	defaultStorageDir           = "~/.local/share/timelapse/jobs"
	defaultLogDir               = "~/.local/share/timelapse/logs"
	defaultAPIBind              = "127.0.0.1:8080"
	defaultJobRetentionHours    = 24
	defaultSweepIntervalMinutes = 30
	defaultShutdownGraceSeconds = 30
	defaultNotifyTimeout        = 10
	defaultRedisChannel         = "timelapse:jobs"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Jobs: Jobs{
			RetentionHours:       defaultJobRetentionHours,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
			ShutdownGraceSeconds: defaultShutdownGraceSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RedisChannel:   defaultRedisChannel,
			OnComplete:     true,
			OnFailure:      true,
		},
		Metrics: Metrics{Enabled: true},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
