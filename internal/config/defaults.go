package config

const (
	defaultDataDir              = "~/.local/share/taskqueue"
	defaultLogDir               = "~/.local/share/taskqueue/logs"
	defaultBusyTimeoutMS        = 5000
	defaultBusyRetryAttempts    = 5
	defaultBusyRetryInitialMS   = 10
	defaultBusyRetryMaxMS       = 1000
	defaultNotifyRequestTimeout = 10
	defaultNotifyTaskAdded      = true
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultExportFormat         = "json"
	defaultNtfyTopicEnv         = "TASKQUEUE_NTFY_TOPIC"
	defaultDatabaseEnv          = "TASKQUEUE_DB"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Queue: Queue{
			BusyTimeoutMS:      defaultBusyTimeoutMS,
			BusyRetryAttempts:  defaultBusyRetryAttempts,
			BusyRetryInitialMS: defaultBusyRetryInitialMS,
			BusyRetryMaxMS:     defaultBusyRetryMaxMS,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			TaskAdded:      defaultNotifyTaskAdded,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Export: Export{
			DefaultFormat: defaultExportFormat,
		},
	}
}
