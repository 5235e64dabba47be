package testsupport

import (
	"path/filepath"
	"testing"

	"taskqueue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Queue.BusyTimeoutMS = 50
	cfgVal.Queue.BusyRetryInitialMS = 1
	cfgVal.Queue.BusyRetryMaxMS = 10
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithDatabasePath points the store at an explicit database file, letting
// several configs share one database.
func WithDatabasePath(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.DBPath = path
	}
}

// WithBusyRetry overrides the busy-retry budget.
func WithBusyRetry(attempts, initialMS, maxMS int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.BusyRetryAttempts = attempts
		b.cfg.Queue.BusyRetryInitialMS = initialMS
		b.cfg.Queue.BusyRetryMaxMS = maxMS
	}
}

// WithBusyTimeout overrides the SQLite busy timeout.
func WithBusyTimeout(ms int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Queue.BusyTimeoutMS = ms
	}
}

// WithNtfyTopic sets the notification topic URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
