package testsupport

import (
	"path/filepath"
	"testing"

	"clipsight/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Workflow.QueuePollInterval = 1
	cfg.Workflow.HeartbeatInterval = 1
	cfg.Workflow.HeartbeatTimeout = 10

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithWorkers overrides the worker pool size on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.Workers = workers
	}
}

// WithKeyframes overrides keyframe tuning on the test config.
func WithKeyframes(kf config.Keyframes) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Keyframes = kf
	}
}
