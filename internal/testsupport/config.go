// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"devbox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config rooted in a unique temp directory per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Home = filepath.Join(base, "home")
	cfg.Sync.WaitTimeoutSeconds = 1
	cfg.Health.IntervalSeconds = 1
	cfg.Health.CheckTimeoutSeconds = 1

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSyncTimeout overrides the sync barrier bound in seconds.
func WithSyncTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sync.WaitTimeoutSeconds = seconds
	}
}

// WithRunEnv sets the workspace-default environment overlay.
func WithRunEnv(env map[string]string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Run.Env = env
	}
}
