package config

import "time"

const (
	defaultHomeDir                   = "~/.local/share/devbox"
	defaultLogLevel                  = "info"
	defaultLogFormat                 = "console"
	defaultSyncWaitTimeoutSeconds    = 30
	defaultSyncMarkerDir             = ".devbox"
	defaultSyncMarkerFile            = "synced"
	defaultSyncPollIntervalMillis    = 200
	defaultHealthIntervalSeconds     = 30
	defaultHealthCheckTimeoutSeconds = 5
	defaultRunShell                  = "sh"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			Home: defaultHomeDir,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Sync: Sync{
			WaitTimeoutSeconds: defaultSyncWaitTimeoutSeconds,
			MarkerDir:          defaultSyncMarkerDir,
			MarkerFile:         defaultSyncMarkerFile,
			PollIntervalMillis: defaultSyncPollIntervalMillis,
		},
		Health: Health{
			IntervalSeconds:     defaultHealthIntervalSeconds,
			CheckTimeoutSeconds: defaultHealthCheckTimeoutSeconds,
		},
		Run: Run{
			Shell: defaultRunShell,
		},
	}
}

// SyncWaitTimeout returns the sync barrier bound as a duration.
func (c *Config) SyncWaitTimeout() time.Duration {
	return time.Duration(c.Sync.WaitTimeoutSeconds) * time.Second
}

// SyncPollInterval returns the marker poll cadence as a duration.
func (c *Config) SyncPollInterval() time.Duration {
	return time.Duration(c.Sync.PollIntervalMillis) * time.Millisecond
}

// HealthInterval returns the health scheduler cadence as a duration.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Health.IntervalSeconds) * time.Second
}

// HealthCheckTimeout returns the per-check bound as a duration.
func (c *Config) HealthCheckTimeout() time.Duration {
	return time.Duration(c.Health.CheckTimeoutSeconds) * time.Second
}
