package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the daemon home directory configuration. Socket, pid file,
// log file, and state database all live under the home directory.
type Paths struct {
	Home string `toml:"home"`
}

// Logging contains configuration for log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Sync contains configuration for the file-sync barrier.
type Sync struct {
	// WaitTimeoutSeconds bounds the barrier wait before a command proceeds
	// unsynced.
	WaitTimeoutSeconds int `toml:"wait_timeout_seconds"`
	// MarkerDir is the directory (relative to the workspace root) the external
	// sync engine writes its completion marker into.
	MarkerDir string `toml:"marker_dir"`
	// MarkerFile is the completion marker file name.
	MarkerFile string `toml:"marker_file"`
	// PollIntervalMillis is the fallback poll cadence when the marker
	// directory cannot be watched.
	PollIntervalMillis int `toml:"poll_interval_ms"`
}

// Health contains configuration for the periodic health-check scheduler.
type Health struct {
	IntervalSeconds     int `toml:"interval_seconds"`
	CheckTimeoutSeconds int `toml:"check_timeout_seconds"`
}

// Run contains defaults applied to command execution.
type Run struct {
	// Shell is the interpreter commands are spawned through.
	Shell string `toml:"shell"`
	// Env is the workspace-default environment overlay applied to every
	// command; per-call entries win on key collision.
	Env map[string]string `toml:"env"`
}

// Config encapsulates all configuration values for the devbox daemon.
// Loaded once at startup and immutable for the daemon's lifetime.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Logging Logging `toml:"logging"`
	Sync    Sync    `toml:"sync"`
	Health  Health  `toml:"health"`
	Run     Run     `toml:"run"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/devbox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing file is not an
// error; defaults apply.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("devbox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if strings.TrimSpace(c.Paths.Home) == "" {
		c.Paths.Home = defaultHomeDir
	}
	if c.Paths.Home, err = expandPath(c.Paths.Home); err != nil {
		return fmt.Errorf("paths.home: %w", err)
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}

	if c.Sync.WaitTimeoutSeconds <= 0 {
		c.Sync.WaitTimeoutSeconds = defaultSyncWaitTimeoutSeconds
	}
	if strings.TrimSpace(c.Sync.MarkerDir) == "" {
		c.Sync.MarkerDir = defaultSyncMarkerDir
	}
	if strings.TrimSpace(c.Sync.MarkerFile) == "" {
		c.Sync.MarkerFile = defaultSyncMarkerFile
	}
	if c.Sync.PollIntervalMillis <= 0 {
		c.Sync.PollIntervalMillis = defaultSyncPollIntervalMillis
	}

	if c.Health.IntervalSeconds <= 0 {
		c.Health.IntervalSeconds = defaultHealthIntervalSeconds
	}
	if c.Health.CheckTimeoutSeconds <= 0 {
		c.Health.CheckTimeoutSeconds = defaultHealthCheckTimeoutSeconds
	}

	if strings.TrimSpace(c.Run.Shell) == "" {
		c.Run.Shell = defaultRunShell
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	for key := range c.Run.Env {
		if strings.TrimSpace(key) == "" {
			return errors.New("run.env: empty variable name")
		}
		if strings.Contains(key, "=") {
			return fmt.Errorf("run.env: invalid variable name %q", key)
		}
	}
	return nil
}

// EnsureDirectories creates the daemon home directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.Home, 0o755); err != nil {
		return fmt.Errorf("create home directory %q: %w", c.Paths.Home, err)
	}
	return nil
}

// SocketPath returns the control socket path under the daemon home.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.Home, "daemon.sock")
}

// PIDFilePath returns the pid file path under the daemon home.
func (c *Config) PIDFilePath() string {
	return filepath.Join(c.Paths.Home, "daemon.pid")
}

// LogFilePath returns the append-only log file path under the daemon home.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.Home, "daemon.log")
}

// StateDBPath returns the sqlite state database path under the daemon home.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.Paths.Home, "state.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
