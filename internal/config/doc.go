// Package config loads and validates the devbox daemon configuration.
//
// Configuration lives in a single toml file (default
// ~/.config/devbox/config.toml, or ./devbox.toml for per-project overrides)
// and is loaded once at daemon startup. The daemon home directory anchors all
// runtime artifacts: control socket, pid file, log file, and state database.
package config
