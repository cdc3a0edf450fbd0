package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"devbox/internal/config"
	"devbox/internal/daemonctl"
	"devbox/internal/errs"
	"devbox/internal/ipc"
)

type commandContext struct {
	socketFlag *string
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	rendererOnce sync.Once
	out          *renderer

	// exitCode is the process exit status when Execute returns nil; run and
	// test mirror the executed command's exit code through it.
	exitCode int
}

func newCommandContext(socketFlag, configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) renderer() *renderer {
	c.rendererOnce.Do(func() {
		jsonMode := c.jsonFlag != nil && *c.jsonFlag
		c.out = newRenderer(jsonMode, os.Stdout, os.Stderr)
	})
	return c.out
}

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil {
		if socket := strings.TrimSpace(*c.socketFlag); socket != "" {
			return socket
		}
	}
	if cfg := c.configValue(); cfg != nil {
		return cfg.SocketPath()
	}
	fallback := config.Default()
	return fallback.SocketPath()
}

func (c *commandContext) launchOptions() daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{}
	if c.configFlag != nil {
		if cfgPath := strings.TrimSpace(*c.configFlag); cfgPath != "" {
			opts.ConfigPath = cfgPath
		}
	}
	return opts
}

func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := c.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

// withRunningClient dials the daemon, launching it first when the socket is
// unreachable. run, test, and shell go through here so a cold start is
// transparent.
func (c *commandContext) withRunningClient(fn func(*ipc.Client) error) error {
	client, err := ipc.Dial(c.socketPath())
	if err != nil {
		cfg, cfgErr := c.ensureConfig()
		if cfgErr != nil {
			return cfgErr
		}
		if _, startErr := daemonctl.EnsureStarted(cfg, c.launchOptions(), 10*time.Second); startErr != nil {
			return startErr
		}
		client, err = ipc.Dial(c.socketPath())
		if err != nil {
			return wrapDialError(err, c.socketPath())
		}
	}
	defer client.Close()
	return fn(client)
}

func (c *commandContext) dialClient() (*ipc.Client, error) {
	socket := c.socketPath()
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, wrapDialError(err, socket)
	}
	return client, nil
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `devbox daemon start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
	}
}

// parseEnvFlags turns repeated KEY=VALUE flags into a map.
func parseEnvFlags(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, errs.Usagef("invalid env entry %q, want KEY=VALUE", entry)
		}
		env[key] = value
	}
	return env, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
