// Package runner executes workspace commands through the configured shell
// after the sync barrier has been observed.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"time"

	"devbox/internal/config"
	"devbox/internal/errs"
	"devbox/internal/logging"
	"devbox/internal/syncwait"
	"devbox/internal/workspace"
)

// Options carries the per-call execution knobs.
type Options struct {
	// Cwd is resolved relative to the workspace root when not absolute.
	Cwd string
	// Env entries override workspace and daemon defaults on key collision.
	Env map[string]string
	// Timeout bounds the command itself, not the sync wait. Zero means no
	// bound beyond the context.
	Timeout time.Duration
	// NoSync skips the sync barrier for this call.
	NoSync bool
}

// Result captures a completed command. A non-zero exit code is data, not an
// error; errors are reserved for failures to execute at all.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Synced   bool
	SyncWait time.Duration
}

// Runner executes commands for a single workspace. Construct one per
// invocation from the workspace snapshot; it holds no mutable state.
type Runner struct {
	cfg    *config.Config
	ws     *workspace.State
	coord  *syncwait.Coordinator
	logger *slog.Logger
}

// New builds a runner bound to the workspace snapshot.
func New(cfg *config.Config, ws *workspace.State, coord *syncwait.Coordinator, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		ws:     ws,
		coord:  coord,
		logger: logging.WithComponent(logger, "runner"),
	}
}

// Run waits on the sync barrier (unless opts.NoSync), then spawns the command
// through the configured shell. Spawn failures and timeouts return an error;
// the command's own exit status is reported in the Result.
func (r *Runner) Run(ctx context.Context, command string, opts Options) (*Result, error) {
	if command == "" {
		return nil, errs.NewUsageError("no command specified")
	}

	// Synced only turns true when the barrier is actually observed; a no-sync
	// run always reports unsynced.
	res := &Result{}
	if !opts.NoSync && r.coord != nil {
		res.Synced, res.SyncWait = r.coord.Await(ctx, r.ws, r.cfg.SyncWaitTimeout())
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cwd, err := r.resolveCwd(opts.Cwd)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(runCtx, r.cfg.Run.Shell, "-c", command)
	cmd.Dir = cwd
	cmd.Env = r.buildEnv(opts.Env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Info("running command",
		logging.String(logging.FieldWorkspaceID, r.ws.ID),
		logging.String("command", command),
		logging.Bool("synced", res.Synced))

	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if runErr != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(runErr, &exitErr):
			if ctxErr := runCtx.Err(); ctxErr != nil {
				if opts.Timeout > 0 && errors.Is(ctxErr, context.DeadlineExceeded) {
					return nil, errs.Timeoutf("command timed out after %s", opts.Timeout)
				}
				return nil, fmt.Errorf("command aborted: %w", ctxErr)
			}
			res.ExitCode = exitErr.ExitCode()
		default:
			return nil, fmt.Errorf("spawn command: %w", runErr)
		}
	}

	r.logger.Info("command finished",
		logging.String(logging.FieldWorkspaceID, r.ws.ID),
		logging.Int("exit_code", res.ExitCode),
		logging.Duration("duration", res.Duration))
	return res, nil
}

func (r *Runner) resolveCwd(cwd string) (string, error) {
	dir := r.ws.Path
	if cwd != "" {
		if !os.IsPathSeparator(cwd[0]) {
			cwd = r.ws.Path + string(os.PathSeparator) + cwd
		}
		dir = cwd
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", errs.Workspacef("working directory %s: %v", dir, err)
	}
	if !info.IsDir() {
		return "", errs.Workspacef("working directory %s is not a directory", dir)
	}
	return dir, nil
}

// buildEnv layers the process environment, daemon defaults, workspace env,
// and per-call entries, later layers winning.
func (r *Runner) buildEnv(callEnv map[string]string) []string {
	merged := make(map[string]string)
	for _, kv := range os.Environ() {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				merged[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	for k, v := range r.cfg.Run.Env {
		merged[k] = v
	}
	for k, v := range r.ws.Env {
		merged[k] = v
	}
	for k, v := range callEnv {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// Environ exposes the merged environment for shell sessions, where the CLI
// spawns the interpreter locally instead of capturing output in the daemon.
func (r *Runner) Environ(callEnv map[string]string) []string {
	return r.buildEnv(callEnv)
}

// Shell returns the configured interpreter.
func (r *Runner) Shell() string {
	return r.cfg.Run.Shell
}
