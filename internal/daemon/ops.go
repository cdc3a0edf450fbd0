package daemon

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"devbox/internal/config"
	"devbox/internal/errs"
	"devbox/internal/logging"
	"devbox/internal/runner"
	"devbox/internal/testrunner"
	"devbox/internal/workspace"
)

// WorkspaceRef addresses a workspace by id or, failing that, by a filesystem
// path resolved against registered roots.
type WorkspaceRef struct {
	ID   string
	Path string
}

// RunOutcome pairs a command result with the run's identity.
type RunOutcome struct {
	RunID       string
	WorkspaceID string
	Result      *runner.Result
}

// ShellSession carries what the CLI needs to exec an interactive shell
// locally.
type ShellSession struct {
	Shell string
	Env   []string
	Dir   string
}

// StatusSnapshot is the daemon's status surface.
type StatusSnapshot struct {
	Running        bool
	PID            int
	SocketPath     string
	StartedAt      time.Time
	WorkspaceCount int
	Healthy        bool
	Checks         []StatusCheck
}

// StatusCheck is one health observation in the snapshot.
type StatusCheck struct {
	Name      string
	Healthy   bool
	Detail    string
	CheckedAt time.Time
}

func (s *Supervisor) resolveWorkspace(ref WorkspaceRef) (*workspace.State, error) {
	if id := strings.TrimSpace(ref.ID); id != "" {
		if ws := s.registry.GetWorkspaceState(id); ws != nil {
			return ws, nil
		}
		return nil, errs.Workspacef("workspace not found: %s", id)
	}
	if path := strings.TrimSpace(ref.Path); path != "" {
		expanded, err := config.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		if ws := s.registry.FindByPath(expanded); ws != nil {
			return ws, nil
		}
		return nil, errs.Workspacef("no active workspace contains %s", expanded)
	}
	return nil, errs.NewWorkspaceError("no active workspace")
}

// RunCommand resolves the workspace, waits on its sync barrier, executes the
// command, and records the run in the history store.
func (s *Supervisor) RunCommand(ctx context.Context, ref WorkspaceRef, command string, opts runner.Options) (*RunOutcome, error) {
	ws, err := s.resolveWorkspace(ref)
	if err != nil {
		return nil, err
	}

	r := runner.New(s.cfg, ws, s.coord, s.logger)
	result, err := r.Run(ctx, command, opts)
	if err != nil {
		return nil, err
	}

	outcome := &RunOutcome{
		RunID:       uuid.NewString(),
		WorkspaceID: ws.ID,
		Result:      result,
	}
	s.recordRun(ctx, outcome, command)
	return outcome, nil
}

func (s *Supervisor) recordRun(ctx context.Context, outcome *RunOutcome, command string) {
	record := workspace.RunRecord{
		ID:          outcome.RunID,
		WorkspaceID: outcome.WorkspaceID,
		Command:     command,
		ExitCode:    outcome.Result.ExitCode,
		Duration:    outcome.Result.Duration,
		Synced:      outcome.Result.Synced,
		SyncWait:    outcome.Result.SyncWait,
		StartedAt:   time.Now().Add(-outcome.Result.Duration),
	}
	if err := s.store.RecordRun(ctx, record); err != nil {
		s.logger.Warn("record run history",
			logging.String(logging.FieldRunID, outcome.RunID),
			logging.Error(err))
	}
}

// RunTests detects or selects the workspace's test runner, builds the test
// command, and executes it like any other run.
func (s *Supervisor) RunTests(ctx context.Context, ref WorkspaceRef, runnerName string, testOpts testrunner.Options, opts runner.Options) (*RunOutcome, string, string, error) {
	ws, err := s.resolveWorkspace(ref)
	if err != nil {
		return nil, "", "", err
	}

	var selected *testrunner.Runner
	if strings.TrimSpace(runnerName) != "" {
		selected, err = testrunner.ByName(runnerName)
		if err != nil {
			return nil, "", "", errs.Usagef("%v", err)
		}
	} else {
		selected, err = testrunner.Detect(ws.Path)
		if err != nil {
			return nil, "", "", err
		}
	}

	command := selected.BuildCommand(testOpts)
	outcome, err := s.RunCommand(ctx, WorkspaceRef{ID: ws.ID}, command, opts)
	if err != nil {
		return nil, "", "", err
	}
	return outcome, selected.Name, command, nil
}

// ResolveShell resolves the interpreter, environment, and working directory
// for an interactive session. With pure set, the environment starts from a
// minimal base instead of the daemon's process environment.
func (s *Supervisor) ResolveShell(ref WorkspaceRef, extraEnv map[string]string, pure bool) (*ShellSession, error) {
	ws, err := s.resolveWorkspace(ref)
	if err != nil {
		return nil, err
	}

	var env []string
	if pure {
		env = s.pureEnv(ws, extraEnv)
	} else {
		env = runner.New(s.cfg, ws, s.coord, s.logger).Environ(extraEnv)
	}
	return &ShellSession{
		Shell: s.cfg.Run.Shell,
		Env:   env,
		Dir:   ws.Path,
	}, nil
}

// pureEnv keeps only the variables a shell cannot function without, then
// layers daemon, workspace, and per-call entries on top.
func (s *Supervisor) pureEnv(ws *workspace.State, extraEnv map[string]string) []string {
	merged := make(map[string]string)
	for _, key := range []string{"PATH", "HOME", "TERM", "USER", "LANG"} {
		if value, ok := os.LookupEnv(key); ok {
			merged[key] = value
		}
	}
	for k, v := range s.cfg.Run.Env {
		merged[k] = v
	}
	for k, v := range ws.Env {
		merged[k] = v
	}
	for k, v := range extraEnv {
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

// Status returns the current daemon snapshot.
func (s *Supervisor) Status() StatusSnapshot {
	snapshot := StatusSnapshot{
		Running:        s.running.Load(),
		PID:            os.Getpid(),
		SocketPath:     s.cfg.SocketPath(),
		StartedAt:      s.startedAt,
		WorkspaceCount: s.registry.Len(),
		Healthy:        s.health.Healthy(),
	}
	for _, status := range s.health.GetAllStatuses() {
		snapshot.Checks = append(snapshot.Checks, StatusCheck{
			Name:      status.Name,
			Healthy:   status.Healthy,
			Detail:    status.Detail,
			CheckedAt: status.CheckedAt,
		})
	}
	return snapshot
}

// Workspaces returns snapshots of every registered workspace.
func (s *Supervisor) Workspaces() []*workspace.State {
	return s.registry.GetAllWorkspaces()
}

// Register registers or re-registers a workspace root. The path must be an
// existing directory. Registration resets the workspace's sync barrier: a
// freshly registered workspace is unsynced until the sync engine reports in.
func (s *Supervisor) Register(ctx context.Context, id, path string, env map[string]string) (*workspace.State, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errs.NewUsageError("workspace id is required")
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace path %q: %w", expanded, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("invalid workspace path %q: not a directory", expanded)
	}

	state := s.registry.RegisterWorkspace(id, expanded)
	if len(env) > 0 {
		s.registry.SetWorkspaceEnv(id, env)
		state = s.registry.GetWorkspaceState(id)
	}
	s.coord.Reset(id)

	if err := s.store.SaveWorkspace(ctx, state); err != nil {
		s.logger.Warn("persist workspace",
			logging.String(logging.FieldWorkspaceID, id),
			logging.Error(err))
	}
	s.logger.Info("workspace registered",
		logging.String(logging.FieldWorkspaceID, id),
		logging.String("path", expanded))
	return state, nil
}

// MarkSynced completes the workspace's sync barrier. An unknown id still gets
// its barrier signalled; the sync engine may report ahead of registration.
func (s *Supervisor) MarkSynced(id string) {
	s.coord.MarkSynced(id)
	s.registry.UpdateWorkspaceStatus(id, workspace.StatusRunning)
}

// History lists recent runs, newest first, optionally scoped to a workspace.
func (s *Supervisor) History(ctx context.Context, workspaceID string, limit int) ([]workspace.RunRecord, error) {
	return s.store.History(ctx, workspaceID, limit)
}

// LogPath returns the daemon's append-only log file.
func (s *Supervisor) LogPath() string {
	return s.cfg.LogFilePath()
}
