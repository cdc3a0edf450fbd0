package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"devbox/internal/daemon"
	"devbox/internal/logging"
	"devbox/internal/logs"
	"devbox/internal/runner"
	"devbox/internal/testrunner"
	"devbox/internal/workspace"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewServer binds the socket and registers the RPC service.
func NewServer(ctx context.Context, path string, sup *daemon.Supervisor, logger *slog.Logger) (*Server, error) {
	if sup == nil {
		return nil, errors.New("ipc server requires supervisor")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{sup: sup, logger: logging.WithComponent(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Devbox", svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve accepts RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file. Idempotent.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.wg.Wait()
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove socket",
				logging.String("socket", s.path),
				logging.Error(err))
		}
	})
	return nil
}

type service struct {
	sup    *daemon.Supervisor
	logger *slog.Logger
	ctx    context.Context
}

func runOptions(cwd string, env map[string]string, timeoutMillis int64, noSync bool) runner.Options {
	return runner.Options{
		Cwd:     cwd,
		Env:     env,
		Timeout: time.Duration(timeoutMillis) * time.Millisecond,
		NoSync:  noSync,
	}
}

func fillRunResponse(resp *RunResponse, outcome *daemon.RunOutcome) {
	resp.RunID = outcome.RunID
	resp.WorkspaceID = outcome.WorkspaceID
	resp.ExitCode = outcome.Result.ExitCode
	resp.Stdout = outcome.Result.Stdout
	resp.Stderr = outcome.Result.Stderr
	resp.DurationMillis = outcome.Result.Duration.Milliseconds()
	resp.Synced = outcome.Result.Synced
	resp.SyncWaitMillis = outcome.Result.SyncWait.Milliseconds()
}

func toWorkspaceInfo(state *workspace.State) WorkspaceInfo {
	return WorkspaceInfo{
		ID:           state.ID,
		Path:         state.Path,
		Status:       string(state.Status),
		Env:          state.Env,
		RegisteredAt: state.RegisteredAt,
		UpdatedAt:    state.UpdatedAt,
	}
}

func (s *service) Run(req RunRequest, resp *RunResponse) error {
	outcome, err := s.sup.RunCommand(s.ctx,
		daemon.WorkspaceRef{ID: req.WorkspaceID, Path: req.WorkspacePath},
		req.Command,
		runOptions(req.Cwd, req.Env, req.TimeoutMillis, req.NoSync))
	if err != nil {
		return err
	}
	fillRunResponse(resp, outcome)
	return nil
}

func (s *service) Test(req TestRequest, resp *TestResponse) error {
	outcome, runnerName, command, err := s.sup.RunTests(s.ctx,
		daemon.WorkspaceRef{ID: req.WorkspaceID, Path: req.WorkspacePath},
		req.Runner,
		testrunner.Options{Pattern: req.Pattern, Watch: req.Watch, Coverage: req.Coverage},
		runOptions(req.Cwd, req.Env, req.TimeoutMillis, req.NoSync))
	if err != nil {
		return err
	}
	fillRunResponse(&resp.RunResponse, outcome)
	resp.Runner = runnerName
	resp.Command = command
	return nil
}

func (s *service) Shell(req ShellRequest, resp *ShellResponse) error {
	session, err := s.sup.ResolveShell(
		daemon.WorkspaceRef{ID: req.WorkspaceID, Path: req.WorkspacePath},
		req.Env, req.Pure)
	if err != nil {
		return err
	}
	resp.Shell = session.Shell
	resp.Env = session.Env
	resp.Dir = session.Dir
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.sup.Status()
	resp.Running = status.Running
	resp.PID = status.PID
	resp.SocketPath = status.SocketPath
	resp.StartedAt = status.StartedAt
	resp.WorkspaceCount = status.WorkspaceCount
	resp.Healthy = status.Healthy
	for _, check := range status.Checks {
		resp.Checks = append(resp.Checks, HealthStatus{
			Name:      check.Name,
			Healthy:   check.Healthy,
			Detail:    check.Detail,
			CheckedAt: check.CheckedAt,
		})
	}
	return nil
}

func (s *service) Workspaces(_ WorkspacesRequest, resp *WorkspacesResponse) error {
	states := s.sup.Workspaces()
	resp.Workspaces = make([]WorkspaceInfo, 0, len(states))
	for _, state := range states {
		resp.Workspaces = append(resp.Workspaces, toWorkspaceInfo(state))
	}
	return nil
}

func (s *service) RegisterWorkspace(req RegisterWorkspaceRequest, resp *RegisterWorkspaceResponse) error {
	state, err := s.sup.Register(s.ctx, req.ID, req.Path, req.Env)
	if err != nil {
		return err
	}
	resp.Workspace = toWorkspaceInfo(state)
	s.logger.Info("workspace registered via ipc",
		logging.String(logging.FieldWorkspaceID, state.ID))
	return nil
}

func (s *service) SyncComplete(req SyncCompleteRequest, resp *SyncCompleteResponse) error {
	s.sup.MarkSynced(req.WorkspaceID)
	resp.Acknowledged = true
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	records, err := s.sup.History(s.ctx, req.WorkspaceID, req.Limit)
	if err != nil {
		return err
	}
	resp.Runs = make([]RunInfo, 0, len(records))
	for _, record := range records {
		resp.Runs = append(resp.Runs, RunInfo{
			RunID:          record.ID,
			WorkspaceID:    record.WorkspaceID,
			Command:        record.Command,
			ExitCode:       record.ExitCode,
			DurationMillis: record.Duration.Milliseconds(),
			Synced:         record.Synced,
			SyncWaitMillis: record.SyncWait.Milliseconds(),
			StartedAt:      record.StartedAt,
		})
	}
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if req.Follow && wait <= 0 {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, s.sup.LogPath(), logs.TailOptions{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			resp.Offset = result.Offset
			return nil
		}
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.logger.Info("shutdown requested via ipc")
	s.sup.Cancel()
	resp.Stopping = true
	return nil
}
