package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"devbox/internal/config"
	"devbox/internal/health"
	"devbox/internal/logging"
	"devbox/internal/syncwait"
	"devbox/internal/workspace"
)

// Supervisor owns the daemon's long-lived state: the workspace registry, the
// sync coordinator, the state store, and the health scheduler. It enforces
// single-instance execution through the pid file, a stale-socket check, and a
// file lock.
type Supervisor struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *workspace.Registry
	store    *workspace.Store
	coord    *syncwait.Coordinator
	health   *health.Manager
	probe    ProcessProbe

	lock      *flock.Flock
	startedAt time.Time

	mu        sync.Mutex
	callbacks []func() error

	shutdownOnce sync.Once
	running      atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
}

// New constructs a supervisor with initialized dependencies. Previously
// registered workspaces are reloaded from the state store; their sync
// barriers start unsignalled.
func New(cfg *config.Config, logger *slog.Logger) (*Supervisor, error) {
	if cfg == nil {
		return nil, errors.New("supervisor requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := workspace.OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	registry := workspace.NewRegistry()
	states, err := store.LoadWorkspaces(context.Background())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("load workspaces: %w", err)
	}
	for _, state := range states {
		registry.RegisterWorkspace(state.ID, state.Path)
		if len(state.Env) > 0 {
			registry.SetWorkspaceEnv(state.ID, state.Env)
		}
	}

	s := &Supervisor{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		registry: registry,
		store:    store,
		coord:    syncwait.NewCoordinator(cfg, logger),
		health:   health.NewManager(cfg, logger),
		probe:    NewProcessProbe(),
		lock:     flock.New(cfg.PIDFilePath() + ".lock"),
	}

	s.health.Register(health.SocketCheck(cfg))
	s.health.Register(health.HomeWritableCheck(cfg))
	s.health.Register(health.StoreCheck(store))
	s.health.Register(health.SyncMarkerCheck(registry))
	return s, nil
}

// BindFunc binds the control socket once the instance lock is held and the
// socket path is known to be free. It returns the function that closes the
// listener, which the supervisor registers as the first shutdown callback.
type BindFunc func(ctx context.Context) (func() error, error)

// Start reconciles leftovers from a previous daemon, takes the instance lock,
// binds the control socket through bind, writes the pid file, and launches
// the health loop. Shutdown callbacks are registered in the order they must
// run: close socket, remove pid file, close store, release lock. A nil bind
// skips the socket; Start then only guarantees the socket path is free.
func (s *Supervisor) Start(ctx context.Context, bind BindFunc) error {
	if s.running.Load() {
		return errors.New("daemon already running")
	}

	if err := s.cleanupOrphanedProcesses(); err != nil {
		return err
	}
	if err := s.checkAndCleanStaleSocket(); err != nil {
		return err
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !ok {
		return errors.New("another devbox daemon instance is already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	var closeSocket func() error
	if bind != nil {
		closeSocket, err = bind(s.ctx)
		if err != nil {
			s.cancel()
			_ = s.lock.Unlock()
			return fmt.Errorf("bind control socket: %w", err)
		}
	}

	if err := s.writePIDFile(); err != nil {
		if closeSocket != nil {
			_ = closeSocket()
		}
		s.cancel()
		_ = s.lock.Unlock()
		return err
	}

	if closeSocket != nil {
		s.RegisterShutdownCallback(closeSocket)
	}
	s.RegisterShutdownCallback(s.removePIDFile)
	s.RegisterShutdownCallback(s.store.Close)
	s.RegisterShutdownCallback(s.lock.Unlock)

	go s.health.Run(s.ctx)

	s.startedAt = time.Now()
	s.running.Store(true)
	s.logger.Info("daemon started",
		logging.Int("pid", os.Getpid()),
		logging.String("socket", s.cfg.SocketPath()),
		logging.Int("workspaces", s.registry.Len()))
	return nil
}

// Done is closed when shutdown has been requested, either by the parent
// context or through Cancel.
func (s *Supervisor) Done() <-chan struct{} {
	if s.ctx == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.ctx.Done()
}

// Cancel requests shutdown. Safe to call from any goroutine, including RPC
// handlers.
func (s *Supervisor) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Logger returns the supervisor's logger.
func (s *Supervisor) Logger() *slog.Logger {
	return s.logger
}

// Health exposes the health manager for the status surface.
func (s *Supervisor) Health() *health.Manager {
	return s.health
}

// RegisterShutdownCallback appends a callback to run during shutdown.
// Callbacks run in registration order; registration is safe from concurrent
// goroutines.
func (s *Supervisor) RegisterShutdownCallback(fn func() error) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// Close cancels background work and runs every shutdown callback exactly
// once, in registration order. A failing callback is logged and never stops
// the ones after it.
func (s *Supervisor) Close() {
	s.shutdownOnce.Do(func() {
		s.Cancel()
		s.running.Store(false)

		s.mu.Lock()
		callbacks := make([]func() error, len(s.callbacks))
		copy(callbacks, s.callbacks)
		s.mu.Unlock()

		for i, fn := range callbacks {
			if err := fn(); err != nil {
				s.logger.Warn("shutdown callback failed",
					logging.Int("callback", i),
					logging.Error(err))
			}
		}
		s.logger.Info("daemon stopped")
	})
}

// Running reports whether Start has completed and Close has not begun.
func (s *Supervisor) Running() bool {
	return s.running.Load()
}

func (s *Supervisor) writePIDFile() error {
	pid := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(s.cfg.PIDFilePath(), []byte(pid), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

func (s *Supervisor) removePIDFile() error {
	if err := os.Remove(s.cfg.PIDFilePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}
