package syncwait

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"devbox/internal/config"
	"devbox/internal/logging"
	"devbox/internal/workspace"
)

// Coordinator owns one sync barrier per workspace. A barrier completes when
// the external file-sync engine reports completion, either through the
// control plane (MarkSynced) or by writing the completion marker file into
// the workspace, which Await observes directly.
type Coordinator struct {
	mu       sync.Mutex
	barriers map[string]*Barrier

	markerDir    string
	markerFile   string
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewCoordinator constructs a coordinator using the daemon's sync settings.
func NewCoordinator(cfg *config.Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		barriers:     make(map[string]*Barrier),
		markerDir:    cfg.Sync.MarkerDir,
		markerFile:   cfg.Sync.MarkerFile,
		pollInterval: cfg.SyncPollInterval(),
		logger:       logging.WithComponent(logger, "sync"),
	}
}

func (c *Coordinator) barrier(id string) *Barrier {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.barriers[id]
	if !ok {
		b = NewBarrier()
		c.barriers[id] = b
	}
	return b
}

// MarkSynced completes the workspace's barrier.
func (c *Coordinator) MarkSynced(id string) {
	c.barrier(id).Signal()
	c.logger.Debug("sync barrier signalled", logging.String(logging.FieldWorkspaceID, id))
}

// Reset replaces the workspace's barrier with a fresh, unsignalled one. Used
// when a workspace is (re-)registered and its sync state is unknown.
func (c *Coordinator) Reset(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.barriers[id] = NewBarrier()
}

// Synced reports whether the workspace's barrier has completed.
func (c *Coordinator) Synced(id string) bool {
	return c.barrier(id).Signalled()
}

// MarkerPath returns the completion marker location for a workspace path.
func (c *Coordinator) MarkerPath(workspacePath string) string {
	return filepath.Join(workspacePath, c.markerDir, c.markerFile)
}

// Await blocks until the workspace's barrier completes, the marker file
// appears, the context is cancelled, or the timeout elapses. It returns
// whether the barrier completed and how long the wait took. A timeout is not
// an error; the caller proceeds unsynced.
func (c *Coordinator) Await(ctx context.Context, ws *workspace.State, timeout time.Duration) (bool, time.Duration) {
	start := time.Now()
	b := c.barrier(ws.ID)

	if b.Signalled() {
		return true, 0
	}

	markerPath := c.MarkerPath(ws.Path)
	if fileExists(markerPath) {
		b.Signal()
		return true, time.Since(start)
	}

	events, closeWatcher := watchMarker(filepath.Dir(markerPath), c.markerFile, c.logger)
	defer closeWatcher()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.Done():
			return true, time.Since(start)
		case <-ctx.Done():
			return false, time.Since(start)
		case <-timer.C:
			c.logger.Warn("sync barrier wait timed out; proceeding unsynced",
				logging.String(logging.FieldWorkspaceID, ws.ID),
				logging.Duration("waited", time.Since(start)))
			return false, time.Since(start)
		case <-events:
			b.Signal()
			return true, time.Since(start)
		case <-ticker.C:
			if fileExists(markerPath) {
				b.Signal()
				return true, time.Since(start)
			}
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
