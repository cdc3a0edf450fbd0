package health

import (
	"context"
	"os"
	"path/filepath"

	"devbox/internal/config"
	"devbox/internal/workspace"
)

// SocketCheck verifies the control socket still exists on disk.
func SocketCheck(cfg *config.Config) Checker {
	return CheckFunc{
		CheckName: "socket",
		Fn: func(ctx context.Context) Status {
			info, err := os.Stat(cfg.SocketPath())
			if err != nil {
				return Status{Healthy: false, Detail: "socket missing: " + err.Error()}
			}
			if info.Mode()&os.ModeSocket == 0 {
				return Status{Healthy: false, Detail: "socket path is not a socket"}
			}
			return Status{Healthy: true}
		},
	}
}

// HomeWritableCheck verifies the daemon home directory accepts writes.
func HomeWritableCheck(cfg *config.Config) Checker {
	return CheckFunc{
		CheckName: "home_writable",
		Fn: func(ctx context.Context) Status {
			probe := filepath.Join(cfg.Paths.Home, ".health-probe")
			if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
				return Status{Healthy: false, Detail: "home not writable: " + err.Error()}
			}
			_ = os.Remove(probe)
			return Status{Healthy: true}
		},
	}
}

// SyncMarkerCheck verifies every registered workspace root is still
// reachable, so the sync coordinator can observe completion markers. A missing
// root means the external sync engine has nowhere to write its marker.
func SyncMarkerCheck(registry *workspace.Registry) Checker {
	return CheckFunc{
		CheckName: "sync_markers",
		Fn: func(ctx context.Context) Status {
			for _, ws := range registry.GetAllWorkspaces() {
				info, err := os.Stat(ws.Path)
				if err != nil {
					return Status{Healthy: false, Detail: "workspace " + ws.ID + " root unreachable: " + err.Error()}
				}
				if !info.IsDir() {
					return Status{Healthy: false, Detail: "workspace " + ws.ID + " root is not a directory"}
				}
			}
			return Status{Healthy: true}
		},
	}
}

// StoreCheck verifies the state database answers a ping.
func StoreCheck(store *workspace.Store) Checker {
	return CheckFunc{
		CheckName: "store",
		Fn: func(ctx context.Context) Status {
			if err := store.Ping(ctx); err != nil {
				return Status{Healthy: false, Detail: "state database: " + err.Error()}
			}
			return Status{Healthy: true}
		},
	}
}
