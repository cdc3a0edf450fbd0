package ipc

import "time"

// RunRequest executes one command inside a workspace. The workspace is
// addressed by id when set, otherwise by a path the daemon resolves against
// registered workspace roots.
type RunRequest struct {
	WorkspaceID   string            `json:"workspace_id,omitempty"`
	WorkspacePath string            `json:"workspace_path,omitempty"`
	Command       string            `json:"command"`
	Cwd           string            `json:"cwd,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
	TimeoutMillis int64             `json:"timeout_ms,omitempty"`
	NoSync        bool              `json:"no_sync,omitempty"`
}

// RunResponse reports a completed command. A non-zero exit code is a normal
// response, not an RPC error.
type RunResponse struct {
	RunID          string `json:"run_id"`
	WorkspaceID    string `json:"workspace_id"`
	ExitCode       int    `json:"exit_code"`
	Stdout         string `json:"stdout"`
	Stderr         string `json:"stderr"`
	DurationMillis int64  `json:"duration_ms"`
	Synced         bool   `json:"synced"`
	SyncWaitMillis int64  `json:"sync_wait_ms"`
}

// TestRequest runs the workspace's test suite. Runner overrides detection
// when set.
type TestRequest struct {
	WorkspaceID   string            `json:"workspace_id,omitempty"`
	WorkspacePath string            `json:"workspace_path,omitempty"`
	Runner        string            `json:"runner,omitempty"`
	Pattern       string            `json:"pattern,omitempty"`
	Watch         bool              `json:"watch,omitempty"`
	Coverage      bool              `json:"coverage,omitempty"`
	Cwd           string            `json:"cwd,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
	TimeoutMillis int64             `json:"timeout_ms,omitempty"`
	NoSync        bool              `json:"no_sync,omitempty"`
}

// TestResponse reports the built test command and its outcome.
type TestResponse struct {
	RunResponse
	Runner  string `json:"runner"`
	Command string `json:"command"`
}

// ShellRequest asks the daemon for the interpreter, environment, and working
// directory of an interactive session. The CLI execs the shell locally; the
// daemon only resolves the session parameters.
type ShellRequest struct {
	WorkspaceID   string            `json:"workspace_id,omitempty"`
	WorkspacePath string            `json:"workspace_path,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
	Pure          bool              `json:"pure,omitempty"`
}

// ShellResponse carries everything needed to exec the session locally.
type ShellResponse struct {
	Shell string   `json:"shell"`
	Env   []string `json:"env"`
	Dir   string   `json:"dir"`
}

type StatusRequest struct{}

// HealthStatus mirrors one health check observation over the wire.
type HealthStatus struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// StatusResponse is the daemon status snapshot.
type StatusResponse struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	SocketPath     string         `json:"socket_path"`
	StartedAt      time.Time      `json:"started_at"`
	WorkspaceCount int            `json:"workspace_count"`
	Healthy        bool           `json:"healthy"`
	Checks         []HealthStatus `json:"checks,omitempty"`
}

type WorkspacesRequest struct{}

// WorkspaceInfo mirrors a registry snapshot over the wire.
type WorkspaceInfo struct {
	ID           string            `json:"id"`
	Path         string            `json:"path"`
	Status       string            `json:"status"`
	Env          map[string]string `json:"env,omitempty"`
	RegisteredAt time.Time         `json:"registered_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type WorkspacesResponse struct {
	Workspaces []WorkspaceInfo `json:"workspaces"`
}

// RegisterWorkspaceRequest registers or re-registers a workspace root.
type RegisterWorkspaceRequest struct {
	ID   string            `json:"id"`
	Path string            `json:"path"`
	Env  map[string]string `json:"env,omitempty"`
}

type RegisterWorkspaceResponse struct {
	Workspace WorkspaceInfo `json:"workspace"`
}

// SyncCompleteRequest signals that the external sync engine has flushed all
// pending changes for the workspace.
type SyncCompleteRequest struct {
	WorkspaceID string `json:"workspace_id"`
}

type SyncCompleteResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

// HistoryRequest lists recent runs, optionally scoped to one workspace.
type HistoryRequest struct {
	WorkspaceID string `json:"workspace_id,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

// RunInfo mirrors one persisted run record.
type RunInfo struct {
	RunID          string    `json:"run_id"`
	WorkspaceID    string    `json:"workspace_id"`
	Command        string    `json:"command"`
	ExitCode       int       `json:"exit_code"`
	DurationMillis int64     `json:"duration_ms"`
	Synced         bool      `json:"synced"`
	SyncWaitMillis int64     `json:"sync_wait_ms"`
	StartedAt      time.Time `json:"started_at"`
}

type HistoryResponse struct {
	Runs []RunInfo `json:"runs"`
}

// LogTailRequest pages through the daemon log. Offset -1 asks for the last
// Limit lines; WaitMillis bounds a follow poll.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit,omitempty"`
	Follow     bool  `json:"follow,omitempty"`
	WaitMillis int64 `json:"wait_ms,omitempty"`
}

type LogTailResponse struct {
	Lines  []string `json:"lines,omitempty"`
	Offset int64    `json:"offset"`
}

type ShutdownRequest struct{}

type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
