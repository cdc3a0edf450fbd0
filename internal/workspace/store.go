package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"devbox/internal/config"
)

// Store persists workspace records and run history in SQLite so they survive
// daemon restarts.
type Store struct {
	db   *sql.DB
	path string
}

// RunRecord is one row of command-execution history. ID is the run's uuid,
// assigned by the daemon when the run completes.
type RunRecord struct {
	ID          string
	WorkspaceID string
	Command     string
	ExitCode    int
	Duration    time.Duration
	Synced      bool
	SyncWait    time.Duration
	StartedAt   time.Time
}

// OpenStore initializes or connects to the state database and applies the
// schema.
func OpenStore(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.StateDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) applySchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			status TEXT NOT NULL,
			env TEXT NOT NULL DEFAULT '',
			registered_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_history (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			command TEXT NOT NULL,
			exit_code INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			synced INTEGER NOT NULL,
			sync_wait_ms INTEGER NOT NULL,
			started_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_history_workspace
			ON run_history (workspace_id, started_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveWorkspace upserts a workspace record, including its env overlay.
func (s *Store) SaveWorkspace(ctx context.Context, state *State) error {
	if state == nil {
		return nil
	}
	env, err := encodeEnv(state.Env)
	if err != nil {
		return fmt.Errorf("save workspace %q: %w", state.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, path, status, env, registered_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			status = excluded.status,
			env = excluded.env,
			updated_at = excluded.updated_at`,
		state.ID,
		state.Path,
		string(state.Status),
		env,
		state.RegisteredAt.UTC().Format(time.RFC3339Nano),
		state.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save workspace %q: %w", state.ID, err)
	}
	return nil
}

// LoadWorkspaces returns all persisted workspace records.
func (s *Store) LoadWorkspaces(ctx context.Context) ([]*State, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, status, env, registered_at, updated_at FROM workspaces ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load workspaces: %w", err)
	}
	defer rows.Close()

	var out []*State
	for rows.Next() {
		var state State
		var status, env, registeredAt, updatedAt string
		if err := rows.Scan(&state.ID, &state.Path, &status, &env, &registeredAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		state.Status = Status(status)
		if state.Env, err = decodeEnv(env); err != nil {
			return nil, fmt.Errorf("scan workspace %q env: %w", state.ID, err)
		}
		state.RegisteredAt, _ = time.Parse(time.RFC3339Nano, registeredAt)
		state.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, &state)
	}
	return out, rows.Err()
}

// RecordRun appends one history row.
func (s *Store) RecordRun(ctx context.Context, record RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_history
			(id, workspace_id, command, exit_code, duration_ms, synced, sync_wait_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.WorkspaceID,
		record.Command,
		record.ExitCode,
		record.Duration.Milliseconds(),
		boolToInt(record.Synced),
		record.SyncWait.Milliseconds(),
		record.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// History returns the most recent runs, newest first, optionally filtered by
// workspace id. A non-positive limit defaults to 50.
func (s *Store) History(ctx context.Context, workspaceID string, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, workspace_id, command, exit_code, duration_ms, synced, sync_wait_ms, started_at
		FROM run_history`
	args := []any{}
	if workspaceID != "" {
		query += ` WHERE workspace_id = ?`
		args = append(args, workspaceID)
	}
	// rowid preserves insertion order; started_at is a trimmed RFC3339Nano
	// string and does not sort reliably.
	query += ` ORDER BY rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var record RunRecord
		var durationMS, syncWaitMS int64
		var synced int
		var startedAt string
		if err := rows.Scan(&record.ID, &record.WorkspaceID, &record.Command, &record.ExitCode,
			&durationMS, &synced, &syncWaitMS, &startedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		record.Duration = time.Duration(durationMS) * time.Millisecond
		record.SyncWait = time.Duration(syncWaitMS) * time.Millisecond
		record.Synced = synced != 0
		record.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		out = append(out, record)
	}
	return out, rows.Err()
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func encodeEnv(env map[string]string) (string, error) {
	if len(env) == 0 {
		return "", nil
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode env: %w", err)
	}
	return string(data), nil
}

func decodeEnv(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	var env map[string]string
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	return env, nil
}
