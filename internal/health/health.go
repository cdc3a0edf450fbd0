// Package health runs the daemon's periodic self-checks and keeps the latest
// result per check for the status surface.
package health

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"devbox/internal/config"
	"devbox/internal/logging"
)

// Status is the latest observation for one named check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Detail    string    `json:"detail,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker is one health probe. Check must honor ctx; the manager bounds each
// check with the configured per-check timeout.
type Checker interface {
	Name() string
	Check(ctx context.Context) Status
}

// CheckFunc adapts a function to the Checker interface.
type CheckFunc struct {
	CheckName string
	Fn        func(ctx context.Context) Status
}

func (c CheckFunc) Name() string                     { return c.CheckName }
func (c CheckFunc) Check(ctx context.Context) Status { return c.Fn(ctx) }

// Manager schedules registered checks and caches their latest statuses.
type Manager struct {
	mu       sync.Mutex
	checkers map[string]Checker
	statuses map[string]Status

	interval     time.Duration
	checkTimeout time.Duration
	logger       *slog.Logger
}

// NewManager builds a manager using the daemon's health settings.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		checkers:     make(map[string]Checker),
		statuses:     make(map[string]Status),
		interval:     cfg.HealthInterval(),
		checkTimeout: cfg.HealthCheckTimeout(),
		logger:       logging.WithComponent(logger, "health"),
	}
}

// Register adds a checker. Registering the same name again replaces the
// previous checker.
func (m *Manager) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[c.Name()] = c
}

// GetStatus returns the latest status for a check, or nil when the check has
// never run or is unknown.
func (m *Manager) GetStatus(name string) *Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[name]
	if !ok {
		return nil
	}
	copied := status
	return &copied
}

// GetAllStatuses returns the latest status for every check that has run,
// sorted by name.
func (m *Manager) GetAllStatuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Healthy reports whether every check that has run is passing.
func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, status := range m.statuses {
		if !status.Healthy {
			return false
		}
	}
	return true
}

// Run executes a check pass immediately and then on every interval tick until
// ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	m.performHealthChecks(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.performHealthChecks(ctx)
		}
	}
}

// RunOnce executes a single check pass. Used by the status surface when a
// fresh reading is requested.
func (m *Manager) RunOnce(ctx context.Context) {
	m.performHealthChecks(ctx)
}

func (m *Manager) performHealthChecks(ctx context.Context) {
	m.mu.Lock()
	checkers := make([]Checker, 0, len(m.checkers))
	for _, c := range m.checkers {
		checkers = append(checkers, c)
	}
	m.mu.Unlock()

	for _, checker := range checkers {
		status := m.runCheck(ctx, checker)
		m.mu.Lock()
		m.statuses[checker.Name()] = status
		m.mu.Unlock()

		if !status.Healthy {
			m.logger.Warn("health check failing",
				logging.String("check", status.Name),
				logging.String("detail", status.Detail))
		}
	}
}

// runCheck bounds one check with the per-check timeout. A check that outlives
// its deadline is reported unhealthy; the goroutine finishes in the
// background and its late result is discarded.
func (m *Manager) runCheck(ctx context.Context, checker Checker) Status {
	checkCtx, cancel := context.WithTimeout(ctx, m.checkTimeout)
	defer cancel()

	done := make(chan Status, 1)
	go func() {
		done <- checker.Check(checkCtx)
	}()

	select {
	case status := <-done:
		status.Name = checker.Name()
		status.CheckedAt = time.Now()
		return status
	case <-checkCtx.Done():
		return Status{
			Name:      checker.Name(),
			Healthy:   false,
			Detail:    "check timed out after " + m.checkTimeout.String(),
			CheckedAt: time.Now(),
		}
	}
}
