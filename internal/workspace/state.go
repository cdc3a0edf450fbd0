package workspace

import "time"

// Status describes a workspace's lifecycle state.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusError   Status = "error"
	StatusSyncing Status = "syncing"
)

// ParseStatus converts raw text to a known Status.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusRunning, StatusStopped, StatusError, StatusSyncing:
		return Status(raw), true
	default:
		return "", false
	}
}

// State is one workspace record. Values handed to callers are always deep
// copies; mutating them never affects the registry.
type State struct {
	ID           string
	Path         string
	Status       Status
	Env          map[string]string
	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := *s
	if s.Env != nil {
		out.Env = make(map[string]string, len(s.Env))
		for k, v := range s.Env {
			out.Env[k] = v
		}
	}
	return &out
}
