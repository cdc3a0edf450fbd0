package workspace

import (
	"sort"
	"sync"
	"time"
)

// Registry is the concurrency-safe store of per-workspace state. A single
// mutex guards the internal map; every accessor copies while holding it, so a
// reader can never observe a partially-updated record.
type Registry struct {
	mu         sync.Mutex
	workspaces map[string]*State
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{workspaces: make(map[string]*State)}
}

// RegisterWorkspace inserts a workspace with default status running and
// returns a copy of the stored record. Re-registering an existing id is an
// upsert: path and status are replaced, the registration time is kept.
func (r *Registry) RegisterWorkspace(id, path string) *State {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	state := &State{
		ID:           id,
		Path:         path,
		Status:       StatusRunning,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	if existing, ok := r.workspaces[id]; ok {
		state.RegisteredAt = existing.RegisteredAt
		state.Env = existing.Env
	}
	r.workspaces[id] = state
	return state.Clone()
}

// UpdateWorkspaceStatus mutates a workspace's status in place. Unknown ids
// are a silent no-op, never an error.
func (r *Registry) UpdateWorkspaceStatus(id string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.workspaces[id]
	if !ok {
		return
	}
	state.Status = status
	state.UpdatedAt = time.Now().UTC()
}

// SetWorkspaceEnv replaces a workspace's default environment overlay. Unknown
// ids are a silent no-op.
func (r *Registry) SetWorkspaceEnv(id string, env map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.workspaces[id]
	if !ok {
		return
	}
	if env == nil {
		state.Env = nil
	} else {
		state.Env = make(map[string]string, len(env))
		for k, v := range env {
			state.Env[k] = v
		}
	}
	state.UpdatedAt = time.Now().UTC()
}

// GetWorkspaceState returns a deep copy of the workspace record, or nil when
// the id is unknown.
func (r *Registry) GetWorkspaceState(id string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workspaces[id].Clone()
}

// GetAllWorkspaces returns a freshly allocated slice of deep copies, sorted
// by id for stable output.
func (r *Registry) GetAllWorkspaces() []*State {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*State, 0, len(r.workspaces))
	for _, state := range r.workspaces {
		out = append(out, state.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindByPath returns a copy of the workspace whose path contains dir, or nil.
// The longest matching path wins so nested workspaces resolve to the deepest.
func (r *Registry) FindByPath(dir string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *State
	for _, state := range r.workspaces {
		if !pathContains(state.Path, dir) {
			continue
		}
		if best == nil || len(state.Path) > len(best.Path) {
			best = state
		}
	}
	return best.Clone()
}

// Len returns the number of registered workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
