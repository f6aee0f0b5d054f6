package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/types"
)

// Registry is the project store behind the API and the orchestrator. The
// in-memory implementation is the default; anything honoring the forward-only
// status contract can replace it.
type Registry interface {
	Add(p *types.Project) error
	Get(id string) (*types.Project, bool)
	List() []*types.Project
	SetStatus(id string, status types.Status) error
	Fail(id string, msg string)
	Update(id string, fn func(p *types.Project)) error
}

// memoryRegistry keeps projects in a mutex-guarded map. Stage goroutines
// and API handlers touch it concurrently.
type memoryRegistry struct {
	mu       sync.RWMutex
	projects map[string]*types.Project
}

// NewRegistry returns the in-memory Registry.
func NewRegistry() Registry {
	return &memoryRegistry{projects: make(map[string]*types.Project)}
}

func (r *memoryRegistry) Add(p *types.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.projects[p.ID]; exists {
		return fmt.Errorf("project %s already registered", p.ID)
	}
	r.projects[p.ID] = p
	return nil
}

func (r *memoryRegistry) Get(id string) (*types.Project, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, false
	}
	cp := *p
	return &cp, true
}

func (r *memoryRegistry) List() []*types.Project {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*types.Project, 0, len(r.projects))
	for _, p := range r.projects {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// SetStatus moves a project forward. Backward or post-terminal moves are
// rejected so a crashed stage can never resurrect a finished project.
func (r *memoryRegistry) SetStatus(id string, status types.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("%w: project %s not found", errs.ErrInvalidInput, id)
	}
	if !p.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: illegal transition %s -> %s for project %s",
			errs.ErrInvalidInput, p.Status, status, id)
	}
	p.Status = status
	return nil
}

// Fail is terminal and always allowed from a non-terminal state; on an
// already-terminal project it is a no-op.
func (r *memoryRegistry) Fail(id string, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.Status.Terminal() {
		return
	}
	p.Status = types.StatusFailed
	p.ErrorMessage = msg
}

func (r *memoryRegistry) Update(id string, fn func(p *types.Project)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("%w: project %s not found", errs.ErrInvalidInput, id)
	}
	fn(p)
	return nil
}
