package adapter

import (
	"fmt"
	"sync"

	"github.com/adspilot/core/pkg/domain"
)

// Registry holds concrete adapter instances keyed by PlatformId. It is a
// plain value passed explicitly into the Decision Engine at construction —
// never an ambient global or process-wide singleton (SPEC_FULL design
// notes, carried from spec.md §9).
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.PlatformId]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.PlatformId]Adapter)}
}

// Register adds or replaces the adapter for a.Platform().
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Platform()] = a
}

// Get returns the adapter for id, or an error if none is registered.
func (r *Registry) Get(id domain.PlatformId) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[id]
	if !ok {
		return nil, fmt.Errorf("adapter: no adapter registered for platform %q", id)
	}
	return a, nil
}

// All returns a snapshot of every registered adapter, in no particular
// order, used by the engine's per-tick collection fan-out.
func (r *Registry) All() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

// Platforms returns the set of registered platform ids.
func (r *Registry) Platforms() []domain.PlatformId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PlatformId, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	return out
}
