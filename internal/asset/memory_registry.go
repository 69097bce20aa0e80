package asset

import (
	"context"
	"sort"
	"sync"
)

type memoryRegistry struct {
	mu      sync.RWMutex
	allowed map[string]struct{}
}

// NewMemoryRegistry constructs an in-memory allow-list for tests and
// database-less development runs.
func NewMemoryRegistry() Registry {
	return &memoryRegistry{allowed: make(map[string]struct{})}
}

func (r *memoryRegistry) Allow(_ context.Context, asset string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allowed[asset] = struct{}{}
	return nil
}

func (r *memoryRegistry) Revoke(_ context.Context, asset string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.allowed, asset)
	return nil
}

func (r *memoryRegistry) IsAllowed(_ context.Context, asset string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.allowed[asset]
	return ok, nil
}

func (r *memoryRegistry) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.allowed))
	for code := range r.allowed {
		out = append(out, code)
	}
	sort.Strings(out)
	return out, nil
}
