package subscription

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Subscription
}

// NewMemoryRepository constructs an in-memory subscription repository for
// tests and database-less development runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Subscription)}
}

func (r *memoryRepository) Create(_ context.Context, sub Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storage[sub.ID] = sub
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.storage[id]
	if !ok {
		return Subscription{}, ErrNotFound
	}
	return sub, nil
}

func (r *memoryRepository) Update(_ context.Context, sub Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.storage[sub.ID]; !ok {
		return ErrNotFound
	}
	r.storage[sub.ID] = sub
	return nil
}
