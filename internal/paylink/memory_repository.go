package paylink

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Link
}

// NewMemoryRepository constructs an in-memory link repository for tests and
// database-less development runs.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Link)}
}

func (r *memoryRepository) Create(_ context.Context, link Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[link.ID]; exists {
		return ErrExists
	}
	r.storage[link.ID] = link
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	link, ok := r.storage[id]
	if !ok {
		return Link{}, ErrNotFound
	}
	return link, nil
}

func (r *memoryRepository) MarkClaimed(_ context.Context, id, claimant string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	if link.Claimed {
		return ErrAlreadyClaimed
	}
	link.Claimed = true
	link.ClaimedBy = claimant
	r.storage[id] = link
	return nil
}

func (r *memoryRepository) MarkRefunded(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.storage[id]
	if !ok {
		return ErrNotFound
	}
	if link.Claimed {
		return ErrAlreadyClaimed
	}
	if link.Refunded {
		return ErrAlreadyRefunded
	}
	link.Refunded = true
	r.storage[id] = link
	return nil
}
