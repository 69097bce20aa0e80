package admin

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu        sync.RWMutex
	admin     string
	operators map[string]struct{}
	fee       FeeConfig
}

// NewMemoryRepository constructs in-memory administrative state with the
// given bootstrap administrator account.
func NewMemoryRepository(adminAccount string) Repository {
	return &memoryRepository{
		admin:     adminAccount,
		operators: make(map[string]struct{}),
	}
}

func (r *memoryRepository) IsAdmin(_ context.Context, account string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return account != "" && account == r.admin, nil
}

func (r *memoryRepository) IsOperator(_ context.Context, account string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.operators[account]
	return ok, nil
}

func (r *memoryRepository) SetOperator(_ context.Context, account string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if enabled {
		r.operators[account] = struct{}{}
	} else {
		delete(r.operators, account)
	}
	return nil
}

func (r *memoryRepository) Fee(_ context.Context) (FeeConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fee, nil
}

func (r *memoryRepository) SetFee(_ context.Context, cfg FeeConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fee = cfg
	return nil
}
