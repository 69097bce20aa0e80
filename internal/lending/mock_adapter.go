package lending

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockAdapter is a yield venue double that simply warehouses whatever it is
// given. Withdrawals return the requested amount capped at what the venue
// holds, optionally reduced by a configured haircut in basis points.
type MockAdapter struct {
	mu         sync.Mutex
	pooled     map[string]uint64
	haircutBps uint64
}

// NewMockAdapter constructs an empty mock venue.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{pooled: make(map[string]uint64)}
}

// SetHaircut makes withdrawals return less than requested, exercising the
// trust-only-received-amounts path.
func (a *MockAdapter) SetHaircut(bps uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.haircutBps = bps
}

// Pooled reports how much of the asset the venue currently holds.
func (a *MockAdapter) Pooled(asset string) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pooled[asset]
}

// Deposit warehouses the funds.
func (a *MockAdapter) Deposit(_ context.Context, asset string, amount uint64) (Receipt, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pooled[asset] += amount
	return Receipt{Reference: uuid.NewString(), Asset: asset, Amount: amount}, nil
}

// Withdraw returns the requested amount less any haircut, capped at pool.
func (a *MockAdapter) Withdraw(_ context.Context, asset string, amount uint64) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	available := a.pooled[asset]
	if amount > available {
		amount = available
	}
	returned := amount - amount*a.haircutBps/10000
	a.pooled[asset] -= amount
	return returned, nil
}
