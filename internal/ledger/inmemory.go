package ledger

import (
	"context"
	"sync"
	"time"
)

type balanceKey struct {
	account string
	asset   string
}

type journalEntry struct {
	Kind      string
	Reference string
	At        time.Time
	Posting   Posting
}

type inMemoryStore struct {
	mu       sync.RWMutex
	balances map[balanceKey]uint64
	holdings map[string]uint64
	journal  []journalEntry
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit
// tests and for running without a database in development.
func NewInMemory() Store {
	return &inMemoryStore{
		balances: make(map[balanceKey]uint64),
		holdings: make(map[string]uint64),
	}
}

func (s *inMemoryStore) Balance(_ context.Context, account, asset string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[balanceKey{account, asset}], nil
}

func (s *inMemoryStore) Owed(_ context.Context, asset string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owedLocked(asset)
}

func (s *inMemoryStore) owedLocked(asset string) (uint64, error) {
	var total uint64
	for key, amount := range s.balances {
		if key.asset != asset {
			continue
		}
		next := total + amount
		if next < total {
			return 0, ErrArithmetic
		}
		total = next
	}
	return total, nil
}

func (s *inMemoryStore) Holdings(_ context.Context, asset string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.holdings[asset], nil
}

func (s *inMemoryStore) Apply(_ context.Context, p Posting) error {
	if err := validatePosting(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every leg before touching anything so a rejected posting
	// leaves no partial state behind.
	pendingBalances := make(map[balanceKey]uint64)
	pendingHoldings := make(map[string]uint64)

	balanceOf := func(k balanceKey) uint64 {
		if v, ok := pendingBalances[k]; ok {
			return v
		}
		return s.balances[k]
	}
	holdingsOf := func(asset string) uint64 {
		if v, ok := pendingHoldings[asset]; ok {
			return v
		}
		return s.holdings[asset]
	}

	for _, leg := range p.Debits {
		key := balanceKey{leg.Account, leg.Asset}
		current := balanceOf(key)
		if current < leg.Amount {
			return ErrInsufficientBalance
		}
		pendingBalances[key] = current - leg.Amount
	}
	for _, leg := range p.Credits {
		key := balanceKey{leg.Account, leg.Asset}
		current := balanceOf(key)
		next := current + leg.Amount
		if next < current || next > MaxAmount {
			return ErrArithmetic
		}
		pendingBalances[key] = next
	}
	for _, f := range p.Inflows {
		current := holdingsOf(f.Asset)
		next := current + f.Amount
		if next < current || next > MaxAmount {
			return ErrArithmetic
		}
		pendingHoldings[f.Asset] = next
	}
	for _, f := range p.Outflows {
		current := holdingsOf(f.Asset)
		if current < f.Amount {
			return ErrInsufficientBalance
		}
		pendingHoldings[f.Asset] = current - f.Amount
	}

	for key, amount := range pendingBalances {
		s.balances[key] = amount
	}
	for asset, amount := range pendingHoldings {
		s.holdings[asset] = amount
	}
	s.journal = append(s.journal, journalEntry{
		Kind:      p.Kind,
		Reference: p.Reference,
		At:        time.Now().UTC(),
		Posting:   p,
	})
	return nil
}
