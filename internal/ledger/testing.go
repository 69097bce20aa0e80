package ledger

// SeedBalance is a test helper that seeds a balance directly when using the
// in-memory store. Custody holdings are raised by the same amount so the
// seeded state satisfies the solvency invariant.
func SeedBalance(s Store, account, asset string, amount uint64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[balanceKey{account, asset}] = amount
		mem.holdings[asset] += amount
	}
}

// SeedHoldings raises on-hand custody without crediting any account, useful
// for exercising the lending surplus path in tests.
func SeedHoldings(s Store, asset string, amount uint64) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.holdings[asset] += amount
	}
}

// JournalLen reports how many postings the in-memory store has recorded.
func JournalLen(s Store) int {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.RLock()
		defer mem.mu.RUnlock()
		return len(mem.journal)
	}
	return 0
}
