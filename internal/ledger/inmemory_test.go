package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryStore_ApplyTransferMaintainsBalance(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	SeedBalance(s, "acct:a", "USDC", 10_000)

	err := s.Apply(ctx, Posting{
		Kind:      "transfer",
		Reference: "tx-1",
		Debits:    []Leg{{Account: "acct:a", Asset: "USDC", Amount: 1_500}},
		Credits:   []Leg{{Account: "acct:b", Asset: "USDC", Amount: 1_500}},
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	a, _ := s.Balance(ctx, "acct:a", "USDC")
	b, _ := s.Balance(ctx, "acct:b", "USDC")
	if a != 8_500 {
		t.Fatalf("expected balance 8500, got %d", a)
	}
	if b != 1_500 {
		t.Fatalf("expected balance 1500, got %d", b)
	}

	owed, err := s.Owed(ctx, "USDC")
	if err != nil {
		t.Fatalf("owed: %v", err)
	}
	if owed != 10_000 {
		t.Fatalf("store not balanced, owed=%d", owed)
	}
}

func TestInMemoryStore_InsufficientBalanceLeavesStateUntouched(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	SeedBalance(s, "acct:a", "USDC", 100)

	err := s.Apply(ctx, Posting{
		Kind:    "transfer",
		Debits:  []Leg{{Account: "acct:a", Asset: "USDC", Amount: 500}},
		Credits: []Leg{{Account: "acct:b", Asset: "USDC", Amount: 500}},
	})
	if err != ErrInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	a, _ := s.Balance(ctx, "acct:a", "USDC")
	b, _ := s.Balance(ctx, "acct:b", "USDC")
	if a != 100 || b != 0 {
		t.Fatalf("rejected posting mutated state: a=%d b=%d", a, b)
	}
}

func TestInMemoryStore_PartialFailureRollsBackWholePosting(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	SeedBalance(s, "acct:a", "USDC", 1_000)

	// Second debit leg is unfunded; the funded first leg must not apply.
	err := s.Apply(ctx, Posting{
		Kind: "split",
		Debits: []Leg{
			{Account: "acct:a", Asset: "USDC", Amount: 200},
			{Account: "acct:c", Asset: "USDC", Amount: 1},
		},
		Credits: []Leg{{Account: "acct:b", Asset: "USDC", Amount: 201}},
	})
	if err != ErrInsufficientBalance {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	a, _ := s.Balance(ctx, "acct:a", "USDC")
	if a != 1_000 {
		t.Fatalf("partial application detected, a=%d", a)
	}
	if JournalLen(s) != 0 {
		t.Fatalf("rejected posting was journaled")
	}
}

func TestInMemoryStore_CreditOverflowRejected(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	SeedBalance(s, "acct:a", "USDC", MaxAmount-10)

	err := s.Apply(ctx, Posting{
		Kind:    "credit",
		Credits: []Leg{{Account: "acct:a", Asset: "USDC", Amount: 100}},
		Inflows: []Flow{{Asset: "USDC", Amount: 100}},
	})
	if err != ErrArithmetic {
		t.Fatalf("expected arithmetic error, got %v", err)
	}

	a, _ := s.Balance(ctx, "acct:a", "USDC")
	if a != MaxAmount-10 {
		t.Fatalf("overflowing credit mutated state: %d", a)
	}
}

func TestInMemoryStore_ZeroAmountLegRejected(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	err := s.Apply(ctx, Posting{
		Kind:    "credit",
		Credits: []Leg{{Account: "acct:a", Asset: "USDC", Amount: 0}},
	})
	if err != ErrArithmetic {
		t.Fatalf("expected arithmetic error, got %v", err)
	}
}

func TestInMemoryStore_HoldingsTrackFlows(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if err := s.Apply(ctx, Posting{
		Kind:    "deposit",
		Credits: []Leg{{Account: "acct:a", Asset: "USDC", Amount: 500}},
		Inflows: []Flow{{Asset: "USDC", Amount: 500}},
	}); err != nil {
		t.Fatalf("deposit posting: %v", err)
	}

	holdings, _ := s.Holdings(ctx, "USDC")
	if holdings != 500 {
		t.Fatalf("expected holdings 500, got %d", holdings)
	}

	err := s.Apply(ctx, Posting{
		Kind:     "lend",
		Outflows: []Flow{{Asset: "USDC", Amount: 600}},
	})
	if err != ErrInsufficientBalance {
		t.Fatalf("expected insufficient balance on over-outflow, got %v", err)
	}
}

func TestInMemoryStore_ConcurrentTransfersStayConserved(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	SeedBalance(s, "acct:a", "USDC", 100_000)

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := Posting{
				Kind:      "transfer",
				Reference: fmt.Sprintf("tx-%d", i),
				Debits:    []Leg{{Account: "acct:a", Asset: "USDC", Amount: 500}},
				Credits:   []Leg{{Account: "acct:b", Asset: "USDC", Amount: 500}},
			}
			if err := s.Apply(ctx, p); err != nil {
				t.Errorf("transfer %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	owed, err := s.Owed(ctx, "USDC")
	if err != nil {
		t.Fatalf("owed: %v", err)
	}
	if owed != 100_000 {
		t.Fatalf("store not conserved after concurrency, owed=%d", owed)
	}
	holdings, _ := s.Holdings(ctx, "USDC")
	if holdings < owed {
		t.Fatalf("holdings %d below owed %d", holdings, owed)
	}
}
