package ledger

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrInsufficientBalance occurs when an account lacks balance to cover a
	// debit leg, or custody lacks holdings to cover an outflow.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrArithmetic indicates a posting would overflow or underflow the
	// unsigned balance representation. Postings that trip it are rejected
	// whole; balances never wrap.
	ErrArithmetic = errors.New("arithmetic overflow")
)

// MaxAmount is the largest amount a single leg may carry. Balances are
// persisted in signed 64-bit columns, so anything above this is rejected.
const MaxAmount = uint64(math.MaxInt64)

// EscrowAccount holds funds locked behind unclaimed payment links.
const EscrowAccount = "escrow:paylinks"

// Leg is a single balance movement within a posting.
type Leg struct {
	Account string
	Asset   string
	Amount  uint64
}

// Flow is a custody movement: asset entering or leaving on-hand holdings.
type Flow struct {
	Asset  string
	Amount uint64
}

// Posting is an atomic batch of balance and custody movements. Either every
// leg applies or none do. Debits are checked for sufficiency and credits for
// overflow before anything is written.
type Posting struct {
	Kind      string
	Reference string
	Debits    []Leg
	Credits   []Leg
	Inflows   []Flow
	Outflows  []Flow
}

// Store is the balance book shared by the vault, the payment-link escrow and
// the subscription biller. Implementations must apply postings atomically.
type Store interface {
	// Balance returns the balance for (account, asset); zero if the pair has
	// never been credited.
	Balance(ctx context.Context, account, asset string) (uint64, error)

	// Owed returns the sum of all account balances for an asset: what the
	// platform owes its users.
	Owed(ctx context.Context, asset string) (uint64, error)

	// Holdings returns the on-hand custody for an asset: what the platform
	// actually holds, including surplus not owed to any account.
	Holdings(ctx context.Context, asset string) (uint64, error)

	// Apply validates and applies a posting atomically.
	Apply(ctx context.Context, p Posting) error
}

func validatePosting(p Posting) error {
	for _, l := range p.Debits {
		if l.Amount == 0 || l.Amount > MaxAmount {
			return ErrArithmetic
		}
	}
	for _, l := range p.Credits {
		if l.Amount == 0 || l.Amount > MaxAmount {
			return ErrArithmetic
		}
	}
	for _, f := range p.Inflows {
		if f.Amount == 0 || f.Amount > MaxAmount {
			return ErrArithmetic
		}
	}
	for _, f := range p.Outflows {
		if f.Amount == 0 || f.Amount > MaxAmount {
			return ErrArithmetic
		}
	}
	return nil
}
