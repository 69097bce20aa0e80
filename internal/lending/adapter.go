package lending

import (
	"context"
	"errors"
)

// ErrVenueRejected occurs when the yield venue refuses a deposit or cannot
// return the requested amount.
var ErrVenueRejected = errors.New("lending venue rejected")

// Receipt references funds placed with a venue.
type Receipt struct {
	Reference string
	Asset     string
	Amount    uint64
}

// Adapter is the capability interface to an external yield venue. Funds
// handed over are pooled institution capital, not any user's earmarked
// balance; the venue is trusted only up to the amounts it actually returns.
type Adapter interface {
	// Deposit places amount of asset with the venue.
	Deposit(ctx context.Context, asset string, amount uint64) (Receipt, error)

	// Withdraw recalls up to amount of asset from the venue and reports how
	// much actually came back, which may be less than requested.
	Withdraw(ctx context.Context, asset string, amount uint64) (uint64, error)
}
