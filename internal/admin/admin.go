package admin

import (
	"context"
	"errors"
)

// ErrUnauthorized occurs when a caller lacks the capability an operation
// requires (administrator or operator).
var ErrUnauthorized = errors.New("unauthorized")

// MaxFeeBps is the fee ceiling: 10000 basis points is 100%.
const MaxFeeBps = uint64(10000)

// FeeConfig is the platform fee applied at withdrawal and at subscription
// charge time. A zero Bps or empty Recipient disables the fee leg.
type FeeConfig struct {
	Bps       uint64
	Recipient string
}

// Repository holds the administrative state: who administers the platform,
// which accounts hold the operator capability, and the fee configuration.
// It is read on every withdraw and charge, mutated only via vault admin ops.
type Repository interface {
	IsAdmin(ctx context.Context, account string) (bool, error)
	IsOperator(ctx context.Context, account string) (bool, error)
	SetOperator(ctx context.Context, account string, enabled bool) error
	Fee(ctx context.Context) (FeeConfig, error)
	SetFee(ctx context.Context, cfg FeeConfig) error
}
