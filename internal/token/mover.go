package token

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTransferRejected occurs when the underlying asset rail refuses a
// movement, e.g. insufficient allowance or balance on the caller's side.
var ErrTransferRejected = errors.New("transfer rejected")

// Mover is the connector to the rail that physically moves the underlying
// asset into and out of platform custody. The vault trusts it only up to a
// returned success; a rejection aborts the ledger operation before any
// balance mutates.
type Mover interface {
	// Pull draws amount of asset from the owner into platform custody.
	Pull(ctx context.Context, owner, asset string, amount uint64) (Receipt, error)

	// Push releases amount of asset from platform custody to the recipient.
	Push(ctx context.Context, to, asset string, amount uint64) (Receipt, error)
}

// Receipt captures the rail's reference for a completed movement.
type Receipt struct {
	Reference string
}

// StaticMover simulates a rail that approves every movement. Used in
// development mode and as the default test double.
type StaticMover struct{}

// Pull approves the inbound movement with a synthetic reference.
func (StaticMover) Pull(_ context.Context, _, _ string, _ uint64) (Receipt, error) {
	return Receipt{Reference: uuid.NewString()}, nil
}

// Push approves the outbound movement with a synthetic reference.
func (StaticMover) Push(_ context.Context, _, _ string, _ uint64) (Receipt, error) {
	return Receipt{Reference: uuid.NewString()}, nil
}

// RejectingMover refuses every movement; useful for exercising the
// transfer-failed paths in tests.
type RejectingMover struct{}

// Pull rejects the inbound movement.
func (RejectingMover) Pull(_ context.Context, _, _ string, _ uint64) (Receipt, error) {
	return Receipt{}, ErrTransferRejected
}

// Push rejects the outbound movement.
func (RejectingMover) Push(_ context.Context, _, _ string, _ uint64) (Receipt, error) {
	return Receipt{}, ErrTransferRejected
}
