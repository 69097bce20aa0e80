package paylink

import (
	"context"
	"errors"
)

var (
	// ErrNotFound occurs when no link exists for the id.
	ErrNotFound = errors.New("payment link not found")

	// ErrExists occurs when creating a link with an id already in use.
	ErrExists = errors.New("payment link id already in use")

	// ErrExpired occurs when claiming after the expiry instant.
	ErrExpired = errors.New("payment link expired")

	// ErrAlreadyClaimed occurs on a second claim of the same link.
	ErrAlreadyClaimed = errors.New("payment link already claimed")

	// ErrInvalidSecret occurs when the presented secret does not hash to the
	// link's lock.
	ErrInvalidSecret = errors.New("invalid secret")

	// ErrNotExpired occurs when refunding a link that can still be claimed.
	ErrNotExpired = errors.New("payment link not expired")

	// ErrAlreadyRefunded occurs on a second refund of the same link.
	ErrAlreadyRefunded = errors.New("payment link already refunded")
)

// Repository persists link records.
type Repository interface {
	Create(ctx context.Context, link Link) error
	Get(ctx context.Context, id string) (Link, error)
	MarkClaimed(ctx context.Context, id, claimant string) error
	MarkRefunded(ctx context.Context, id string) error
}
