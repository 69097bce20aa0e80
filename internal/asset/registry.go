package asset

import (
	"context"
	"errors"
)

// ErrNotAllowed occurs when an operation references an asset outside the
// custody allow-list.
var ErrNotAllowed = errors.New("asset not allowed")

// Registry is the allow-list of fungible asset codes eligible for custody.
// Mutation happens only through the vault's administrative operations.
type Registry interface {
	Allow(ctx context.Context, asset string) error
	Revoke(ctx context.Context, asset string) error
	IsAllowed(ctx context.Context, asset string) (bool, error)
	List(ctx context.Context) ([]string, error)
}
