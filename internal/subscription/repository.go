package subscription

import (
	"context"
	"errors"
)

var (
	// ErrNotFound occurs when no subscription exists for the id.
	ErrNotFound = errors.New("subscription not found")

	// ErrNotActive occurs when charging a cancelled subscription.
	ErrNotActive = errors.New("subscription not active")

	// ErrNotDue occurs when charging before the next due instant.
	ErrNotDue = errors.New("subscription not due")
)

// Repository persists subscription records.
type Repository interface {
	Create(ctx context.Context, sub Subscription) error
	Get(ctx context.Context, id string) (Subscription, error)
	Update(ctx context.Context, sub Subscription) error
}
