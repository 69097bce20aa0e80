package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores subscriptions in PostgreSQL. Periods are
// persisted as whole seconds.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a subscription repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a subscription record.
func (r *PostgresRepository) Create(ctx context.Context, sub Subscription) error {
	_, err := r.db.Exec(ctx, `INSERT INTO subscriptions
        (id, subscriber, merchant, asset, amount, period_seconds, next_due, active, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sub.ID, sub.Subscriber, sub.Merchant, sub.Asset, int64(sub.Amount),
		int64(sub.Period/time.Second), sub.NextDue.UTC(), sub.Active, sub.CreatedAt.UTC())
	return err
}

// Get fetches a subscription by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Subscription, error) {
	row := r.db.QueryRow(ctx, `SELECT id, subscriber, merchant, asset, amount, period_seconds,
        next_due, active, created_at FROM subscriptions WHERE id = $1`, id)

	var sub Subscription
	var amount, periodSeconds int64
	if err := row.Scan(&sub.ID, &sub.Subscriber, &sub.Merchant, &sub.Asset, &amount,
		&periodSeconds, &sub.NextDue, &sub.Active, &sub.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, err
	}
	sub.Amount = uint64(amount)
	sub.Period = time.Duration(periodSeconds) * time.Second
	sub.NextDue = sub.NextDue.UTC()
	sub.CreatedAt = sub.CreatedAt.UTC()
	return sub, nil
}

// Update rewrites the mutable fields of a subscription.
func (r *PostgresRepository) Update(ctx context.Context, sub Subscription) error {
	tag, err := r.db.Exec(ctx, `UPDATE subscriptions SET next_due = $2, active = $3 WHERE id = $1`,
		sub.ID, sub.NextDue.UTC(), sub.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
