package paylink

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores payment links in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a link repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a link record; an id collision maps to ErrExists.
func (r *PostgresRepository) Create(ctx context.Context, link Link) error {
	_, err := r.db.Exec(ctx, `INSERT INTO payment_links
        (id, creator, asset, amount, secret_hash, expiry, claimed, claimed_by, refunded, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, false, '', false, $7)`,
		link.ID, link.Creator, link.Asset, int64(link.Amount), link.SecretHash,
		link.Expiry.UTC(), link.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}

// Get fetches a link by id.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Link, error) {
	row := r.db.QueryRow(ctx, `SELECT id, creator, asset, amount, secret_hash, expiry,
        claimed, claimed_by, refunded, created_at FROM payment_links WHERE id = $1`, id)

	var link Link
	var amount int64
	if err := row.Scan(&link.ID, &link.Creator, &link.Asset, &amount, &link.SecretHash,
		&link.Expiry, &link.Claimed, &link.ClaimedBy, &link.Refunded, &link.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Link{}, ErrNotFound
		}
		return Link{}, err
	}
	link.Amount = uint64(amount)
	link.Expiry = link.Expiry.UTC()
	link.CreatedAt = link.CreatedAt.UTC()
	return link, nil
}

// MarkClaimed flips a link to claimed exactly once.
func (r *PostgresRepository) MarkClaimed(ctx context.Context, id, claimant string) error {
	tag, err := r.db.Exec(ctx, `UPDATE payment_links SET claimed = true, claimed_by = $2
        WHERE id = $1 AND claimed = false AND refunded = false`, id, claimant)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		link, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if link.Claimed {
			return ErrAlreadyClaimed
		}
		return ErrAlreadyRefunded
	}
	return nil
}

// MarkRefunded flips an unclaimed link to refunded exactly once.
func (r *PostgresRepository) MarkRefunded(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE payment_links SET refunded = true
        WHERE id = $1 AND claimed = false AND refunded = false`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		link, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		if link.Claimed {
			return ErrAlreadyClaimed
		}
		return ErrAlreadyRefunded
	}
	return nil
}
