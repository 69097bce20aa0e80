package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists balances, custody holdings and the posting journal
// in PostgreSQL. Every posting is applied inside a single transaction with
// the touched rows locked, so a posting is all-or-nothing.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Balance returns the balance for (account, asset); zero when absent.
func (s *PostgresStore) Balance(ctx context.Context, account, asset string) (uint64, error) {
	const query = `SELECT amount FROM balances WHERE account = $1 AND asset = $2`
	var amount int64
	if err := s.db.QueryRow(ctx, query, account, asset).Scan(&amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return uint64(amount), nil
}

// Owed returns the summed balance across all accounts for an asset.
func (s *PostgresStore) Owed(ctx context.Context, asset string) (uint64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM balances WHERE asset = $1`
	var total int64
	if err := s.db.QueryRow(ctx, query, asset).Scan(&total); err != nil {
		return 0, err
	}
	if total < 0 {
		return 0, ErrArithmetic
	}
	return uint64(total), nil
}

// Holdings returns on-hand custody for an asset; zero when absent.
func (s *PostgresStore) Holdings(ctx context.Context, asset string) (uint64, error) {
	const query = `SELECT amount FROM holdings WHERE asset = $1`
	var amount int64
	if err := s.db.QueryRow(ctx, query, asset).Scan(&amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return uint64(amount), nil
}

// Apply validates and applies a posting inside one transaction.
func (s *PostgresStore) Apply(ctx context.Context, p Posting) error {
	if err := validatePosting(p); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, leg := range p.Debits {
		current, err := balanceForUpdate(ctx, tx, leg.Account, leg.Asset)
		if err != nil {
			return err
		}
		if current < leg.Amount {
			return ErrInsufficientBalance
		}
		if err := setBalance(ctx, tx, leg.Account, leg.Asset, current-leg.Amount); err != nil {
			return err
		}
	}
	for _, leg := range p.Credits {
		current, err := balanceForUpdate(ctx, tx, leg.Account, leg.Asset)
		if err != nil {
			return err
		}
		next := current + leg.Amount
		if next < current || next > MaxAmount {
			return ErrArithmetic
		}
		if err := setBalance(ctx, tx, leg.Account, leg.Asset, next); err != nil {
			return err
		}
	}
	for _, f := range p.Inflows {
		current, err := holdingsForUpdate(ctx, tx, f.Asset)
		if err != nil {
			return err
		}
		next := current + f.Amount
		if next < current || next > MaxAmount {
			return ErrArithmetic
		}
		if err := setHoldings(ctx, tx, f.Asset, next); err != nil {
			return err
		}
	}
	for _, f := range p.Outflows {
		current, err := holdingsForUpdate(ctx, tx, f.Asset)
		if err != nil {
			return err
		}
		if current < f.Amount {
			return ErrInsufficientBalance
		}
		if err := setHoldings(ctx, tx, f.Asset, current-f.Amount); err != nil {
			return err
		}
	}

	postingID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO postings (id, kind, reference, created_at) VALUES ($1, $2, $3, NOW())`,
		postingID, p.Kind, p.Reference); err != nil {
		return err
	}
	for _, leg := range p.Debits {
		if err := insertEntry(ctx, tx, postingID, leg.Account, leg.Asset, -int64(leg.Amount)); err != nil {
			return err
		}
	}
	for _, leg := range p.Credits {
		if err := insertEntry(ctx, tx, postingID, leg.Account, leg.Asset, int64(leg.Amount)); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func balanceForUpdate(ctx context.Context, tx pgx.Tx, account, asset string) (uint64, error) {
	// Ensure the row exists so FOR UPDATE has something to lock.
	if _, err := tx.Exec(ctx, `INSERT INTO balances (account, asset, amount) VALUES ($1, $2, 0)
        ON CONFLICT (account, asset) DO NOTHING`, account, asset); err != nil {
		return 0, err
	}
	const query = `SELECT amount FROM balances WHERE account = $1 AND asset = $2 FOR UPDATE`
	var amount int64
	if err := tx.QueryRow(ctx, query, account, asset).Scan(&amount); err != nil {
		return 0, err
	}
	return uint64(amount), nil
}

func setBalance(ctx context.Context, tx pgx.Tx, account, asset string, amount uint64) error {
	_, err := tx.Exec(ctx, `UPDATE balances SET amount = $3 WHERE account = $1 AND asset = $2`,
		account, asset, int64(amount))
	return err
}

func holdingsForUpdate(ctx context.Context, tx pgx.Tx, asset string) (uint64, error) {
	if _, err := tx.Exec(ctx, `INSERT INTO holdings (asset, amount) VALUES ($1, 0)
        ON CONFLICT (asset) DO NOTHING`, asset); err != nil {
		return 0, err
	}
	const query = `SELECT amount FROM holdings WHERE asset = $1 FOR UPDATE`
	var amount int64
	if err := tx.QueryRow(ctx, query, asset).Scan(&amount); err != nil {
		return 0, err
	}
	return uint64(amount), nil
}

func setHoldings(ctx context.Context, tx pgx.Tx, asset string, amount uint64) error {
	_, err := tx.Exec(ctx, `UPDATE holdings SET amount = $2 WHERE asset = $1`, asset, int64(amount))
	return err
}

func insertEntry(ctx context.Context, tx pgx.Tx, postingID uuid.UUID, account, asset string, delta int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO entries (id, posting_id, account, asset, delta) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), postingID, account, asset, delta)
	return err
}
