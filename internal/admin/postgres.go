package admin

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository persists administrative state in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds an admin repository backed by PostgreSQL and
// seeds the bootstrap administrator if it is not already present.
func NewPostgresRepository(ctx context.Context, db *pgxpool.Pool, adminAccount string) (*PostgresRepository, error) {
	r := &PostgresRepository{db: db}
	if adminAccount != "" {
		if _, err := db.Exec(ctx, `INSERT INTO admins (account) VALUES ($1)
            ON CONFLICT (account) DO NOTHING`, adminAccount); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// IsAdmin reports whether the account holds the administrator capability.
func (r *PostgresRepository) IsAdmin(ctx context.Context, account string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM admins WHERE account = $1)`
	var ok bool
	if err := r.db.QueryRow(ctx, query, account).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// IsOperator reports whether the account holds the operator capability.
func (r *PostgresRepository) IsOperator(ctx context.Context, account string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM operators WHERE account = $1)`
	var ok bool
	if err := r.db.QueryRow(ctx, query, account).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// SetOperator grants or revokes the operator capability.
func (r *PostgresRepository) SetOperator(ctx context.Context, account string, enabled bool) error {
	if enabled {
		_, err := r.db.Exec(ctx, `INSERT INTO operators (account) VALUES ($1)
            ON CONFLICT (account) DO NOTHING`, account)
		return err
	}
	_, err := r.db.Exec(ctx, `DELETE FROM operators WHERE account = $1`, account)
	return err
}

// Fee returns the current fee configuration; zero-valued when unset.
func (r *PostgresRepository) Fee(ctx context.Context) (FeeConfig, error) {
	const query = `SELECT bps, recipient FROM fee_config WHERE id = 1`
	var cfg FeeConfig
	var bps int64
	if err := r.db.QueryRow(ctx, query).Scan(&bps, &cfg.Recipient); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FeeConfig{}, nil
		}
		return FeeConfig{}, err
	}
	cfg.Bps = uint64(bps)
	return cfg, nil
}

// SetFee replaces the fee configuration.
func (r *PostgresRepository) SetFee(ctx context.Context, cfg FeeConfig) error {
	_, err := r.db.Exec(ctx, `INSERT INTO fee_config (id, bps, recipient) VALUES (1, $1, $2)
        ON CONFLICT (id) DO UPDATE SET bps = EXCLUDED.bps, recipient = EXCLUDED.recipient`,
		int64(cfg.Bps), cfg.Recipient)
	return err
}
