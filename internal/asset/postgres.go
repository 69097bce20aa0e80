package asset

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRegistry stores the asset allow-list in PostgreSQL.
type PostgresRegistry struct {
	db *pgxpool.Pool
}

// NewPostgresRegistry builds a registry backed by PostgreSQL.
func NewPostgresRegistry(db *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// Allow inserts the asset into the allow-list; already-allowed is a no-op.
func (r *PostgresRegistry) Allow(ctx context.Context, asset string) error {
	_, err := r.db.Exec(ctx, `INSERT INTO allowed_assets (asset) VALUES ($1)
        ON CONFLICT (asset) DO NOTHING`, asset)
	return err
}

// Revoke removes the asset from the allow-list.
func (r *PostgresRegistry) Revoke(ctx context.Context, asset string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM allowed_assets WHERE asset = $1`, asset)
	return err
}

// IsAllowed reports whether the asset is custody-eligible.
func (r *PostgresRegistry) IsAllowed(ctx context.Context, asset string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM allowed_assets WHERE asset = $1)`
	var ok bool
	if err := r.db.QueryRow(ctx, query, asset).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// List returns every allow-listed asset code.
func (r *PostgresRegistry) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT asset FROM allowed_assets ORDER BY asset`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		out = append(out, code)
	}
	return out, rows.Err()
}
