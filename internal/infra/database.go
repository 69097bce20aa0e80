package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool configures and returns a PostgreSQL connection pool.
func NewPostgresPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}

// Migrate applies the schema idempotently on startup. The service owns its
// schema; there is no separate migration tool to coordinate with.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS balances (
            account    TEXT NOT NULL,
            asset      TEXT NOT NULL,
            amount     BIGINT NOT NULL DEFAULT 0 CHECK (amount >= 0),
            PRIMARY KEY (account, asset)
        )`,
		`CREATE TABLE IF NOT EXISTS holdings (
            asset      TEXT PRIMARY KEY,
            amount     BIGINT NOT NULL DEFAULT 0 CHECK (amount >= 0)
        )`,
		`CREATE TABLE IF NOT EXISTS postings (
            id         UUID PRIMARY KEY,
            kind       TEXT NOT NULL,
            reference  TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS entries (
            id         UUID PRIMARY KEY,
            posting_id UUID NOT NULL REFERENCES postings (id),
            account    TEXT NOT NULL,
            asset      TEXT NOT NULL,
            delta      BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS allowed_assets (
            asset      TEXT PRIMARY KEY
        )`,
		`CREATE TABLE IF NOT EXISTS admins (
            account    TEXT PRIMARY KEY
        )`,
		`CREATE TABLE IF NOT EXISTS operators (
            account    TEXT PRIMARY KEY
        )`,
		`CREATE TABLE IF NOT EXISTS fee_config (
            id         INT PRIMARY KEY,
            bps        BIGINT NOT NULL CHECK (bps BETWEEN 0 AND 10000),
            recipient  TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS payment_links (
            id          TEXT PRIMARY KEY,
            creator     TEXT NOT NULL,
            asset       TEXT NOT NULL,
            amount      BIGINT NOT NULL CHECK (amount > 0),
            secret_hash TEXT NOT NULL,
            expiry      TIMESTAMPTZ NOT NULL,
            claimed     BOOLEAN NOT NULL DEFAULT FALSE,
            claimed_by  TEXT NOT NULL DEFAULT '',
            refunded    BOOLEAN NOT NULL DEFAULT FALSE,
            created_at  TIMESTAMPTZ NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
            id             TEXT PRIMARY KEY,
            subscriber     TEXT NOT NULL,
            merchant       TEXT NOT NULL,
            asset          TEXT NOT NULL,
            amount         BIGINT NOT NULL CHECK (amount > 0),
            period_seconds BIGINT NOT NULL CHECK (period_seconds > 0),
            next_due       TIMESTAMPTZ NOT NULL,
            active         BOOLEAN NOT NULL,
            created_at     TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS entries_posting_idx ON entries (posting_id)`,
		`CREATE INDEX IF NOT EXISTS subscriptions_due_idx ON subscriptions (next_due) WHERE active`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
