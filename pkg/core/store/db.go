// Package store holds the PostgreSQL persistence layer. Repositories take
// the pool explicitly so tests can swap them out behind the interfaces the
// callers define.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool and verifies it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL not set")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS securities (
	id BIGSERIAL PRIMARY KEY,
	ticker TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	exchange TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analysis_reports (
	id BIGSERIAL PRIMARY KEY,
	security_id BIGINT NOT NULL REFERENCES securities(id),
	period TEXT NOT NULL,
	report_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (security_id, period)
);

CREATE TABLE IF NOT EXISTS risk_comparisons (
	id BIGSERIAL PRIMARY KEY,
	security_id BIGINT NOT NULL REFERENCES securities(id),
	period_earlier TEXT NOT NULL,
	period_later TEXT NOT NULL,
	comparison_json JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (security_id, period_earlier, period_later)
);

CREATE TABLE IF NOT EXISTS fundamentals (
	id BIGSERIAL PRIMARY KEY,
	security_id BIGINT NOT NULL REFERENCES securities(id),
	date DATE NOT NULL,
	revenue DOUBLE PRECISION,
	net_profit DOUBLE PRECISION,
	operating_profit DOUBLE PRECISION,
	eps DOUBLE PRECISION,
	cost_of_sales DOUBLE PRECISION,
	ebit DOUBLE PRECISION,
	depreciation DOUBLE PRECISION,
	interest DOUBLE PRECISION,
	equity DOUBLE PRECISION,
	assets DOUBLE PRECISION,
	liabilities DOUBLE PRECISION,
	current_assets DOUBLE PRECISION,
	current_liabilities DOUBLE PRECISION,
	inventories DOUBLE PRECISION,
	cash DOUBLE PRECISION,
	UNIQUE (security_id, date)
);

CREATE TABLE IF NOT EXISTS prices (
	id BIGSERIAL PRIMARY KEY,
	security_id BIGINT NOT NULL REFERENCES securities(id),
	date DATE NOT NULL,
	open DOUBLE PRECISION,
	high DOUBLE PRECISION,
	low DOUBLE PRECISION,
	close DOUBLE PRECISION,
	volume BIGINT NOT NULL DEFAULT 0,
	market_cap DOUBLE PRECISION,
	UNIQUE (security_id, date)
);

CREATE TABLE IF NOT EXISTS dividends (
	id BIGSERIAL PRIMARY KEY,
	security_id BIGINT NOT NULL REFERENCES securities(id),
	ex_date DATE NOT NULL,
	amount DOUBLE PRECISION NOT NULL,
	UNIQUE (security_id, ex_date)
);

CREATE TABLE IF NOT EXISTS financial_ratios (
	id BIGSERIAL PRIMARY KEY,
	security_id BIGINT NOT NULL REFERENCES securities(id),
	date DATE NOT NULL,
	price DOUBLE PRECISION,
	pe_ratio DOUBLE PRECISION,
	pb_ratio DOUBLE PRECISION,
	ps_ratio DOUBLE PRECISION,
	peg_ratio DOUBLE PRECISION,
	ev_ebitda DOUBLE PRECISION,
	gross_profit_margin DOUBLE PRECISION,
	operating_profit_margin DOUBLE PRECISION,
	net_profit_margin DOUBLE PRECISION,
	return_on_assets DOUBLE PRECISION,
	return_on_equity DOUBLE PRECISION,
	debt_to_equity DOUBLE PRECISION,
	current_ratio DOUBLE PRECISION,
	quick_ratio DOUBLE PRECISION,
	dividend_yield DOUBLE PRECISION,
	before_dividend_yield DOUBLE PRECISION,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (security_id, date)
);
`

// EnsureSchema creates the tables when they do not exist yet. Migrations are
// managed elsewhere in production; this keeps local runs self-contained.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
