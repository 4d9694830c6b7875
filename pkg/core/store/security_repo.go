package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Security is one listed company tracked by the pipeline.
type Security struct {
	ID       int64
	Ticker   string
	Name     string
	Exchange string
}

// SecurityRepo manages the securities table.
type SecurityRepo struct {
	pool *pgxpool.Pool
}

func NewSecurityRepo(pool *pgxpool.Pool) *SecurityRepo {
	return &SecurityRepo{pool: pool}
}

// Upsert inserts or refreshes a security by ticker and returns its id.
func (r *SecurityRepo) Upsert(ctx context.Context, ticker, name, exchange string) (int64, error) {
	query := `
		INSERT INTO securities (ticker, name, exchange)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker)
		DO UPDATE SET
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE securities.name END,
			exchange = CASE WHEN EXCLUDED.exchange <> '' THEN EXCLUDED.exchange ELSE securities.exchange END
		RETURNING id;
	`

	var id int64
	if err := r.pool.QueryRow(ctx, query, ticker, name, exchange).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert security %s: %w", ticker, err)
	}
	return id, nil
}

// ByTicker looks a security up by its ticker. It returns (nil, nil) when the
// ticker is unknown.
func (r *SecurityRepo) ByTicker(ctx context.Context, ticker string) (*Security, error) {
	query := `SELECT id, ticker, name, exchange FROM securities WHERE ticker = $1`

	var s Security
	err := r.pool.QueryRow(ctx, query, ticker).Scan(&s.ID, &s.Ticker, &s.Name, &s.Exchange)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load security %s: %w", ticker, err)
	}
	return &s, nil
}

// ResolveTicker returns a security's id, or nil when the ticker is not
// tracked.
func (r *SecurityRepo) ResolveTicker(ctx context.Context, ticker string) (*int64, error) {
	s, err := r.ByTicker(ctx, ticker)
	if err != nil || s == nil {
		return nil, err
	}
	return &s.ID, nil
}

// All returns every tracked security ordered by ticker.
func (r *SecurityRepo) All(ctx context.Context) ([]Security, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, ticker, name, exchange FROM securities ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}
	defer rows.Close()
	return scanSecurities(rows)
}

// ByExchange returns the securities listed on one exchange.
func (r *SecurityRepo) ByExchange(ctx context.Context, exchange string) ([]Security, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, ticker, name, exchange FROM securities WHERE exchange = $1 ORDER BY ticker`, exchange)
	if err != nil {
		return nil, fmt.Errorf("failed to list securities for %s: %w", exchange, err)
	}
	defer rows.Close()
	return scanSecurities(rows)
}

func scanSecurities(rows pgx.Rows) ([]Security, error) {
	var out []Security
	for rows.Next() {
		var s Security
		if err := rows.Scan(&s.ID, &s.Ticker, &s.Name, &s.Exchange); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
