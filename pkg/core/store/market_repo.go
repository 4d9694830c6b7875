package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"disclosure_pipeline/pkg/core/ratios"
)

// PriceRepo stores daily price bars. It satisfies ratios.PriceSource.
type PriceRepo struct {
	pool *pgxpool.Pool
}

func NewPriceRepo(pool *pgxpool.Pool) *PriceRepo {
	return &PriceRepo{pool: pool}
}

// BulkInsert writes a batch of bars, skipping days that already exist so
// re-running an update never duplicates history.
func (r *PriceRepo) BulkInsert(ctx context.Context, bars []ratios.PriceObservation) (int64, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO prices (security_id, date, open, high, low, close, volume, market_cap)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (security_id, date) DO NOTHING;
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query, b.SecurityID, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume, b.MarketCap)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var inserted int64
	for range bars {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("failed to insert price bars: %w", err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, nil
}

// LatestPrice returns the most recent observation, or (nil, nil) when the
// security has no price history.
func (r *PriceRepo) LatestPrice(ctx context.Context, securityID int64) (*ratios.PriceObservation, error) {
	query := `
		SELECT security_id, date, open, high, low, close, volume, market_cap
		FROM prices
		WHERE security_id = $1
		ORDER BY date DESC
		LIMIT 1;
	`

	var obs ratios.PriceObservation
	err := r.pool.QueryRow(ctx, query, securityID).Scan(
		&obs.SecurityID, &obs.Date, &obs.Open, &obs.High, &obs.Low, &obs.Close, &obs.Volume, &obs.MarketCap,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest price: %w", err)
	}
	obs.Price = obs.Close
	return &obs, nil
}

// FundamentalsRepo stores quarterly line items. It satisfies
// ratios.FundamentalsSource.
type FundamentalsRepo struct {
	pool *pgxpool.Pool
}

func NewFundamentalsRepo(pool *pgxpool.Pool) *FundamentalsRepo {
	return &FundamentalsRepo{pool: pool}
}

// Upsert writes one quarter's fundamentals keyed by (security, date).
func (r *FundamentalsRepo) Upsert(ctx context.Context, f *ratios.Fundamentals) error {
	query := `
		INSERT INTO fundamentals (
			security_id, date, revenue, net_profit, operating_profit, eps,
			cost_of_sales, ebit, depreciation, interest, equity, assets,
			liabilities, current_assets, current_liabilities, inventories, cash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (security_id, date)
		DO UPDATE SET
			revenue = EXCLUDED.revenue,
			net_profit = EXCLUDED.net_profit,
			operating_profit = EXCLUDED.operating_profit,
			eps = EXCLUDED.eps,
			cost_of_sales = EXCLUDED.cost_of_sales,
			ebit = EXCLUDED.ebit,
			depreciation = EXCLUDED.depreciation,
			interest = EXCLUDED.interest,
			equity = EXCLUDED.equity,
			assets = EXCLUDED.assets,
			liabilities = EXCLUDED.liabilities,
			current_assets = EXCLUDED.current_assets,
			current_liabilities = EXCLUDED.current_liabilities,
			inventories = EXCLUDED.inventories,
			cash = EXCLUDED.cash;
	`
	_, err := r.pool.Exec(ctx, query,
		f.SecurityID, f.Date, f.Revenue, f.NetProfit, f.OperatingProfit, f.EPS,
		f.CostOfSales, f.EBIT, f.Depreciation, f.Interest, f.Equity, f.Assets,
		f.Liabilities, f.CurrentAssets, f.CurrentLiabilities, f.Inventories, f.Cash,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fundamentals: %w", err)
	}
	return nil
}

// RecentFundamentals returns up to limit quarters, newest first.
func (r *FundamentalsRepo) RecentFundamentals(ctx context.Context, securityID int64, limit int) ([]ratios.Fundamentals, error) {
	query := `
		SELECT security_id, date, revenue, net_profit, operating_profit, eps,
			cost_of_sales, ebit, depreciation, interest, equity, assets,
			liabilities, current_assets, current_liabilities, inventories, cash
		FROM fundamentals
		WHERE security_id = $1
		ORDER BY date DESC
		LIMIT $2;
	`

	rows, err := r.pool.Query(ctx, query, securityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load fundamentals: %w", err)
	}
	defer rows.Close()

	var out []ratios.Fundamentals
	for rows.Next() {
		var f ratios.Fundamentals
		if err := rows.Scan(
			&f.SecurityID, &f.Date, &f.Revenue, &f.NetProfit, &f.OperatingProfit, &f.EPS,
			&f.CostOfSales, &f.EBIT, &f.Depreciation, &f.Interest, &f.Equity, &f.Assets,
			&f.Liabilities, &f.CurrentAssets, &f.CurrentLiabilities, &f.Inventories, &f.Cash,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fundamentals: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// DividendRepo stores dividend events. It satisfies ratios.DividendSource.
type DividendRepo struct {
	pool *pgxpool.Pool
}

func NewDividendRepo(pool *pgxpool.Pool) *DividendRepo {
	return &DividendRepo{pool: pool}
}

// Upsert writes one dividend event keyed by (security, ex_date).
func (r *DividendRepo) Upsert(ctx context.Context, securityID int64, exDate time.Time, amount float64) error {
	query := `
		INSERT INTO dividends (security_id, ex_date, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (security_id, ex_date)
		DO UPDATE SET amount = EXCLUDED.amount;
	`
	if _, err := r.pool.Exec(ctx, query, securityID, exDate, amount); err != nil {
		return fmt.Errorf("failed to upsert dividend: %w", err)
	}
	return nil
}

// SumDividends totals gross amounts with ex-dates in [from, to], both ends
// inclusive. The sum is nil when the window has no events, which callers
// treat as missing data rather than a zero payout.
func (r *DividendRepo) SumDividends(ctx context.Context, securityID int64, from, to time.Time) (*float64, error) {
	query := `
		SELECT SUM(amount)
		FROM dividends
		WHERE security_id = $1 AND ex_date >= $2 AND ex_date <= $3;
	`

	var sum *float64
	if err := r.pool.QueryRow(ctx, query, securityID, from, to).Scan(&sum); err != nil {
		return nil, fmt.Errorf("failed to sum dividends: %w", err)
	}
	return sum, nil
}

// RatioRepo stores derived ratio snapshots. It satisfies ratios.Store.
type RatioRepo struct {
	pool *pgxpool.Pool
}

func NewRatioRepo(pool *pgxpool.Pool) *RatioRepo {
	return &RatioRepo{pool: pool}
}

// UpsertRatios writes a snapshot keyed by (security, date) so recalculating
// a quarter overwrites the previous row.
func (r *RatioRepo) UpsertRatios(ctx context.Context, snap *ratios.RatioSnapshot) error {
	query := `
		INSERT INTO financial_ratios (
			security_id, date, price, pe_ratio, pb_ratio, ps_ratio, peg_ratio,
			ev_ebitda, gross_profit_margin, operating_profit_margin,
			net_profit_margin, return_on_assets, return_on_equity,
			debt_to_equity, current_ratio, quick_ratio, dividend_yield,
			before_dividend_yield, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, now())
		ON CONFLICT (security_id, date)
		DO UPDATE SET
			price = EXCLUDED.price,
			pe_ratio = EXCLUDED.pe_ratio,
			pb_ratio = EXCLUDED.pb_ratio,
			ps_ratio = EXCLUDED.ps_ratio,
			peg_ratio = EXCLUDED.peg_ratio,
			ev_ebitda = EXCLUDED.ev_ebitda,
			gross_profit_margin = EXCLUDED.gross_profit_margin,
			operating_profit_margin = EXCLUDED.operating_profit_margin,
			net_profit_margin = EXCLUDED.net_profit_margin,
			return_on_assets = EXCLUDED.return_on_assets,
			return_on_equity = EXCLUDED.return_on_equity,
			debt_to_equity = EXCLUDED.debt_to_equity,
			current_ratio = EXCLUDED.current_ratio,
			quick_ratio = EXCLUDED.quick_ratio,
			dividend_yield = EXCLUDED.dividend_yield,
			before_dividend_yield = EXCLUDED.before_dividend_yield,
			updated_at = now();
	`
	_, err := r.pool.Exec(ctx, query,
		snap.SecurityID, snap.Date, snap.Price, snap.PERatio, snap.PBRatio, snap.PSRatio,
		snap.PEGRatio, snap.EVEBITDA, snap.GrossProfitMargin, snap.OperatingProfitMargin,
		snap.NetProfitMargin, snap.ReturnOnAssets, snap.ReturnOnEquity, snap.DebtToEquity,
		snap.CurrentRatio, snap.QuickRatio, snap.DividendYield, snap.BeforeDividendYield,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ratios: %w", err)
	}
	return nil
}
