package ratios

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const trailingQuarters = 4

// PriceSource yields the most recent price observation for a security.
type PriceSource interface {
	LatestPrice(ctx context.Context, securityID int64) (*PriceObservation, error)
}

// FundamentalsSource yields quarterly fundamentals, newest first.
type FundamentalsSource interface {
	RecentFundamentals(ctx context.Context, securityID int64, limit int) ([]Fundamentals, error)
}

// DividendSource sums gross dividend amounts with ex-dates in [from, to],
// both ends inclusive. A nil sum means no dividend events fell inside the
// window.
type DividendSource interface {
	SumDividends(ctx context.Context, securityID int64, from, to time.Time) (*float64, error)
}

// Store persists snapshots keyed by (security, date); recalculation
// overwrites the existing row.
type Store interface {
	UpsertRatios(ctx context.Context, snap *RatioSnapshot) error
}

// Calculator derives a RatioSnapshot from the repositories it is given. It
// performs no I/O beyond them and is safe for concurrent use.
type Calculator struct {
	prices PriceSource
	funds  FundamentalsSource
	divs   DividendSource
	store  Store
	log    zerolog.Logger
}

func NewCalculator(prices PriceSource, funds FundamentalsSource, divs DividendSource, store Store, log zerolog.Logger) *Calculator {
	return &Calculator{
		prices: prices,
		funds:  funds,
		divs:   divs,
		store:  store,
		log:    log.With().Str("component", "ratios").Logger(),
	}
}

// Calculate builds the snapshot for a security's latest fundamentals record.
// It returns (nil, nil) when the security has no price or no fundamentals at
// all; that is a skip, not an error. Trailing ratios that need four quarters
// are left nil when history is shorter.
func (c *Calculator) Calculate(ctx context.Context, securityID int64) (*RatioSnapshot, error) {
	obs, err := c.prices.LatestPrice(ctx, securityID)
	if err != nil {
		return nil, fmt.Errorf("latest price for security %d: %w", securityID, err)
	}
	if obs == nil {
		c.log.Debug().Int64("security_id", securityID).Msg("no price data, skipping")
		return nil, nil
	}

	quarters, err := c.funds.RecentFundamentals(ctx, securityID, trailingQuarters)
	if err != nil {
		return nil, fmt.Errorf("fundamentals for security %d: %w", securityID, err)
	}
	if len(quarters) == 0 {
		c.log.Debug().Int64("security_id", securityID).Msg("no fundamentals, skipping")
		return nil, nil
	}

	latest := quarters[0]
	snap := &RatioSnapshot{
		SecurityID: securityID,
		Date:       latest.Date,
		Price:      obs.Price,
	}

	if err := c.applyDividendYields(ctx, snap, obs.Price); err != nil {
		return nil, err
	}

	if len(quarters) < trailingQuarters {
		c.log.Info().
			Int64("security_id", securityID).
			Int("quarters", len(quarters)).
			Msg("insufficient history for trailing ratios")
		return snap, nil
	}

	ttm := sumQuarters(quarters)
	applyValuation(snap, obs, ttm, latest)
	applyMargins(snap, ttm)
	applyEfficiency(snap, ttm, latest)
	return snap, nil
}

// CalculateAndStore calculates and upserts in one step, keyed by the
// fundamentals date carried on the snapshot.
func (c *Calculator) CalculateAndStore(ctx context.Context, securityID int64) (*RatioSnapshot, error) {
	snap, err := c.Calculate(ctx, securityID)
	if err != nil || snap == nil {
		return snap, err
	}
	if err := c.store.UpsertRatios(ctx, snap); err != nil {
		return nil, fmt.Errorf("store ratios for security %d: %w", securityID, err)
	}
	c.log.Debug().
		Int64("security_id", securityID).
		Time("date", snap.Date).
		Msg("ratios stored")
	return snap, nil
}

// applyDividendYields fills the two 365-day dividend windows, anchored at
// the calculation date: the year up to it, and the year before that one.
// Anchoring at the fundamentals date keeps historical recalculations stable.
func (c *Calculator) applyDividendYields(ctx context.Context, snap *RatioSnapshot, price *float64) error {
	latestEnd := snap.Date
	latestStart := latestEnd.AddDate(0, 0, -365)
	priorEnd := latestStart.AddDate(0, 0, -1)
	priorStart := priorEnd.AddDate(0, 0, -365)

	recent, err := c.divs.SumDividends(ctx, snap.SecurityID, latestStart, latestEnd)
	if err != nil {
		return fmt.Errorf("dividends for security %d: %w", snap.SecurityID, err)
	}
	prior, err := c.divs.SumDividends(ctx, snap.SecurityID, priorStart, priorEnd)
	if err != nil {
		return fmt.Errorf("dividends for security %d: %w", snap.SecurityID, err)
	}

	snap.DividendYield = mulConst(div(recent, price), 100)
	snap.BeforeDividendYield = mulConst(div(prior, price), 100)
	return nil
}

// ttmTotals is the trailing-four-quarter aggregate of the flow fields. Nil
// quarterly values contribute zero, matching how partially reported quarters
// are treated upstream; zero totals then null out the dependent ratios.
type ttmTotals struct {
	revenue         float64
	netProfit       float64
	operatingProfit float64
	eps             float64
	costOfSales     float64
	ebit            float64
	depreciation    float64
}

func sumQuarters(quarters []Fundamentals) ttmTotals {
	var t ttmTotals
	for _, q := range quarters {
		t.revenue += orZero(q.Revenue)
		t.netProfit += orZero(q.NetProfit)
		t.operatingProfit += orZero(q.OperatingProfit)
		t.eps += orZero(q.EPS)
		t.costOfSales += orZero(q.CostOfSales)
		t.ebit += orZero(q.EBIT)
		t.depreciation += orZero(q.Depreciation)
	}
	return t
}

func applyValuation(snap *RatioSnapshot, obs *PriceObservation, ttm ttmTotals, latest Fundamentals) {
	snap.PERatio = div(obs.MarketCap, Ptr(ttm.netProfit))
	snap.PBRatio = div(obs.MarketCap, latest.Equity)
	snap.PSRatio = div(obs.MarketCap, Ptr(ttm.revenue))
	// Earnings growth is not tracked per quarter, so PEG is pinned at zero
	// whenever a P/E exists.
	if snap.PERatio != nil {
		snap.PEGRatio = Ptr(0)
	}

	if present(obs.MarketCap) && present(latest.Liabilities) && present(latest.Cash) && ttm.ebit != 0 {
		ev := *obs.MarketCap + *latest.Liabilities - *latest.Cash
		snap.EVEBITDA = Ptr(ev / ttm.ebit)
	}
}

// Margins and returns are stored as plain fractions; only the dividend
// yields carry a percentage scale.
func applyMargins(snap *RatioSnapshot, ttm ttmTotals) {
	if ttm.revenue != 0 && ttm.costOfSales != 0 {
		snap.GrossProfitMargin = Ptr((ttm.revenue - ttm.costOfSales) / ttm.revenue)
	}
	snap.OperatingProfitMargin = div(Ptr(ttm.operatingProfit), Ptr(ttm.revenue))
	snap.NetProfitMargin = div(Ptr(ttm.netProfit), Ptr(ttm.revenue))
}

func applyEfficiency(snap *RatioSnapshot, ttm ttmTotals, latest Fundamentals) {
	snap.ReturnOnAssets = div(Ptr(ttm.netProfit), latest.Assets)
	snap.ReturnOnEquity = div(Ptr(ttm.netProfit), latest.Equity)
	snap.DebtToEquity = div(latest.Liabilities, latest.Equity)
	snap.CurrentRatio = div(latest.CurrentAssets, latest.CurrentLiabilities)

	if present(latest.CurrentAssets) && present(latest.Inventories) && present(latest.CurrentLiabilities) {
		quick := *latest.CurrentAssets - *latest.Inventories
		snap.QuickRatio = Ptr(quick / *latest.CurrentLiabilities)
	}
}

// present reports whether a nullable value exists and is nonzero. Zero is
// treated as absent so that placeholder rows do not produce degenerate
// ratios.
func present(p *float64) bool { return p != nil && *p != 0 }

func orZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// div returns a/b, or nil when either side is absent or b is zero.
func div(a, b *float64) *float64 {
	if !present(a) || !present(b) {
		return nil
	}
	return Ptr(*a / *b)
}

func mulConst(p *float64, k float64) *float64 {
	if p == nil {
		return nil
	}
	return Ptr(*p * k)
}
