package ratios

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrices struct {
	obs *PriceObservation
	err error
}

func (s *stubPrices) LatestPrice(ctx context.Context, securityID int64) (*PriceObservation, error) {
	return s.obs, s.err
}

type stubFunds struct {
	quarters []Fundamentals
}

func (s *stubFunds) RecentFundamentals(ctx context.Context, securityID int64, limit int) ([]Fundamentals, error) {
	if len(s.quarters) > limit {
		return s.quarters[:limit], nil
	}
	return s.quarters, nil
}

type dividendWindow struct {
	from time.Time
	to   time.Time
}

// stubDivs answers per window: anything ending after mid-2024 is the latest
// year relative to the fixtures' 2024-12-31 fundamentals date.
type stubDivs struct {
	recent  *float64
	prior   *float64
	windows []dividendWindow
}

func (s *stubDivs) SumDividends(ctx context.Context, securityID int64, from, to time.Time) (*float64, error) {
	s.windows = append(s.windows, dividendWindow{from: from, to: to})
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if to.After(cutoff) {
		return s.recent, nil
	}
	return s.prior, nil
}

type recordingStore struct {
	saved []*RatioSnapshot
}

func (s *recordingStore) UpsertRatios(ctx context.Context, snap *RatioSnapshot) error {
	s.saved = append(s.saved, snap)
	return nil
}

func quarter(date string, revenue, netProfit *float64) Fundamentals {
	d, _ := time.Parse("2006-01-02", date)
	return Fundamentals{
		SecurityID:         1,
		Date:               d,
		Revenue:            revenue,
		NetProfit:          netProfit,
		OperatingProfit:    Ptr(50),
		CostOfSales:        Ptr(400),
		EBIT:               Ptr(60),
		Depreciation:       Ptr(10),
		Equity:             Ptr(2000),
		Assets:             Ptr(5000),
		Liabilities:        Ptr(3000),
		CurrentAssets:      Ptr(1500),
		CurrentLiabilities: Ptr(1000),
		Inventories:        Ptr(500),
		Cash:               Ptr(200),
	}
}

func fourQuarters() []Fundamentals {
	return []Fundamentals{
		quarter("2024-12-31", Ptr(1000), Ptr(100)),
		quarter("2024-09-30", Ptr(1000), Ptr(100)),
		quarter("2024-06-30", Ptr(1000), Ptr(100)),
		quarter("2024-03-31", Ptr(1000), Ptr(100)),
	}
}

func newTestCalculator(t *testing.T, funds []Fundamentals, divs *stubDivs) (*Calculator, *recordingStore) {
	t.Helper()
	if divs == nil {
		divs = &stubDivs{}
	}
	store := &recordingStore{}
	prices := &stubPrices{obs: &PriceObservation{
		SecurityID: 1,
		Date:       time.Now().UTC(),
		Price:      Ptr(25),
		MarketCap:  Ptr(10000),
	}}
	calc := NewCalculator(prices, &stubFunds{quarters: funds}, divs, store, zerolog.Nop())
	return calc, store
}

func TestCalculateFullSnapshot(t *testing.T) {
	calc, _ := newTestCalculator(t, fourQuarters(), &stubDivs{recent: Ptr(2), prior: Ptr(1)})

	snap, err := calc.Calculate(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snap)

	// Trailing sums: revenue 4000, net profit 400, cost of sales 1600.
	require.NotNil(t, snap.PERatio)
	assert.InDelta(t, 25.0, *snap.PERatio, 1e-9)
	require.NotNil(t, snap.PSRatio)
	assert.InDelta(t, 2.5, *snap.PSRatio, 1e-9)
	require.NotNil(t, snap.PBRatio)
	assert.InDelta(t, 5.0, *snap.PBRatio, 1e-9)
	// Margins and returns are plain fractions.
	require.NotNil(t, snap.GrossProfitMargin)
	assert.InDelta(t, 0.6, *snap.GrossProfitMargin, 1e-9)
	require.NotNil(t, snap.OperatingProfitMargin)
	assert.InDelta(t, 0.05, *snap.OperatingProfitMargin, 1e-9)
	require.NotNil(t, snap.NetProfitMargin)
	assert.InDelta(t, 0.1, *snap.NetProfitMargin, 1e-9)
	require.NotNil(t, snap.ReturnOnAssets)
	assert.InDelta(t, 0.08, *snap.ReturnOnAssets, 1e-9)
	require.NotNil(t, snap.ReturnOnEquity)
	assert.InDelta(t, 0.2, *snap.ReturnOnEquity, 1e-9)
	require.NotNil(t, snap.DebtToEquity)
	assert.InDelta(t, 1.5, *snap.DebtToEquity, 1e-9)
	require.NotNil(t, snap.CurrentRatio)
	assert.InDelta(t, 1.5, *snap.CurrentRatio, 1e-9)
	require.NotNil(t, snap.QuickRatio)
	assert.InDelta(t, 1.0, *snap.QuickRatio, 1e-9)
	require.NotNil(t, snap.EVEBITDA)
	// EV = 10000 + 3000 - 200 = 12800, divided by TTM ebit 240.
	assert.InDelta(t, 12800.0/240.0, *snap.EVEBITDA, 1e-9)

	require.NotNil(t, snap.PEGRatio)
	assert.Zero(t, *snap.PEGRatio)

	require.NotNil(t, snap.DividendYield)
	assert.InDelta(t, 8.0, *snap.DividendYield, 1e-9)
	require.NotNil(t, snap.BeforeDividendYield)
	assert.InDelta(t, 4.0, *snap.BeforeDividendYield, 1e-9)
}

func TestCalculateNullRevenuePropagates(t *testing.T) {
	quarters := []Fundamentals{
		quarter("2024-12-31", nil, Ptr(100)),
		quarter("2024-09-30", nil, Ptr(100)),
		quarter("2024-06-30", nil, Ptr(100)),
		quarter("2024-03-31", nil, Ptr(100)),
	}
	calc, _ := newTestCalculator(t, quarters, nil)

	snap, err := calc.Calculate(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Nil(t, snap.PSRatio)
	assert.Nil(t, snap.GrossProfitMargin)
	assert.Nil(t, snap.OperatingProfitMargin)
	assert.Nil(t, snap.NetProfitMargin)

	// Ratios that do not touch revenue are unaffected.
	assert.NotNil(t, snap.PERatio)
	assert.NotNil(t, snap.PBRatio)
	assert.NotNil(t, snap.ReturnOnEquity)
}

func TestCalculateZeroProfitNullsPE(t *testing.T) {
	quarters := []Fundamentals{
		quarter("2024-12-31", Ptr(1000), Ptr(0)),
		quarter("2024-09-30", Ptr(1000), Ptr(0)),
		quarter("2024-06-30", Ptr(1000), Ptr(0)),
		quarter("2024-03-31", Ptr(1000), Ptr(0)),
	}
	calc, _ := newTestCalculator(t, quarters, nil)

	snap, err := calc.Calculate(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Nil(t, snap.PERatio)
	assert.Nil(t, snap.PEGRatio)
	assert.Nil(t, snap.NetProfitMargin)
}

func TestCalculateRequiresFourQuarters(t *testing.T) {
	calc, _ := newTestCalculator(t, fourQuarters()[:3], &stubDivs{recent: Ptr(2)})

	snap, err := calc.Calculate(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Nil(t, snap.PERatio)
	assert.Nil(t, snap.PSRatio)
	assert.Nil(t, snap.GrossProfitMargin)
	assert.Nil(t, snap.ReturnOnEquity)

	// Dividend yields only need prices and dividend history.
	require.NotNil(t, snap.DividendYield)
	assert.InDelta(t, 8.0, *snap.DividendYield, 1e-9)
}

func TestCalculateSkipsWithoutData(t *testing.T) {
	store := &recordingStore{}
	calc := NewCalculator(&stubPrices{}, &stubFunds{}, &stubDivs{}, store, zerolog.Nop())

	snap, err := calc.Calculate(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, snap)

	calcNoFunds, _ := newTestCalculator(t, nil, nil)
	snap, err = calcNoFunds.Calculate(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestCalculateAndStorePinsFundamentalsDate(t *testing.T) {
	calc, store := newTestCalculator(t, fourQuarters(), nil)

	snap, err := calc.CalculateAndStore(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snap)
	require.Len(t, store.saved, 1)

	wantDate, _ := time.Parse("2006-01-02", "2024-12-31")
	assert.True(t, wantDate.Equal(store.saved[0].Date))
	assert.Equal(t, int64(1), store.saved[0].SecurityID)
}

func TestCalculateNoDividendHistory(t *testing.T) {
	calc, _ := newTestCalculator(t, fourQuarters(), &stubDivs{})

	snap, err := calc.Calculate(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Nil(t, snap.DividendYield)
	assert.Nil(t, snap.BeforeDividendYield)
}

func TestDividendWindowsAnchoredToCalculationDate(t *testing.T) {
	divs := &stubDivs{recent: Ptr(2), prior: Ptr(1)}
	calc, _ := newTestCalculator(t, fourQuarters(), divs)

	_, err := calc.Calculate(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, divs.windows, 2)

	// Both windows hang off the fundamentals date, not the wall clock, so
	// recalculating a historical quarter sums that year's dividends.
	calcDate, _ := time.Parse("2006-01-02", "2024-12-31")
	latest, prior := divs.windows[0], divs.windows[1]
	assert.True(t, latest.to.Equal(calcDate), "latest window ends at %s, want the calculation date %s", latest.to, calcDate)
	assert.True(t, latest.from.Equal(calcDate.AddDate(0, 0, -365)))
	assert.True(t, prior.to.Equal(latest.from.AddDate(0, 0, -1)))
	assert.True(t, prior.from.Equal(prior.to.AddDate(0, 0, -365)))
}

func TestCalculateNilInventoriesNullsQuickRatio(t *testing.T) {
	quarters := fourQuarters()
	quarters[0].Inventories = nil
	calc, _ := newTestCalculator(t, quarters, nil)

	snap, err := calc.Calculate(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Nil(t, snap.QuickRatio)
	assert.NotNil(t, snap.CurrentRatio)
}
