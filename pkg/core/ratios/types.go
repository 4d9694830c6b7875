// Package ratios derives valuation and health ratios from quarterly
// fundamentals, price observations and dividend history. All numeric fields
// are nullable pointers: a ratio whose inputs are missing or whose
// denominator is zero is nil, never an infinity or a panic.
package ratios

import "time"

// Fundamentals is one quarter's reported line items for a security. Flow
// quantities (revenue, profits, eps, costs) cover the quarter; stock
// quantities (equity, assets, liabilities) are balances at the closing date.
type Fundamentals struct {
	SecurityID int64
	Date       time.Time

	// Flows, annualized by trailing-four-quarter sums.
	Revenue         *float64
	NetProfit       *float64
	OperatingProfit *float64
	EPS             *float64
	CostOfSales     *float64
	EBIT            *float64
	Depreciation    *float64
	Interest        *float64

	// Balance-sheet stocks.
	Equity             *float64
	Assets             *float64
	Liabilities        *float64
	CurrentAssets      *float64
	CurrentLiabilities *float64
	Inventories        *float64
	Cash               *float64
}

// PriceObservation is one day's closing price and market cap.
type PriceObservation struct {
	SecurityID int64
	Date       time.Time
	Price      *float64
	MarketCap  *float64
	Open       *float64
	High       *float64
	Low        *float64
	Close      *float64
	Volume     int64
}

// RatioSnapshot is the derived record for one (security, date). Date is
// always the fundamentals record's date, which is the upsert key.
type RatioSnapshot struct {
	SecurityID int64
	Date       time.Time
	Price      *float64

	PERatio  *float64
	PBRatio  *float64
	PSRatio  *float64
	PEGRatio *float64
	EVEBITDA *float64

	GrossProfitMargin     *float64
	OperatingProfitMargin *float64
	NetProfitMargin       *float64

	ReturnOnAssets *float64
	ReturnOnEquity *float64
	DebtToEquity   *float64
	CurrentRatio   *float64
	QuickRatio     *float64

	DividendYield       *float64
	BeforeDividendYield *float64
}

// Ptr returns a pointer to v, a convenience for building nullable inputs.
func Ptr(v float64) *float64 { return &v }
