package update

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"disclosure_pipeline/pkg/core/prices"
	"disclosure_pipeline/pkg/core/ratios"
	"disclosure_pipeline/pkg/core/store"
)

// RunStats summarizes one batch run.
type RunStats struct {
	RunID        uuid.UUID
	TotalRecords int
	Processed    int
	Skipped      int
	Failed       int
	FailedItems  []string
	Duration     time.Duration
}

// SuccessRate is the fraction of items that finished, in [0, 1].
func (s RunStats) SuccessRate() float64 {
	if s.TotalRecords == 0 {
		return 0
	}
	return float64(s.Processed) / float64(s.TotalRecords)
}

// SecurityLister yields the securities a batch run iterates over.
type SecurityLister interface {
	All(ctx context.Context) ([]store.Security, error)
}

// MarketData is the slice of the prices client the manager needs.
type MarketData interface {
	DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]prices.Bar, error)
	LatestQuote(ctx context.Context, ticker string) (*prices.Quote, error)
}

// PriceWriter persists fetched bars.
type PriceWriter interface {
	BulkInsert(ctx context.Context, bars []ratios.PriceObservation) (int64, error)
}

// PriceUpdateManager refreshes price history for every tracked security. One
// security failing never stops the run unless OnExhausted says to abort.
type PriceUpdateManager struct {
	securities SecurityLister
	market     MarketData
	writer     PriceWriter
	retrier    *Retrier

	// OnExhausted decides what happens when retries run out for one
	// security. Nil means Skip.
	OnExhausted func(ticker string, err error) Decision

	// Lookback bounds how far history is fetched. Zero means 30 days.
	Lookback time.Duration

	pause time.Duration
	sleep func(ctx context.Context, d time.Duration) error
	log   zerolog.Logger
}

func NewPriceUpdateManager(securities SecurityLister, market MarketData, writer PriceWriter, retrier *Retrier, log zerolog.Logger) *PriceUpdateManager {
	return &PriceUpdateManager{
		securities: securities,
		market:     market,
		writer:     writer,
		retrier:    retrier,
		pause:      time.Second,
		sleep:      sleepCtx,
		log:        log.With().Str("component", "price_update").Logger(),
	}
}

// Run fetches and stores bars for every security, pausing between securities
// to stay below the venue's rate limits.
func (m *PriceUpdateManager) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{RunID: uuid.New()}
	log := m.log.With().Str("run_id", stats.RunID.String()).Logger()

	securities, err := m.securities.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}
	stats.TotalRecords = len(securities)
	log.Info().Int("securities", len(securities)).Msg("price update started")

	lookback := m.Lookback
	if lookback == 0 {
		lookback = 30 * 24 * time.Hour
	}

	for i, sec := range securities {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		err := m.retrier.Do(ctx, "price fetch "+sec.Ticker, func(ctx context.Context) error {
			return m.updateOne(ctx, sec, lookback)
		})
		if err != nil {
			stats.Failed++
			stats.FailedItems = append(stats.FailedItems, sec.Ticker)
			log.Error().Str("ticker", sec.Ticker).Err(err).Msg("security failed")
			if m.decide(sec.Ticker, err) == Abort {
				stats.Duration = time.Since(start)
				return stats, fmt.Errorf("aborted at %s: %w", sec.Ticker, err)
			}
			continue
		}
		stats.Processed++

		if i < len(securities)-1 {
			if err := m.sleep(ctx, m.pause); err != nil {
				return stats, err
			}
		}
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int("processed", stats.Processed).
		Int("failed", stats.Failed).
		Strs("failed_items", stats.FailedItems).
		Float64("success_rate", stats.SuccessRate()).
		Dur("duration", stats.Duration).
		Msg("price update finished")
	return stats, nil
}

func (m *PriceUpdateManager) updateOne(ctx context.Context, sec store.Security, lookback time.Duration) error {
	now := time.Now().UTC()
	bars, err := m.market.DailyBars(ctx, sec.Ticker, now.Add(-lookback), now)
	if err != nil {
		return err
	}

	quote, err := m.market.LatestQuote(ctx, sec.Ticker)
	if err != nil {
		return err
	}

	obs := make([]ratios.PriceObservation, 0, len(bars))
	for _, b := range bars {
		o := ratios.PriceObservation{
			SecurityID: sec.ID,
			Date:       b.Date,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Price:      b.Close,
			Volume:     b.Volume,
		}
		obs = append(obs, o)
	}
	// Market cap is only known for the latest day.
	if quote != nil && len(obs) > 0 {
		obs[len(obs)-1].MarketCap = quote.MarketCap
	}

	inserted, err := m.writer.BulkInsert(ctx, obs)
	if err != nil {
		return err
	}
	m.log.Debug().Str("ticker", sec.Ticker).Int64("inserted", inserted).Msg("bars stored")
	return nil
}

func (m *PriceUpdateManager) decide(ticker string, err error) Decision {
	if m.OnExhausted == nil {
		return Skip
	}
	return m.OnExhausted(ticker, err)
}
