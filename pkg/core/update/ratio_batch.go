package update

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"disclosure_pipeline/pkg/core/ratios"
)

// RatioCalculator is the slice of the ratio calculator the batch needs.
type RatioCalculator interface {
	CalculateAndStore(ctx context.Context, securityID int64) (*ratios.RatioSnapshot, error)
}

// RatioBatch recalculates ratios for every tracked security. One security
// failing never stops the run; it is counted and listed in the stats.
type RatioBatch struct {
	securities SecurityLister
	calc       RatioCalculator
	log        zerolog.Logger
}

func NewRatioBatch(securities SecurityLister, calc RatioCalculator, log zerolog.Logger) *RatioBatch {
	return &RatioBatch{
		securities: securities,
		calc:       calc,
		log:        log.With().Str("component", "ratio_batch").Logger(),
	}
}

// Run recalculates every security, counting skips for missing data and
// isolating failures.
func (b *RatioBatch) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{RunID: uuid.New()}
	log := b.log.With().Str("run_id", stats.RunID.String()).Logger()

	securities, err := b.securities.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}
	stats.TotalRecords = len(securities)
	log.Info().Int("securities", len(securities)).Msg("ratio batch started")

	for _, sec := range securities {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		snap, err := b.calc.CalculateAndStore(ctx, sec.ID)
		switch {
		case err != nil:
			stats.Failed++
			stats.FailedItems = append(stats.FailedItems, sec.Ticker)
			log.Error().Str("ticker", sec.Ticker).Err(err).Msg("security failed")
		case snap == nil:
			stats.Skipped++
		default:
			stats.Processed++
		}
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int("processed", stats.Processed).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Strs("failed_items", stats.FailedItems).
		Dur("duration", stats.Duration).
		Msg("ratio batch finished")
	return stats, nil
}
