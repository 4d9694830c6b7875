package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"disclosure_pipeline/pkg/core/compare"
	"disclosure_pipeline/pkg/core/period"
)

// RiskComparator is the slice of the comparator the batch needs.
type RiskComparator interface {
	Compare(ctx context.Context, pathEarlier, pathLater string) (*compare.RiskComparison, error)
}

// ComparisonSink receives finished comparisons. Nil sinks are allowed; the
// text report is always written. Exists lets a run skip pairs the sink
// already holds even when the report file is gone.
type ComparisonSink interface {
	Exists(ctx context.Context, ticker, periodEarlier, periodLater string) (bool, error)
	SaveComparison(ctx context.Context, ticker, periodEarlier, periodLater string, result *compare.RiskComparison) error
}

// ComparisonBatch compares risk sections across every consecutive period
// pair for every ticker that filed in both periods.
type ComparisonBatch struct {
	locator    *period.Locator
	comparator RiskComparator
	retrier    *Retrier
	outputDir  string
	sink       ComparisonSink

	// OnExhausted decides whether a failed pair aborts the run. Nil means
	// Skip.
	OnExhausted func(ticker string, err error) Decision

	log zerolog.Logger
}

func NewComparisonBatch(locator *period.Locator, comparator RiskComparator, retrier *Retrier, outputDir string, log zerolog.Logger) *ComparisonBatch {
	return &ComparisonBatch{
		locator:    locator,
		comparator: comparator,
		retrier:    retrier,
		outputDir:  outputDir,
		log:        log.With().Str("component", "comparison_batch").Logger(),
	}
}

// WithSink adds a persistence sink alongside the text reports.
func (b *ComparisonBatch) WithSink(sink ComparisonSink) *ComparisonBatch {
	b.sink = sink
	return b
}

// Run walks the consecutive period pairs in order. Pairs whose report file
// already exists are skipped.
func (b *ComparisonBatch) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{RunID: uuid.New()}
	log := b.log.With().Str("run_id", stats.RunID.String()).Logger()

	pairs, err := b.locator.ConsecutivePairs()
	if err != nil {
		return nil, err
	}
	log.Info().Int("pairs", len(pairs)).Msg("comparison batch started")

	for _, pair := range pairs {
		tickers, err := b.locator.TickersInPeriod(pair.Earlier)
		if err != nil {
			return stats, err
		}
		for _, ticker := range tickers {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			stats.TotalRecords++

			outcome, err := b.runOne(ctx, log, ticker, pair)
			switch {
			case err != nil:
				stats.Failed++
				stats.FailedItems = append(stats.FailedItems, fmt.Sprintf("%s %s->%s", ticker, pair.Earlier, pair.Later))
				if b.decide(ticker, err) == Abort {
					stats.Duration = time.Since(start)
					return stats, fmt.Errorf("aborted at %s %s->%s: %w", ticker, pair.Earlier, pair.Later, err)
				}
			case outcome == outcomeSkipped:
				stats.Skipped++
			default:
				stats.Processed++
			}
		}
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int("processed", stats.Processed).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Strs("failed_items", stats.FailedItems).
		Dur("duration", stats.Duration).
		Msg("comparison batch finished")
	return stats, nil
}

func (b *ComparisonBatch) runOne(ctx context.Context, log zerolog.Logger, ticker string, pair period.Pair) (outcome, error) {
	earlierName, laterName := pair.Earlier.String(), pair.Later.String()

	reportPath := filepath.Join(b.outputDir, fmt.Sprintf("%s_%s_to_%s_analysis.txt", ticker, earlierName, laterName))
	if _, err := os.Stat(reportPath); err == nil {
		log.Debug().Str("ticker", ticker).Str("report", reportPath).Msg("report exists, skipping")
		return outcomeSkipped, nil
	}
	if b.sink != nil {
		exists, err := b.sink.Exists(ctx, ticker, earlierName, laterName)
		if err != nil {
			return 0, err
		}
		if exists {
			log.Debug().Str("ticker", ticker).Str("pair", earlierName+"->"+laterName).Msg("comparison stored, skipping")
			return outcomeSkipped, nil
		}
	}

	pathEarlier, found, err := b.locator.FindFiling(pair.Earlier, ticker)
	if err != nil {
		return 0, err
	}
	if !found {
		return outcomeSkipped, nil
	}
	pathLater, found, err := b.locator.FindFiling(pair.Later, ticker)
	if err != nil {
		return 0, err
	}
	if !found {
		log.Debug().Str("ticker", ticker).Str("period", laterName).Msg("no later filing, skipping")
		return outcomeSkipped, nil
	}

	var result *compare.RiskComparison
	err = b.retrier.Do(ctx, fmt.Sprintf("compare %s %s->%s", ticker, earlierName, laterName), func(ctx context.Context) error {
		var cmpErr error
		result, cmpErr = b.comparator.Compare(ctx, pathEarlier, pathLater)
		return cmpErr
	})
	if err != nil {
		return 0, err
	}

	if _, err := compare.WriteResultsFile(b.outputDir, ticker, earlierName, laterName, result); err != nil {
		return 0, err
	}
	if b.sink != nil {
		if err := b.sink.SaveComparison(ctx, ticker, earlierName, laterName, result); err != nil {
			return 0, err
		}
	}
	log.Info().Str("ticker", ticker).Str("pair", earlierName+"->"+laterName).Msg("pair compared")
	return outcomeProcessed, nil
}

func (b *ComparisonBatch) decide(ticker string, err error) Decision {
	if b.OnExhausted == nil {
		return Skip
	}
	return b.OnExhausted(ticker, err)
}
