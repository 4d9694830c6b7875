package update

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"disclosure_pipeline/pkg/core/analyzer"
	"disclosure_pipeline/pkg/core/period"
)

const maxAnalysisWorkers = 4

// DocumentAnalyzer is the slice of the analyzer the batch needs.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, path string) (*analyzer.FinancialAnalysis, error)
}

// ResultSink stores finished analyses and answers whether one already
// exists, which makes batch runs idempotent.
type ResultSink interface {
	Exists(ctx context.Context, ticker, periodName string) (bool, error)
	Save(ctx context.Context, ticker, periodName string, result *analyzer.FinancialAnalysis) error
}

// FileSink is a ResultSink over the processed_results folder.
type FileSink struct {
	Root string
}

func (s *FileSink) Exists(ctx context.Context, ticker, periodName string) (bool, error) {
	dir := filepath.Join(s.Root, analyzer.ResultsDirName)
	_, found, err := analyzer.LoadJSON(dir, ticker, periodName)
	if err != nil {
		return false, nil // missing or unreadable cache entry, redo the work
	}
	return found, nil
}

func (s *FileSink) Save(ctx context.Context, ticker, periodName string, result *analyzer.FinancialAnalysis) error {
	_, err := analyzer.SaveJSON(s.Root, ticker, periodName, result)
	return err
}

// AnalysisBatch runs the analyzer over every filing in the document tree.
// Filings are grouped by ticker; tickers may run concurrently but one
// ticker's filings always run oldest first.
type AnalysisBatch struct {
	locator  *period.Locator
	analyzer DocumentAnalyzer
	sink     ResultSink
	retrier  *Retrier

	// Workers bounds ticker-level concurrency, clamped to [1, 4].
	Workers int
	// DryRun lists the work without calling the analyzer.
	DryRun bool
	// StartYear and EndYear bound the periods walked; zero means unbounded.
	StartYear int
	EndYear   int
	// OnExhausted decides whether a failed filing aborts the run. Nil
	// means Skip.
	OnExhausted func(ticker string, err error) Decision

	log zerolog.Logger
}

func NewAnalysisBatch(locator *period.Locator, a DocumentAnalyzer, sink ResultSink, retrier *Retrier, log zerolog.Logger) *AnalysisBatch {
	return &AnalysisBatch{
		locator:  locator,
		analyzer: a,
		sink:     sink,
		retrier:  retrier,
		Workers:  1,
		log:      log.With().Str("component", "analysis_batch").Logger(),
	}
}

type filingTask struct {
	ticker string
	period period.Period
	path   string
}

// Run walks the filing tree and analyzes everything that has no stored
// result yet.
func (b *AnalysisBatch) Run(ctx context.Context) (*RunStats, error) {
	start := time.Now()
	stats := &RunStats{RunID: uuid.New()}
	log := b.log.With().Str("run_id", stats.RunID.String()).Logger()

	byTicker, err := b.collectTasks()
	if err != nil {
		return nil, err
	}
	for _, tasks := range byTicker {
		stats.TotalRecords += len(tasks)
	}
	log.Info().
		Int("tickers", len(byTicker)).
		Int("filings", stats.TotalRecords).
		Bool("dry_run", b.DryRun).
		Msg("analysis batch started")

	workers := b.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > maxAnalysisWorkers {
		workers = maxAnalysisWorkers
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for ticker, tasks := range byTicker {
		g.Go(func() error {
			for _, task := range tasks {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcome, err := b.runOne(gctx, log, task)
				mu.Lock()
				switch {
				case err != nil:
					stats.Failed++
					stats.FailedItems = append(stats.FailedItems, task.ticker+" "+task.period.String())
				case outcome == outcomeSkipped:
					stats.Skipped++
				default:
					stats.Processed++
				}
				mu.Unlock()
				if err != nil && b.decide(ticker, err) == Abort {
					return fmt.Errorf("aborted at %s %s: %w", task.ticker, task.period, err)
				}
			}
			return nil
		})
	}

	err = g.Wait()
	stats.Duration = time.Since(start)
	log.Info().
		Int("processed", stats.Processed).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Strs("failed_items", stats.FailedItems).
		Dur("duration", stats.Duration).
		Msg("analysis batch finished")
	return stats, err
}

type outcome int

const (
	outcomeProcessed outcome = iota
	outcomeSkipped
)

func (b *AnalysisBatch) runOne(ctx context.Context, log zerolog.Logger, task filingTask) (outcome, error) {
	periodName := task.period.String()

	exists, err := b.sink.Exists(ctx, task.ticker, periodName)
	if err != nil {
		return 0, err
	}
	if exists {
		log.Debug().Str("ticker", task.ticker).Str("period", periodName).Msg("result exists, skipping")
		return outcomeSkipped, nil
	}
	if b.DryRun {
		log.Info().Str("ticker", task.ticker).Str("period", periodName).Msg("would analyze")
		return outcomeProcessed, nil
	}

	var result *analyzer.FinancialAnalysis
	err = b.retrier.Do(ctx, fmt.Sprintf("analyze %s %s", task.ticker, periodName), func(ctx context.Context) error {
		var analyzeErr error
		result, analyzeErr = b.analyzer.Analyze(ctx, task.path)
		return analyzeErr
	})
	if err != nil {
		log.Error().Str("ticker", task.ticker).Str("period", periodName).Err(err).Msg("filing failed")
		return 0, err
	}

	if err := b.sink.Save(ctx, task.ticker, periodName, result); err != nil {
		return 0, fmt.Errorf("failed to store result for %s %s: %w", task.ticker, periodName, err)
	}
	log.Info().Str("ticker", task.ticker).Str("period", periodName).Msg("filing analyzed")
	return outcomeProcessed, nil
}

func (b *AnalysisBatch) collectTasks() (map[string][]filingTask, error) {
	periods, err := b.locator.ListPeriods()
	if err != nil {
		return nil, err
	}

	byTicker := make(map[string][]filingTask)
	for _, p := range periods {
		if b.StartYear != 0 && p.Year < b.StartYear {
			continue
		}
		if b.EndYear != 0 && p.Year > b.EndYear {
			continue
		}
		tickers, err := b.locator.TickersInPeriod(p)
		if err != nil {
			return nil, err
		}
		for _, t := range tickers {
			path, found, err := b.locator.FindFiling(p, t)
			if err != nil {
				return nil, err
			}
			if !found {
				continue
			}
			byTicker[t] = append(byTicker[t], filingTask{ticker: t, period: p, path: path})
		}
	}
	return byTicker, nil
}

func (b *AnalysisBatch) decide(ticker string, err error) Decision {
	if b.OnExhausted == nil {
		return Skip
	}
	return b.OnExhausted(ticker, err)
}
