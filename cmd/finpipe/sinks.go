package main

import (
	"context"
	"fmt"

	"disclosure_pipeline/pkg/core/analyzer"
	"disclosure_pipeline/pkg/core/compare"
	"disclosure_pipeline/pkg/core/store"
	"disclosure_pipeline/pkg/core/update"
)

// dbResultSink stores analyses in Postgres, keyed by the security resolved
// from the filing's ticker. It satisfies update.ResultSink.
type dbResultSink struct {
	securities *store.SecurityRepo
	reports    *store.ReportRepo
}

var _ update.ResultSink = (*dbResultSink)(nil)

func (s *dbResultSink) resolve(ctx context.Context, ticker string) (int64, error) {
	id, err := s.securities.ResolveTicker(ctx, ticker)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, fmt.Errorf("ticker %s not in securities table, run finpipe listings first", ticker)
	}
	return *id, nil
}

func (s *dbResultSink) Exists(ctx context.Context, ticker, periodName string) (bool, error) {
	id, err := s.resolve(ctx, ticker)
	if err != nil {
		return false, err
	}
	return s.reports.Exists(ctx, id, periodName)
}

func (s *dbResultSink) Save(ctx context.Context, ticker, periodName string, result *analyzer.FinancialAnalysis) error {
	id, err := s.resolve(ctx, ticker)
	if err != nil {
		return err
	}
	return s.reports.Save(ctx, id, periodName, result)
}

// exchangeLister scopes batch runs to one exchange when configured, falling
// back to every tracked security.
type exchangeLister struct {
	repo     *store.SecurityRepo
	exchange string
}

var _ update.SecurityLister = (*exchangeLister)(nil)

func (l *exchangeLister) All(ctx context.Context) ([]store.Security, error) {
	if l.exchange == "" {
		return l.repo.All(ctx)
	}
	return l.repo.ByExchange(ctx, l.exchange)
}

// dbComparisonSink stores risk comparisons alongside the text reports. It
// satisfies update.ComparisonSink.
type dbComparisonSink struct {
	securities *store.SecurityRepo
	risks      *store.RiskRepo
}

var _ update.ComparisonSink = (*dbComparisonSink)(nil)

func (s *dbComparisonSink) Exists(ctx context.Context, ticker, periodEarlier, periodLater string) (bool, error) {
	id, err := s.securities.ResolveTicker(ctx, ticker)
	if err != nil {
		return false, err
	}
	if id == nil {
		return false, fmt.Errorf("ticker %s not in securities table, run finpipe listings first", ticker)
	}
	return s.risks.Exists(ctx, *id, periodEarlier, periodLater)
}

func (s *dbComparisonSink) SaveComparison(ctx context.Context, ticker, periodEarlier, periodLater string, result *compare.RiskComparison) error {
	id, err := s.securities.ResolveTicker(ctx, ticker)
	if err != nil {
		return err
	}
	if id == nil {
		return fmt.Errorf("ticker %s not in securities table, run finpipe listings first", ticker)
	}
	return s.risks.SaveComparison(ctx, *id, periodEarlier, periodLater, result)
}
