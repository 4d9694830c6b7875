package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"disclosure_pipeline/pkg/core/analyzer"
	"disclosure_pipeline/pkg/core/compare"
)

// ReportRepo stores consolidated analysis reports as one JSONB blob per
// (security, period), mirroring the on-disk result files.
type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

// Exists reports whether a report is already stored for the period. Batch
// runs use this to skip work that is already done.
func (r *ReportRepo) Exists(ctx context.Context, securityID int64, period string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM analysis_reports WHERE security_id = $1 AND period = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, securityID, period).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check report existence: %w", err)
	}
	return exists, nil
}

// Save upserts the report for a (security, period).
func (r *ReportRepo) Save(ctx context.Context, securityID int64, period string, report *analyzer.FinancialAnalysis) error {
	jsonData, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO analysis_reports (security_id, period, report_json)
		VALUES ($1, $2, $3)
		ON CONFLICT (security_id, period)
		DO UPDATE SET report_json = EXCLUDED.report_json, created_at = now();
	`
	if _, err := r.pool.Exec(ctx, query, securityID, period, jsonData); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// Load returns the stored report, or (nil, nil) when none exists.
func (r *ReportRepo) Load(ctx context.Context, securityID int64, period string) (*analyzer.FinancialAnalysis, error) {
	query := `SELECT report_json FROM analysis_reports WHERE security_id = $1 AND period = $2`

	var jsonData []byte
	err := r.pool.QueryRow(ctx, query, securityID, period).Scan(&jsonData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	var report analyzer.FinancialAnalysis
	if err := json.Unmarshal(jsonData, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// RiskRepo stores year-over-year risk comparison results.
type RiskRepo struct {
	pool *pgxpool.Pool
}

func NewRiskRepo(pool *pgxpool.Pool) *RiskRepo {
	return &RiskRepo{pool: pool}
}

// Exists reports whether a comparison is already stored for the period pair.
func (r *RiskRepo) Exists(ctx context.Context, securityID int64, periodEarlier, periodLater string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM risk_comparisons
			WHERE security_id = $1 AND period_earlier = $2 AND period_later = $3
		)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, securityID, periodEarlier, periodLater).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check comparison existence: %w", err)
	}
	return exists, nil
}

// SaveComparison upserts a comparison keyed by security and period pair.
func (r *RiskRepo) SaveComparison(ctx context.Context, securityID int64, periodEarlier, periodLater string, result *compare.RiskComparison) error {
	jsonData, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal comparison: %w", err)
	}

	query := `
		INSERT INTO risk_comparisons (security_id, period_earlier, period_later, comparison_json)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (security_id, period_earlier, period_later)
		DO UPDATE SET comparison_json = EXCLUDED.comparison_json, created_at = now();
	`
	if _, err := r.pool.Exec(ctx, query, securityID, periodEarlier, periodLater, jsonData); err != nil {
		return fmt.Errorf("failed to save comparison: %w", err)
	}
	return nil
}
