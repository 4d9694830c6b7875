// Package fundamentals imports quarterly line items from CSV exports of the
// reporting provider. Columns are positional; empty cells stay NULL so the
// ratio calculator can propagate missing data.
package fundamentals

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"disclosure_pipeline/pkg/core/ratios"
)

const dateLayout = "2006-01-02"

// columns is the expected CSV layout after ticker and date.
var columns = []string{
	"revenue", "net_profit", "operating_profit", "eps", "cost_of_sales",
	"ebit", "depreciation", "interest", "equity", "assets", "liabilities",
	"current_assets", "current_liabilities", "inventories", "cash",
}

// SecurityResolver maps tickers to security ids.
type SecurityResolver interface {
	ResolveTicker(ctx context.Context, ticker string) (*int64, error)
}

// Writer persists one quarter's fundamentals.
type Writer interface {
	Upsert(ctx context.Context, f *ratios.Fundamentals) error
}

// Importer reads CSV files of quarterly fundamentals.
type Importer struct {
	resolver SecurityResolver
	writer   Writer
	log      zerolog.Logger
}

func NewImporter(resolver SecurityResolver, writer Writer, log zerolog.Logger) *Importer {
	return &Importer{
		resolver: resolver,
		writer:   writer,
		log:      log.With().Str("component", "fundamentals").Logger(),
	}
}

// Stats summarizes one import run.
type Stats struct {
	Imported int
	Skipped  int
}

// ImportFile imports one CSV file, header optional.
func (im *Importer) ImportFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open fundamentals file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads rows from r and upserts each valid quarter.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Stats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var stats Stats
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read fundamentals CSV: %w", err)
		}
		line++

		row, parseErr := parseRow(record)
		if parseErr != nil {
			if line == 1 {
				continue // header row
			}
			im.log.Warn().Int("line", line).Err(parseErr).Msg("skipping bad fundamentals row")
			stats.Skipped++
			continue
		}

		id, err := im.resolver.ResolveTicker(ctx, row.ticker)
		if err != nil {
			return stats, fmt.Errorf("failed to resolve ticker %s: %w", row.ticker, err)
		}
		if id == nil {
			im.log.Warn().Int("line", line).Str("ticker", row.ticker).Msg("skipping unknown ticker")
			stats.Skipped++
			continue
		}

		row.quarter.SecurityID = *id
		if err := im.writer.Upsert(ctx, row.quarter); err != nil {
			return stats, fmt.Errorf("failed to store fundamentals for %s: %w", row.ticker, err)
		}
		stats.Imported++
	}

	im.log.Info().Int("imported", stats.Imported).Int("skipped", stats.Skipped).Msg("fundamentals import finished")
	return stats, nil
}

type parsedRow struct {
	ticker  string
	quarter *ratios.Fundamentals
}

func parseRow(record []string) (parsedRow, error) {
	if len(record) < 2+len(columns) {
		return parsedRow{}, fmt.Errorf("expected %d columns, got %d", 2+len(columns), len(record))
	}

	ticker := strings.ToUpper(strings.TrimSpace(record[0]))
	if ticker == "" {
		return parsedRow{}, fmt.Errorf("empty ticker")
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(record[1]))
	if err != nil {
		return parsedRow{}, fmt.Errorf("bad date %q: %w", record[1], err)
	}

	values := make([]*float64, len(columns))
	for i := range columns {
		cell := strings.TrimSpace(record[2+i])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return parsedRow{}, fmt.Errorf("bad %s %q: %w", columns[i], cell, err)
		}
		values[i] = &v
	}

	return parsedRow{
		ticker: ticker,
		quarter: &ratios.Fundamentals{
			Date:               date,
			Revenue:            values[0],
			NetProfit:          values[1],
			OperatingProfit:    values[2],
			EPS:                values[3],
			CostOfSales:        values[4],
			EBIT:               values[5],
			Depreciation:       values[6],
			Interest:           values[7],
			Equity:             values[8],
			Assets:             values[9],
			Liabilities:        values[10],
			CurrentAssets:      values[11],
			CurrentLiabilities: values[12],
			Inventories:        values[13],
			Cash:               values[14],
		},
	}, nil
}
