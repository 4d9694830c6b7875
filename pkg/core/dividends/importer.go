// Package dividends imports dividend event history from CSV exports. Each
// row is (ticker, ex_date, amount); bad rows are logged and skipped so one
// typo does not sink a whole import.
package dividends

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
)

const dateLayout = "2006-01-02"

// Event is one dividend payment with its ex-date.
type Event struct {
	Ticker string
	ExDate time.Time
	Amount float64
}

// SecurityResolver maps tickers to security ids. Unknown tickers resolve to
// (nil, nil).
type SecurityResolver interface {
	ResolveTicker(ctx context.Context, ticker string) (*int64, error)
}

// EventWriter persists dividend events. The store's DividendRepo satisfies
// it via a thin adapter.
type EventWriter interface {
	Upsert(ctx context.Context, securityID int64, exDate time.Time, amount float64) error
}

// Importer reads CSV files and writes the events they contain.
type Importer struct {
	resolver SecurityResolver
	writer   EventWriter
	log      zerolog.Logger
}

func NewImporter(resolver SecurityResolver, writer EventWriter, log zerolog.Logger) *Importer {
	return &Importer{
		resolver: resolver,
		writer:   writer,
		log:      log.With().Str("component", "dividends").Logger(),
	}
}

// Stats summarizes one import run.
type Stats struct {
	Imported int
	Skipped  int
}

// ImportFile imports one CSV file. The first row is treated as a header when
// its amount column does not parse as a number.
func (im *Importer) ImportFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open dividends file: %w", err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads CSV rows from r and upserts each valid event.
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
			return stats, fmt.Errorf("failed to read dividends CSV: %w", err)
		}
		line++

		event, parseErr := parseRow(record)
		if parseErr != nil {
			if line == 1 {
				continue // header row
			}
			im.log.Warn().Int("line", line).Err(parseErr).Msg("skipping bad dividend row")
			stats.Skipped++
			continue
		}

		id, err := im.resolver.ResolveTicker(ctx, event.Ticker)
		if err != nil {
			return stats, fmt.Errorf("failed to resolve ticker %s: %w", event.Ticker, err)
		}
		if id == nil {
			im.log.Warn().Int("line", line).Str("ticker", event.Ticker).Msg("skipping unknown ticker")
			stats.Skipped++
			continue
		}

		if err := im.writer.Upsert(ctx, *id, event.ExDate, event.Amount); err != nil {
			return stats, fmt.Errorf("failed to store dividend for %s: %w", event.Ticker, err)
		}
		stats.Imported++
	}

	im.log.Info().Int("imported", stats.Imported).Int("skipped", stats.Skipped).Msg("dividend import finished")
	return stats, nil
}

func parseRow(record []string) (Event, error) {
	if len(record) < 3 {
		return Event{}, fmt.Errorf("expected 3 columns, got %d", len(record))
	}

	ticker := strings.ToUpper(strings.TrimSpace(record[0]))
	if ticker == "" {
		return Event{}, fmt.Errorf("empty ticker")
	}

	exDate, err := time.Parse(dateLayout, strings.TrimSpace(record[1]))
	if err != nil {
		return Event{}, fmt.Errorf("bad ex-date %q: %w", record[1], err)
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return Event{}, fmt.Errorf("bad amount %q: %w", record[2], err)
	}
	if amount <= 0 {
		return Event{}, fmt.Errorf("non-positive amount %v", amount)
	}

	return Event{Ticker: ticker, ExDate: exDate, Amount: amount}, nil
}
