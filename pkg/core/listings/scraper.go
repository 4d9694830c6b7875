// Package listings scrapes the exchange's listed-companies page to keep the
// securities table in sync with the market.
package listings

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// Listing is one row from the exchange's directory of listed companies.
type Listing struct {
	Ticker   string
	Name     string
	Exchange string
}

// SecurityWriter persists scraped listings. The store's SecurityRepo
// satisfies it.
type SecurityWriter interface {
	Upsert(ctx context.Context, ticker, name, exchange string) (int64, error)
}

// Scraper pulls the listings page and parses the company table.
type Scraper struct {
	pageURL    string
	exchange   string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewScraper(pageURL, exchange string, log zerolog.Logger) *Scraper {
	return &Scraper{
		pageURL:    pageURL,
		exchange:   exchange,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "listings").Logger(),
	}
}

// Fetch downloads and parses the page. Rows without a ticker cell are
// skipped; an empty table is an error since it usually means the page layout
// changed.
func (s *Scraper) Fetch(ctx context.Context) ([]Listing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listings request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listings page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching listings page", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listings page: %w", err)
	}

	listings := parseTable(doc, s.exchange)
	if len(listings) == 0 {
		return nil, fmt.Errorf("no listings found at %s, page layout may have changed", s.pageURL)
	}
	s.log.Info().Int("count", len(listings)).Msg("scraped listings")
	return listings, nil
}

func parseTable(doc *goquery.Document, exchange string) []Listing {
	var listings []Listing
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		ticker := strings.ToUpper(strings.TrimSpace(cells.Eq(0).Text()))
		name := strings.TrimSpace(cells.Eq(1).Text())
		if ticker == "" {
			return
		}
		listings = append(listings, Listing{Ticker: ticker, Name: name, Exchange: exchange})
	})
	return listings
}

// Refresh scrapes and upserts every listing, returning how many rows were
// written. A failed upsert aborts the refresh; partial syncs would leave the
// table inconsistent with the exchange.
func (s *Scraper) Refresh(ctx context.Context, writer SecurityWriter) (int, error) {
	listings, err := s.Fetch(ctx)
	if err != nil {
		return 0, err
	}

	for i, l := range listings {
		if _, err := writer.Upsert(ctx, l.Ticker, l.Name, l.Exchange); err != nil {
			return i, fmt.Errorf("failed to upsert listing %s: %w", l.Ticker, err)
		}
	}
	return len(listings), nil
}
