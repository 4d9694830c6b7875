// Package prices fetches daily bars and quote snapshots from a Yahoo-style
// chart API. Responses carry nullable fields, so missing days stay nil
// instead of zero.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	userAgent      = "Mozilla/5.0 (compatible; disclosure-pipeline/1.0)"
)

// Bar is one trading day.
type Bar struct {
	Date   time.Time
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume int64
}

// Quote is the latest market snapshot for a ticker.
type Quote struct {
	Price     *float64
	MarketCap *float64
}

// RateLimitError marks an HTTP 429 so callers can back off differently from
// a plain failure.
type RateLimitError struct {
	Ticker string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (429) fetching %s", e.Ticker)
}

// Client talks to the market data API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "prices").Logger(),
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyBars fetches one bar per trading day in [from, to].
func (c *Client) DailyBars(ctx context.Context, ticker string, from, to time.Time) ([]Bar, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(ticker))
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Unix()))
	params.Set("interval", "1d")

	body, err := c.get(ctx, ticker, endpoint+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode chart response for %s: %w", ticker, err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("chart API error for %s: %s", ticker, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := resp.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		bar := Bar{Date: time.Unix(ts, 0).UTC().Truncate(24 * time.Hour)}
		if i < len(quote.Open) {
			bar.Open = quote.Open[i]
		}
		if i < len(quote.High) {
			bar.High = quote.High[i]
		}
		if i < len(quote.Low) {
			bar.Low = quote.Low[i]
		}
		if i < len(quote.Close) {
			bar.Close = quote.Close[i]
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}
		bars = append(bars, bar)
	}
	c.log.Debug().Str("ticker", ticker).Int("bars", len(bars)).Msg("fetched daily bars")
	return bars, nil
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			RegularMarketPrice *float64 `json:"regularMarketPrice"`
			MarketCap          *float64 `json:"marketCap"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// LatestQuote fetches the current price and market cap. Either field may be
// nil when the venue does not report it.
func (c *Client) LatestQuote(ctx context.Context, ticker string) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.baseURL, url.QueryEscape(ticker))

	body, err := c.get(ctx, ticker, endpoint)
	if err != nil {
		return nil, err
	}

	var resp quoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode quote response for %s: %w", ticker, err)
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return nil, nil
	}

	r := resp.QuoteResponse.Result[0]
	return &Quote{Price: r.RegularMarketPrice, MarketCap: r.MarketCap}, nil
}

func (c *Client) get(ctx context.Context, ticker, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", ticker, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed for %s: %w", ticker, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{Ticker: ticker}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, ticker)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response for %s: %w", ticker, err)
	}
	return body, nil
}
