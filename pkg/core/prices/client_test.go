package prices

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{
	"chart": {
		"result": [{
			"meta": {"regularMarketPrice": 152.5},
			"timestamp": [1704067200, 1704153600, 1704240000],
			"indicators": {
				"quote": [{
					"open":   [150.0, null, 153.0],
					"high":   [153.0, null, 155.0],
					"low":    [149.0, null, 151.0],
					"close":  [152.5, null, 154.0],
					"volume": [1000000, null, 1200000]
				}]
			}
		}],
		"error": null
	}
}`

func TestDailyBarsParsesNullableFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v8/finance/chart/ABC")
		w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	bars, err := client.DailyBars(context.Background(), "ABC", time.Unix(1704067200, 0), time.Unix(1704240000, 0))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	require.NotNil(t, bars[0].Close)
	assert.InDelta(t, 152.5, *bars[0].Close, 1e-9)
	assert.Equal(t, int64(1000000), bars[0].Volume)

	// Halted day keeps nils instead of zeros.
	assert.Nil(t, bars[1].Open)
	assert.Nil(t, bars[1].Close)
	assert.Zero(t, bars[1].Volume)
}

func TestDailyBarsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	_, err := client.DailyBars(context.Background(), "ABC", time.Now().AddDate(0, 0, -7), time.Now())
	require.Error(t, err)

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "ABC", rl.Ticker)
	assert.Contains(t, err.Error(), "429")
}

func TestLatestQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/v7/finance/quote")
		w.Write([]byte(`{"quoteResponse":{"result":[{"regularMarketPrice":42.0,"marketCap":9000000.0}]}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	quote, err := client.LatestQuote(context.Background(), "XYZ")
	require.NoError(t, err)
	require.NotNil(t, quote)
	require.NotNil(t, quote.Price)
	assert.InDelta(t, 42.0, *quote.Price, 1e-9)
	require.NotNil(t, quote.MarketCap)
	assert.InDelta(t, 9000000.0, *quote.MarketCap, 1e-9)
}

func TestLatestQuoteUnknownTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quoteResponse":{"result":[]}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, zerolog.Nop())
	quote, err := client.LatestQuote(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, quote)
}
