package update

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosure_pipeline/pkg/core/ratios"
	"disclosure_pipeline/pkg/core/store"
)

type fakeRatioCalc struct {
	failFor map[int64]bool
	skipFor map[int64]bool
	calls   []int64
}

func (f *fakeRatioCalc) CalculateAndStore(ctx context.Context, securityID int64) (*ratios.RatioSnapshot, error) {
	f.calls = append(f.calls, securityID)
	if f.failFor[securityID] {
		return nil, errors.New("fundamentals table unreachable")
	}
	if f.skipFor[securityID] {
		return nil, nil
	}
	return &ratios.RatioSnapshot{SecurityID: securityID}, nil
}

func TestRatioBatchIsolatesFailures(t *testing.T) {
	lister := &fixedSecurities{list: []store.Security{
		{ID: 1, Ticker: "AAA"},
		{ID: 2, Ticker: "BBB"},
		{ID: 3, Ticker: "CCC"},
	}}
	calc := &fakeRatioCalc{failFor: map[int64]bool{2: true}}
	batch := NewRatioBatch(lister, calc, zerolog.Nop())

	stats, err := batch.Run(context.Background())
	require.NoError(t, err)

	// BBB's failure is recorded and the run carries on to CCC.
	assert.Equal(t, []int64{1, 2, 3}, calc.calls)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, []string{"BBB"}, stats.FailedItems)
}

func TestRatioBatchCountsSkips(t *testing.T) {
	lister := &fixedSecurities{list: []store.Security{
		{ID: 1, Ticker: "AAA"},
		{ID: 2, Ticker: "BBB"},
	}}
	calc := &fakeRatioCalc{skipFor: map[int64]bool{1: true}}
	batch := NewRatioBatch(lister, calc, zerolog.Nop())

	stats, err := batch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, stats.Failed)
}
