package fundamentals

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosure_pipeline/pkg/core/ratios"
)

type fixedResolver struct {
	ids map[string]int64
}

func (r *fixedResolver) ResolveTicker(ctx context.Context, ticker string) (*int64, error) {
	id, ok := r.ids[ticker]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

type memoryWriter struct {
	rows []*ratios.Fundamentals
}

func (w *memoryWriter) Upsert(ctx context.Context, f *ratios.Fundamentals) error {
	w.rows = append(w.rows, f)
	return nil
}

func TestImportPreservesNulls(t *testing.T) {
	// Revenue present, net_profit empty, rest filled with 1s.
	row := "ABC,2024-03-31,1000,,50,2,400,60,10,5,2000,5000,3000,1500,1000,500,200"
	writer := &memoryWriter{}
	importer := NewImporter(&fixedResolver{ids: map[string]int64{"ABC": 3}}, writer, zerolog.Nop())

	stats, err := importer.Import(context.Background(), strings.NewReader(row))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
	require.Len(t, writer.rows, 1)

	f := writer.rows[0]
	assert.Equal(t, int64(3), f.SecurityID)
	assert.Equal(t, "2024-03-31", f.Date.Format("2006-01-02"))
	require.NotNil(t, f.Revenue)
	assert.InDelta(t, 1000.0, *f.Revenue, 1e-9)
	assert.Nil(t, f.NetProfit)
	require.NotNil(t, f.Cash)
	assert.InDelta(t, 200.0, *f.Cash, 1e-9)
}

func TestImportSkipsHeaderAndBadRows(t *testing.T) {
	csvData := strings.Join([]string{
		"ticker,date,revenue,net_profit,operating_profit,eps,cost_of_sales,ebit,depreciation,interest,equity,assets,liabilities,current_assets,current_liabilities,inventories,cash",
		"ABC,2024-03-31,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15",
		"ABC,2024-06-30,not-a-number,2,3,4,5,6,7,8,9,10,11,12,13,14,15",
		"ZZZ,2024-03-31,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15",
		"ABC,2024-09-30,1,2",
	}, "\n")
	writer := &memoryWriter{}
	importer := NewImporter(&fixedResolver{ids: map[string]int64{"ABC": 1}}, writer, zerolog.Nop())

	stats, err := importer.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
	assert.Equal(t, 3, stats.Skipped)
}
