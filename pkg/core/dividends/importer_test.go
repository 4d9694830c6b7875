package dividends

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type memoryEvents struct {
	events []Event
	ids    []int64
}

func (w *memoryEvents) Upsert(ctx context.Context, securityID int64, exDate time.Time, amount float64) error {
	w.events = append(w.events, Event{ExDate: exDate, Amount: amount})
	w.ids = append(w.ids, securityID)
	return nil
}

func newTestImporter(ids map[string]int64) (*Importer, *memoryEvents) {
	writer := &memoryEvents{}
	return NewImporter(&fixedResolver{ids: ids}, writer, zerolog.Nop()), writer
}

func TestImportWithHeaderAndBadRows(t *testing.T) {
	csvData := strings.Join([]string{
		"ticker,ex_date,amount",
		"ABC,2024-03-15,1.25",
		"abc,2024-06-14,1.30",
		"ABC,not-a-date,1.00",
		"ABC,2024-09-13,-2.00",
		"XYZ,2024-09-13,0.50",
	}, "\n")

	importer, writer := newTestImporter(map[string]int64{"ABC": 7})
	stats, err := importer.Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)

	// Two good ABC rows; bad date, negative amount and unknown XYZ skipped.
	assert.Equal(t, 2, stats.Imported)
	assert.Equal(t, 3, stats.Skipped)
	require.Len(t, writer.events, 2)
	assert.Equal(t, int64(7), writer.ids[0])
	assert.InDelta(t, 1.25, writer.events[0].Amount, 1e-9)
	assert.Equal(t, "2024-03-15", writer.events[0].ExDate.Format("2006-01-02"))
}

func TestImportNoHeader(t *testing.T) {
	importer, writer := newTestImporter(map[string]int64{"ABC": 1})
	stats, err := importer.Import(context.Background(), strings.NewReader("ABC,2024-01-10,0.75\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Imported)
	assert.Zero(t, stats.Skipped)
	require.Len(t, writer.events, 1)
}

func TestImportEmptyInput(t *testing.T) {
	importer, writer := newTestImporter(nil)
	stats, err := importer.Import(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, stats.Imported)
	assert.Empty(t, writer.events)
}
