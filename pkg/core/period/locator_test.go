package period

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeStore(t *testing.T, folders map[string][]string) string {
	t.Helper()
	root := t.TempDir()
	for folder, files := range folders {
		dir := filepath.Join(root, folder)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for _, f := range files {
			require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("%PDF-1.4"), 0o644))
		}
	}
	return root
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("03-2023")
	require.NoError(t, err)
	assert.Equal(t, Period{Month: 3, Year: 2023}, p)
	assert.Equal(t, "03-2023", p.String())
	assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), p.Date())

	for _, bad := range []string{"01-2023", "13-2023", "3-2023", "2023-03", "notes", "03-23"} {
		_, err := ParsePeriod(bad)
		assert.Error(t, err, bad)
	}
}

func TestPeriodNext(t *testing.T) {
	assert.Equal(t, Period{Month: 6, Year: 2023}, Period{Month: 3, Year: 2023}.Next())
	assert.Equal(t, Period{Month: 3, Year: 2024}, Period{Month: 12, Year: 2023}.Next())
}

func TestListPeriodsSorted(t *testing.T) {
	root := makeStore(t, map[string][]string{
		"06-2023":  nil,
		"03-2023":  nil,
		"12-2022":  nil,
		"misc":     nil,
		"04-2023":  nil, // not a quarter-end month
		"processed_results": nil,
	})
	loc, err := NewLocator(root)
	require.NoError(t, err)

	periods, err := loc.ListPeriods()
	require.NoError(t, err)
	assert.Equal(t, []Period{
		{Month: 12, Year: 2022},
		{Month: 3, Year: 2023},
		{Month: 6, Year: 2023},
	}, periods)
}

func TestConsecutivePairsStopsAtGap(t *testing.T) {
	root := makeStore(t, map[string][]string{
		"03-2020": nil,
		"06-2020": nil,
		"09-2020": nil,
		// 12-2020 missing
		"03-2021": nil,
	})
	loc, err := NewLocator(root)
	require.NoError(t, err)

	pairs, err := loc.ConsecutivePairs()
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, Pair{Period{3, 2020}, Period{6, 2020}}, pairs[0])
	assert.Equal(t, Pair{Period{6, 2020}, Period{9, 2020}}, pairs[1])
	// The pair across the gap must not appear.
	for _, p := range pairs {
		assert.NotEqual(t, Period{3, 2021}, p.Later)
	}
}

func TestConsecutivePairsTooFewPeriods(t *testing.T) {
	root := makeStore(t, map[string][]string{"03-2023": nil})
	loc, err := NewLocator(root)
	require.NoError(t, err)

	pairs, err := loc.ConsecutivePairs()
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestFindFiling(t *testing.T) {
	root := makeStore(t, map[string][]string{
		"03-2023": {"Analisis_ABC_03-2023.pdf"},
	})
	loc, err := NewLocator(root)
	require.NoError(t, err)

	path, found, err := loc.FindFiling(Period{3, 2023}, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, filepath.Join(root, "03-2023", "Analisis_ABC_03-2023.pdf"), path)

	_, found, err = loc.FindFiling(Period{3, 2023}, "XYZ")
	require.NoError(t, err)
	assert.False(t, found, "missing filing is a skip, not an error")
}

func TestTickersInPeriod(t *testing.T) {
	root := makeStore(t, map[string][]string{
		"06-2023": {
			"Analisis_ZZZ_06-2023.pdf",
			"Analisis_ABC_06-2023.pdf",
			"Notes_ABC_06-2023.pdf", // wrong convention, ignored
		},
	})
	loc, err := NewLocator(root)
	require.NoError(t, err)

	tickers, err := loc.TickersInPeriod(Period{6, 2023})
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC", "ZZZ"}, tickers)

	none, err := loc.TickersInPeriod(Period{12, 2019})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFirstTickerAndOldestYear(t *testing.T) {
	root := makeStore(t, map[string][]string{
		"03-2022": {"Analisis_BBB_03-2022.pdf"},
		"06-2022": {"Analisis_AAA_06-2022.pdf"},
		"03-2023": {"Analisis_CCC_03-2023.pdf"},
	})
	loc, err := NewLocator(root)
	require.NoError(t, err)

	oldest, err := loc.OldestYearPeriods()
	require.NoError(t, err)
	assert.Equal(t, []Period{{3, 2022}, {6, 2022}}, oldest)

	ticker, found, err := loc.FirstTicker()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "BBB", ticker)
}

func TestNewLocatorMissingRoot(t *testing.T) {
	_, err := NewLocator(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
