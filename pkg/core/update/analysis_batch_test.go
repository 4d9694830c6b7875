package update

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disclosure_pipeline/pkg/core/analyzer"
	"disclosure_pipeline/pkg/core/period"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	analyzed []string
	failPath string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, path string) (*analyzer.FinancialAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPath != "" && filepath.Base(path) == f.failPath {
		return nil, errors.New("analysis blew up")
	}
	f.analyzed = append(f.analyzed, filepath.Base(path))
	return &analyzer.FinancialAnalysis{BusinessOverview: "ok"}, nil
}

type memorySink struct {
	mu    sync.Mutex
	saved map[string]*analyzer.FinancialAnalysis
}

func newMemorySink() *memorySink {
	return &memorySink{saved: make(map[string]*analyzer.FinancialAnalysis)}
}

func (s *memorySink) key(ticker, periodName string) string { return ticker + "/" + periodName }

func (s *memorySink) Exists(ctx context.Context, ticker, periodName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.saved[s.key(ticker, periodName)]
	return ok, nil
}

func (s *memorySink) Save(ctx context.Context, ticker, periodName string, result *analyzer.FinancialAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[s.key(ticker, periodName)] = result
	return nil
}

func writeFiling(t *testing.T, root, periodName, ticker string) {
	t.Helper()
	dir := filepath.Join(root, periodName)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	name := "Analisis_" + ticker + "_" + periodName + ".pdf"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF-1.4"), 0o644))
}

func newBatchFixture(t *testing.T) (*AnalysisBatch, *fakeAnalyzer, *memorySink) {
	t.Helper()
	root := t.TempDir()
	writeFiling(t, root, "03-2023", "AAA")
	writeFiling(t, root, "03-2023", "BBB")
	writeFiling(t, root, "06-2023", "AAA")

	locator, err := period.NewLocator(root)
	require.NoError(t, err)

	fa := &fakeAnalyzer{}
	sink := newMemorySink()
	batch := NewAnalysisBatch(locator, fa, sink, instantRetrier(RetryPolicy{MaxAttempts: 1}), zerolog.Nop())
	return batch, fa, sink
}

func TestAnalysisBatchProcessesAllFilings(t *testing.T) {
	batch, fa, sink := newBatchFixture(t)

	stats, err := batch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRecords)
	assert.Equal(t, 3, stats.Processed)
	assert.Zero(t, stats.Failed)
	assert.Len(t, fa.analyzed, 3)
	assert.Len(t, sink.saved, 3)
}

func TestAnalysisBatchSkipsExistingResults(t *testing.T) {
	batch, fa, sink := newBatchFixture(t)
	require.NoError(t, sink.Save(context.Background(), "AAA", "03-2023", &analyzer.FinancialAnalysis{}))

	stats, err := batch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Skipped)
	assert.NotContains(t, fa.analyzed, "Analisis_AAA_03-2023.pdf")
}

func TestAnalysisBatchIsolatesFailures(t *testing.T) {
	batch, fa, sink := newBatchFixture(t)
	fa.failPath = "Analisis_BBB_03-2023.pdf"

	stats, err := batch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Len(t, sink.saved, 2)
}

func TestAnalysisBatchAbortDecision(t *testing.T) {
	batch, fa, _ := newBatchFixture(t)
	fa.failPath = "Analisis_AAA_03-2023.pdf"
	batch.OnExhausted = func(ticker string, err error) Decision { return Abort }

	_, err := batch.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "aborted at AAA")
}

func TestAnalysisBatchDryRun(t *testing.T) {
	batch, fa, sink := newBatchFixture(t)
	batch.DryRun = true

	stats, err := batch.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Empty(t, fa.analyzed)
	assert.Empty(t, sink.saved)
}

func TestFileSinkRoundTrip(t *testing.T) {
	root := t.TempDir()
	sink := &FileSink{Root: root}
	ctx := context.Background()

	exists, err := sink.Exists(ctx, "AAA", "03-2023")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, sink.Save(ctx, "AAA", "03-2023", &analyzer.FinancialAnalysis{BusinessOverview: "x"}))

	exists, err = sink.Exists(ctx, "AAA", "03-2023")
	require.NoError(t, err)
	assert.True(t, exists)
}
