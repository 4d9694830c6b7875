// Package analyzer extracts a structured FinancialAnalysis from a filing PDF
// using a retrieval-augmented pipeline: index the document, answer five fixed
// topic queries against it, then consolidate the answers into the typed shape
// with one structured-output call.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"disclosure_pipeline/pkg/core/document"
	"disclosure_pipeline/pkg/core/llm"
	"disclosure_pipeline/pkg/core/retrieval"
	"disclosure_pipeline/pkg/jsonutil"
)

// AnalysisError reports a document whose analysis failed (indexing, retrieval
// or completion). The document is skipped; batch-level retries are the update
// manager's concern, not this package's.
type AnalysisError struct {
	Path string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed for %s: %v", e.Path, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// SchemaError reports model output that does not conform to the expected
// structured shape. There is no partial acceptance beyond the optional
// metrics object.
type SchemaError struct {
	Path string
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("model output for %s violates expected schema: %v", e.Path, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Config tunes the analyzer.
type Config struct {
	ChunkSize int // Characters per indexed chunk; 0 selects the default
	TopK      int // Retrieved chunks per topic query; 0 selects the default
}

// Analyzer runs the retrieval-augmented extraction for single documents.
type Analyzer struct {
	provider llm.Provider
	embedder llm.Embedder
	cfg      Config
	log      zerolog.Logger
}

// New creates an Analyzer. The provider answers queries and the consolidation
// call; the embedder powers the per-document index.
func New(provider llm.Provider, embedder llm.Embedder, cfg Config, log zerolog.Logger) *Analyzer {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = document.DefaultChunkSize
	}
	return &Analyzer{
		provider: provider,
		embedder: embedder,
		cfg:      cfg,
		log:      log.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze extracts a FinancialAnalysis from the PDF at path.
//
// The consolidated business overview is deliberately replaced with the raw
// retrieval answer for that topic: the consolidation model tends to
// over-summarize, and the retrieval answer preserves detail.
func (a *Analyzer) Analyze(ctx context.Context, path string) (*FinancialAnalysis, error) {
	text, err := document.ExtractText(path)
	if err != nil {
		return nil, err
	}
	return a.analyzeText(ctx, path, text)
}

// analyzeText runs the retrieval and consolidation stages over already
// extracted text. Split out so the pipeline is testable without real PDFs.
func (a *Analyzer) analyzeText(ctx context.Context, path, text string) (*FinancialAnalysis, error) {
	chunks := document.Chunk(document.NormalizeWhitespace(text), a.cfg.ChunkSize)
	index, err := retrieval.BuildIndex(ctx, a.embedder, chunks)
	if err != nil {
		return nil, &AnalysisError{Path: path, Err: err}
	}
	engine := retrieval.NewEngine(index, a.embedder, a.provider, a.cfg.TopK)

	a.log.Debug().Str("path", path).Int("chunks", index.Len()).Msg("Document indexed")

	answers := make(map[Topic]string, len(topicOrder))
	var combined strings.Builder
	for _, topic := range topicOrder {
		answer, err := engine.Query(ctx, topicQueries[topic])
		if err != nil {
			return nil, &AnalysisError{Path: path, Err: fmt.Errorf("topic %s: %w", topic, err)}
		}
		answers[topic] = answer
		combined.WriteString(answer)
		combined.WriteString(" - ")
	}

	raw, err := a.provider.GenerateResponse(ctx, consolidationPrompt(combined.String()),
		consolidationSystemPrompt, map[string]interface{}{"response_format": "json_object"})
	if err != nil {
		return nil, &AnalysisError{Path: path, Err: fmt.Errorf("consolidation call: %w", err)}
	}

	var analysis FinancialAnalysis
	if err := jsonutil.SmartParse(raw, &analysis); err != nil {
		return nil, &SchemaError{Path: path, Err: err}
	}
	if analysis.Risks == nil && analysis.HistoricalChanges == nil && analysis.FutureOutlook == nil {
		return nil, &SchemaError{Path: path, Err: fmt.Errorf("response carries none of the expected list fields")}
	}

	// Keep the retrieval answer over the consolidated overview.
	analysis.BusinessOverview = answers[TopicBusinessOverview]

	if analysis.Metrics == nil {
		a.log.Info().Str("path", path).Msg("Metrics missing from filing")
	}

	return &analysis, nil
}
