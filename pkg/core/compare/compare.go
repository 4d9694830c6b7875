// Package compare classifies how a security's disclosed risks changed
// between two consecutive reporting periods. Each period's filing gets its
// own retrieval pass producing a risk-only summary; the comparison prompt
// works on those summaries rather than the full analyses, which keeps the
// model focused on risk deltas.
package compare

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"disclosure_pipeline/pkg/core/document"
	"disclosure_pipeline/pkg/core/llm"
	"disclosure_pipeline/pkg/core/retrieval"
	"disclosure_pipeline/pkg/jsonutil"
)

// RiskChange names one risk and describes it (or how it changed).
type RiskChange struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RiskComparison buckets the differences between two periods' risk sets.
type RiskComparison struct {
	NewRisks      []RiskChange `json:"new_risks"`
	RemovedRisks  []RiskChange `json:"removed_risks"`
	ModifiedRisks []RiskChange `json:"modified_risks"`
}

const riskSummaryQuery = `
Extract and list all risks mentioned in the document comprehensively.
Include risk factors, business risks, market risks, operational risks,
financial risks, regulatory risks, and reputational risks.
Provide detailed descriptions for each risk, include names, numbers and
percentages, including context and potential impact.
Text might be in spanish, but you write in english.`

const comparisonSystemPrompt = "You are an expert in financial analysis, " +
	"providing detailed risk assessments. You respond with a single JSON object."

func comparisonPrompt(risksA, risksB string) string {
	return fmt.Sprintf(`Compare these two sets of risks and categorize the changes:

First period risks:
%s

Second period risks:
%s

Provide analysis in english as JSON with the fields new_risks, removed_risks
and modified_risks, each an array of {name, description}:
- new_risks: risks that appear only in the second period. Describe them in detail.
- removed_risks: risks that only appeared in the first period. Describe them in detail.
- modified_risks: risks present in both periods whose description changed. Describe the changes in detail.
Ensure that all changes are captured comprehensively, and provide sufficient
context for each change. We do not care about languages only the meaning.
Be specific about numbers and specific details. Instead of general phrases
such as "In the second period, there is a more detailed description of credit
risk" say what the new description is.`, risksA, risksB)
}

// Config tunes the comparator.
type Config struct {
	ChunkSize int
	TopK      int
}

// Comparator compares two filings' risk disclosures.
type Comparator struct {
	provider llm.Provider
	embedder llm.Embedder
	cfg      Config
	log      zerolog.Logger
}

// New creates a Comparator.
func New(provider llm.Provider, embedder llm.Embedder, cfg Config, log zerolog.Logger) *Comparator {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = document.DefaultChunkSize
	}
	return &Comparator{
		provider: provider,
		embedder: embedder,
		cfg:      cfg,
		log:      log.With().Str("component", "comparator").Logger(),
	}
}

// Compare summarizes each document's risks independently, then asks the model
// to bucket the differences. A nil result with an error means the pair must
// be skipped; the caller decides whether that aborts anything (it should
// not abort a batch).
func (c *Comparator) Compare(ctx context.Context, pathEarlier, pathLater string) (*RiskComparison, error) {
	textEarlier, err := document.ExtractText(pathEarlier)
	if err != nil {
		return nil, err
	}
	textLater, err := document.ExtractText(pathLater)
	if err != nil {
		return nil, err
	}
	return c.compareTexts(ctx, textEarlier, textLater)
}

// compareTexts runs the retrieval and comparison stages over already
// extracted text.
func (c *Comparator) compareTexts(ctx context.Context, textEarlier, textLater string) (*RiskComparison, error) {
	risksEarlier, err := c.riskSummary(ctx, textEarlier)
	if err != nil {
		return nil, err
	}
	risksLater, err := c.riskSummary(ctx, textLater)
	if err != nil {
		return nil, err
	}

	raw, err := c.provider.GenerateResponse(ctx, comparisonPrompt(risksEarlier, risksLater),
		comparisonSystemPrompt, map[string]interface{}{"response_format": "json_object"})
	if err != nil {
		return nil, fmt.Errorf("comparison call failed: %w", err)
	}

	var comparison RiskComparison
	if err := jsonutil.SmartParse(raw, &comparison); err != nil {
		return nil, fmt.Errorf("comparison output violates expected schema: %w", err)
	}
	return &comparison, nil
}

// riskSummary builds a fresh index over one document's text and runs the
// risk-only retrieval query.
func (c *Comparator) riskSummary(ctx context.Context, text string) (string, error) {
	chunks := document.Chunk(document.NormalizeWhitespace(text), c.cfg.ChunkSize)
	index, err := retrieval.BuildIndex(ctx, c.embedder, chunks)
	if err != nil {
		return "", fmt.Errorf("failed to index document: %w", err)
	}

	engine := retrieval.NewEngine(index, c.embedder, c.provider, c.cfg.TopK)
	summary, err := engine.Query(ctx, riskSummaryQuery)
	if err != nil {
		return "", fmt.Errorf("risk summary query: %w", err)
	}
	return summary, nil
}

// WriteResultsFile writes a human-readable report of one comparison, named
// "{ticker}_{p1}_to_{p2}_analysis.txt" under outputDir.
func WriteResultsFile(outputDir, ticker, periodA, periodB string, result *RiskComparison) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	var sb strings.Builder
	writeBucket := func(title string, changes []RiskChange) {
		sb.WriteString(title + ":\n")
		for _, ch := range changes {
			sb.WriteString(ch.Name + ": " + ch.Description + "\n")
		}
	}
	writeBucket("New Risks", result.NewRisks)
	writeBucket("Removed Risks", result.RemovedRisks)
	writeBucket("Modified Risks", result.ModifiedRisks)

	path := filepath.Join(outputDir, fmt.Sprintf("%s_%s_to_%s_analysis.txt", ticker, periodA, periodB))
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write results file: %w", err)
	}
	return path, nil
}
