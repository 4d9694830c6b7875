package retrieval

import (
	"context"
	"fmt"
	"strings"

	"disclosure_pipeline/pkg/core/llm"
)

const answerSystemPrompt = "You are an expert financial document analyst. " +
	"Answer using only the provided document excerpts. You give very detailed " +
	"answers and focus on finding unusual information. Always write in english."

// Engine answers free-text questions against one document's index: it embeds
// the question, retrieves the most similar chunks and asks the completion
// provider to answer from them.
type Engine struct {
	index    *Index
	embedder llm.Embedder
	provider llm.Provider
	topK     int
}

// NewEngine wires an index to the models that query it. topK <= 0 selects
// DefaultTopK.
func NewEngine(index *Index, embedder llm.Embedder, provider llm.Provider, topK int) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Engine{index: index, embedder: embedder, provider: provider, topK: topK}
}

// Query returns the provider's free-text answer to question, grounded in the
// retrieved chunks.
func (e *Engine) Query(ctx context.Context, question string) (string, error) {
	vectors, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return "", fmt.Errorf("expected one query embedding, got %d", len(vectors))
	}

	excerpts := e.index.Search(vectors[0], e.topK)

	var sb strings.Builder
	sb.WriteString("Document excerpts:\n\n")
	for i, chunk := range excerpts {
		fmt.Fprintf(&sb, "[Excerpt %d]\n%s\n\n", i+1, chunk)
	}
	sb.WriteString("Question:\n")
	sb.WriteString(question)

	answer, err := e.provider.GenerateResponse(ctx, sb.String(), answerSystemPrompt, nil)
	if err != nil {
		return "", fmt.Errorf("retrieval query failed: %w", err)
	}
	return answer, nil
}
