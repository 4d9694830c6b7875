// Package llm defines the language-model service boundary. The pipeline
// depends only on these contracts: a prompt in and a text answer out, plus an
// embedding call for retrieval. Provider selection is a configuration concern.
package llm

import (
	"context"
	"strings"
)

// Provider is the interface for all LLM completion providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// Embedder produces vector embeddings for text chunks. Providers that cannot
// embed (chat-only APIs) do not implement it; the analyzer requires one.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// IsRateLimit reports whether err looks like a provider throttling response.
// Both Gemini and OpenAI-compatible APIs surface 429s with this phrasing.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
