// Package retrieval builds a per-document semantic index and answers topic
// questions against it. One index is built per filing; chunks are embedded
// once and queried many times.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"disclosure_pipeline/pkg/core/llm"
)

// DefaultTopK is how many chunks are retrieved per question.
const DefaultTopK = 5

// Index holds a document's chunks and their embedding vectors.
type Index struct {
	chunks     []string
	embeddings [][]float64
}

// BuildIndex embeds every chunk and returns the populated index.
func BuildIndex(ctx context.Context, embedder llm.Embedder, chunks []string) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("cannot index an empty document")
	}

	embeddings, err := embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	return &Index{chunks: chunks, embeddings: embeddings}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Search returns the topK chunks most similar to the query embedding,
// ordered by descending cosine similarity.
func (ix *Index) Search(queryEmbedding []float64, topK int) []string {
	if topK <= 0 {
		topK = DefaultTopK
	}

	type scored struct {
		idx   int
		score float64
	}
	results := make([]scored, 0, len(ix.chunks))
	for i, emb := range ix.embeddings {
		results = append(results, scored{idx: i, score: cosineSimilarity(queryEmbedding, emb)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })

	if topK > len(results) {
		topK = len(results)
	}
	out := make([]string, 0, topK)
	for _, r := range results[:topK] {
		out = append(out, ix.chunks[r.idx])
	}
	return out
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	dot := floats.Dot(a, b)
	normA := math.Sqrt(floats.Dot(a, a))
	normB := math.Sqrt(floats.Dot(b, b))
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (normA * normB)
}
