package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel    = "gemini-2.0-flash"
	defaultEmbeddingModel = "text-embedding-004"
)

// GeminiProvider implements Provider and Embedder using Google's GenAI SDK.
type GeminiProvider struct {
	APIKey         string // Falls back to GEMINI_API_KEY when empty
	Model          string // e.g. "gemini-2.0-flash"
	EmbeddingModel string // e.g. "text-embedding-004"
}

var (
	_ Provider = (*GeminiProvider)(nil)
	_ Embedder = (*GeminiProvider)(nil)
)

func (p *GeminiProvider) client(ctx context.Context) (*genai.Client, error) {
	apiKey := p.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured (set GEMINI_API_KEY)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// GenerateResponse sends a generateContent request to the Gemini API.
// Pass options["response_format"] = "json_object" to enable JSON mode.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}

	model := p.Model
	if model == "" {
		model = defaultGeminiModel
	}
	if val, ok := options["model"].(string); ok && val != "" {
		model = val
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.1)),
	}
	if val, ok := options["response_format"].(string); ok && val == "json_object" {
		config.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	return result.Text(), nil
}

// EmbedTexts returns one embedding vector per input text, in input order.
func (p *GeminiProvider) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	model := p.EmbeddingModel
	if model == "" {
		model = defaultEmbeddingModel
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: t}},
		})
	}

	result, err := client.Models.EmbedContent(ctx, model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d texts", len(result.Embeddings), len(texts))
	}

	vectors := make([][]float64, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		vec := make([]float64, len(emb.Values))
		for j, v := range emb.Values {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
