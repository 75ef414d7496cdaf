package embedder

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// Gemini generates embeddings via the Gemini API. Dimensionality is
// pinned so vectors always match the database schema.
type Gemini struct {
	client *genai.Client
	model  string
	dim    int32
}

func NewGemini(ctx context.Context, apiKey, model string, dim int) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Gemini{client: client, model: model, dim: int32(dim)}, nil
}

func (g *Gemini) embed(ctx context.Context, text, taskType string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: genai.Ptr(g.dim),
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Embeddings[0].Values, nil
}

// EmbedDocument embeds a stored chunk.
func (g *Gemini) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, taskDocument)
}

// EmbedQuery embeds a search query.
func (g *Gemini) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return g.embed(ctx, text, taskQuery)
}
