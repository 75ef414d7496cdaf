package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Generator wraps the Gemini API for answer generation.
type Generator struct {
	client      *genai.Client
	model       string
	temperature float32
}

func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &Generator{client: client, model: model, temperature: 0.4}, nil
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}
