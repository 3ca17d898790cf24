// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/pdiddy/slide-engine/pkg/types"
)

// geminiModels is the part of the genai client the backend uses.
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiBackend calls the Gemini API through the genai SDK.
type GeminiBackend struct {
	models geminiModels
}

// NewGeminiBackend creates a genai client for the Gemini API.
func NewGeminiBackend(ctx context.Context, cfg types.ModelConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key not set")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiBackend{models: client.Models}, nil
}

// Name implements Backend.
func (g *GeminiBackend) Name() string { return string(types.ProviderGemini) }

// Generate implements Backend.
func (g *GeminiBackend) Generate(ctx context.Context, prompt string, p types.ModelParams) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(p.Temperature)),
		TopP:            genai.Ptr(float32(p.TopP)),
		MaxOutputTokens: int32(p.MaxTokens),
	}
	if p.TopK > 0 {
		gc.TopK = genai.Ptr(float32(p.TopK))
	}

	resp, err := g.models.GenerateContent(ctx, p.ModelID, genai.Text(prompt), gc)
	if err != nil {
		return "", fmt.Errorf("calling Gemini API: %w", err)
	}
	return geminiText(resp)
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	switch {
	case resp == nil:
		return "", fmt.Errorf("%w: nil response", ErrMalformedResponse)
	case len(resp.Candidates) == 0:
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return "", fmt.Errorf("%w: content blocked by safety filters", ErrMalformedResponse)
	case resp.Candidates[0].Content == nil:
		return "", fmt.Errorf("%w: empty candidate content", ErrMalformedResponse)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no text parts", ErrMalformedResponse)
	}
	return b.String(), nil
}
