// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/slide-engine/internal/httputil"
	"github.com/pdiddy/slide-engine/pkg/types"
)

// chatCompletions is the part of the OpenAI client the backend uses.
type chatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAIBackend calls an OpenAI-compatible chat completions endpoint. Setting
// BaseURL points it at any compatible server.
type OpenAIBackend struct {
	completions chatCompletions
}

// NewOpenAIBackend returns a backend for cfg.BaseURL, or the OpenAI API when
// no base URL is set.
func NewOpenAIBackend(cfg types.ModelConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai API key not set")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIBackend{completions: &client.Chat.Completions}, nil
}

// Name implements Backend.
func (o *OpenAIBackend) Name() string { return string(types.ProviderOpenAI) }

// Generate implements Backend. Top-k has no chat completions equivalent and
// is not sent.
func (o *OpenAIBackend) Generate(ctx context.Context, prompt string, p types.ModelParams) (string, error) {
	resp, err := o.completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.ModelID,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(int64(p.MaxTokens)),
		Temperature: openai.Float(p.Temperature),
		TopP:        openai.Float(p.TopP),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && httputil.Throttled(apiErr.StatusCode) {
			return "", fmt.Errorf("%w: %v", ErrThrottled, err)
		}
		return "", fmt.Errorf("calling chat completions: %w", err)
	}
	return completionText(resp)
}

func completionText(resp *openai.ChatCompletion) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}
	text := resp.Choices[0].Message.Content
	if text == "" {
		return "", fmt.Errorf("%w: empty message content", ErrMalformedResponse)
	}
	return text, nil
}
