// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/slide-engine/internal/httputil"
	"github.com/pdiddy/slide-engine/pkg/types"
)

// anthropicAPIURL is the Messages API endpoint. Package-level var for test
// substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

// AnthropicBackend calls the Anthropic Messages API over HTTP.
type AnthropicBackend struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// NewAnthropicBackend returns a backend authenticated with cfg.APIKey.
func NewAnthropicBackend(cfg types.ModelConfig) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key not set")
	}
	return &AnthropicBackend{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL}, nil
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	TopP        float64            `json:"top_p"`
	TopK        int                `json:"top_k,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Name implements Backend.
func (a *AnthropicBackend) Name() string { return string(types.ProviderAnthropic) }

// Generate implements Backend.
func (a *AnthropicBackend) Generate(ctx context.Context, prompt string, p types.ModelParams) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:       p.ModelID,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
		TopK:        p.TopK,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := anthropicAPIURL
	if a.BaseURL != "" {
		url = a.BaseURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	// Single attempt; the Client owns retries.
	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		if httputil.Throttled(resp.StatusCode) {
			return "", fmt.Errorf("%w: Anthropic API returned %d: %s", ErrThrottled, resp.StatusCode, msg)
		}
		return "", fmt.Errorf("Anthropic API returned %d: %s", resp.StatusCode, msg)
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return "", fmt.Errorf("%w: decoding Anthropic response: %v", ErrMalformedResponse, err)
	}
	for _, block := range aResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("%w: no text content in Anthropic response", ErrMalformedResponse)
}
