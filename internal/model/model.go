// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package model sends slide prompts to a generative model and returns the
// generated text. A Client wraps one provider Backend with instruction
// formatting, per-call timeouts, pacing, and bounded retries.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pdiddy/slide-engine/pkg/types"
)

// ErrorMarker prefixes the text that stands in for a fragment when the
// model could not be invoked.
const ErrorMarker = "ERROR: "

var (
	// ErrInvocation wraps every failed model call.
	ErrInvocation = errors.New("model invocation failed")

	// ErrThrottled marks failures caused by provider rate limiting.
	ErrThrottled = errors.New("request throttled")

	// ErrMalformedResponse marks responses without a usable text segment.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrUnknownProvider is returned by New for an unsupported provider.
	ErrUnknownProvider = errors.New("unknown model provider")
)

// Backend talks to one model provider. Generate sends prompt as a single
// user turn with the given parameters and returns the first text segment
// of the response.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt string, p types.ModelParams) (string, error)
}

// Invoker is the model-facing dependency of the pipeline.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, p types.ModelParams) (string, error)
	Defaults() types.ModelParams
}

// backoffBase controls the base duration for exponential backoff between
// attempts. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// Client is an Invoker backed by a provider Backend.
type Client struct {
	backend    Backend
	format     types.InstructionFormat
	defaults   types.ModelParams
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
	log        *logrus.Logger
}

// NewClient wraps backend with the behavior configured in cfg.
func NewClient(backend Backend, cfg types.ModelConfig, log *logrus.Logger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Client{
		backend:    backend,
		format:     cfg.Format(),
		defaults:   withDefaults(cfg.ModelParams, types.DefaultModelParams()),
		timeout:    cfg.Timeout,
		maxRetries: max(cfg.MaxRetries, 0),
		log:        log,
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

// New builds the Backend selected by cfg.Provider and wraps it in a Client.
func New(ctx context.Context, cfg types.ModelConfig, log *logrus.Logger) (*Client, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Provider {
	case types.ProviderBedrock, "":
		backend, err = NewBedrockBackend(ctx, cfg)
	case types.ProviderAnthropic:
		backend, err = NewAnthropicBackend(cfg)
	case types.ProviderGemini:
		backend, err = NewGeminiBackend(ctx, cfg)
	case types.ProviderOpenAI:
		backend, err = NewOpenAIBackend(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s backend: %w", cfg.Provider, err)
	}
	return NewClient(backend, cfg, log), nil
}

// Defaults returns the parameters used for fields a caller leaves zero.
func (c *Client) Defaults() types.ModelParams { return c.defaults }

// Invoke wraps prompt in the configured instruction format and sends it.
// Zero fields of p take the client defaults. Throttled attempts are retried
// with the same prompt and parameters up to the configured bound; any other
// failure ends the call. The final error wraps ErrInvocation.
func (c *Client) Invoke(ctx context.Context, prompt string, p types.ModelParams) (string, error) {
	p = withDefaults(p, c.defaults)
	prompt = Wrap(c.format, prompt)

	log := c.log.WithFields(logrus.Fields{
		"provider": c.backend.Name(),
		"model":    p.ModelID,
	})

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			log.WithError(lastErr).WithField("attempt", attempt+1).Debugf("retrying in %v", backoff)
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", ErrInvocation, ctx.Err())
			case <-time.After(backoff):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("%w: waiting for rate limiter: %w", ErrInvocation, err)
			}
		}

		text, err := c.generate(ctx, prompt, p)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || !errors.Is(err, ErrThrottled) {
			break
		}
	}
	return "", fmt.Errorf("%w: %w", ErrInvocation, lastErr)
}

func (c *Client) generate(ctx context.Context, prompt string, p types.ModelParams) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.backend.Generate(ctx, prompt, p)
}

// FailureText renders the text recorded in place of a fragment when the
// model could not be invoked.
func FailureText(modelID string, err error) string {
	return fmt.Sprintf("%sCan't invoke '%s'. Reason: %v", ErrorMarker, modelID, err)
}

// IsFailureText reports whether text was produced by FailureText.
func IsFailureText(text string) bool {
	return strings.HasPrefix(text, ErrorMarker)
}

func withDefaults(p, d types.ModelParams) types.ModelParams {
	if p.ModelID == "" {
		p.ModelID = d.ModelID
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = d.MaxTokens
	}
	if p.TopP == 0 {
		p.TopP = d.TopP
	}
	if p.Temperature == 0 {
		p.Temperature = d.Temperature
	}
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	return p
}
