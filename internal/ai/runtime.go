package ai

import (
	"context"
	"time"
)

// Runtime is what the feature service needs from a model backend.
// *Client implements it; tests substitute fakes.
type Runtime interface {
	GenerateContent(ctx context.Context, model string, req GenerateContentRequest) (*GenerateContentResponse, error)
}

// RuntimeConfig mirrors the gemini_* config keys.
type RuntimeConfig struct {
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRuntime builds the Gemini REST client from cfg. Zero values take defaults.
func NewRuntime(cfg RuntimeConfig) *Client {
	return NewClient(cfg.APIKey,
		WithBaseURL(cfg.BaseURL),
		WithHTTPTimeout(cfg.HTTPTimeout),
		WithRetry(RetryPolicy{Attempts: cfg.RetryMax, BaseDelay: cfg.BaseDelay, MaxDelay: cfg.MaxDelay}),
	)
}
