package provider

import (
	"context"
	"errors"
	"time"

	openai_provider "github.com/nichefinder/nichefinder/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
)

// Provider is the interface that all LLM implementations must satisfy.
type Provider interface {
	// CompleteJSON sends a prompt pair and returns the raw model output,
	// with the provider constrained to emit a single JSON object.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Options configures a provider constructed by NewProvider.
type Options struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// NewProvider creates a new LLM client based on the provided configuration.
func NewProvider(client Client, opts Options) (Provider, error) {
	switch client {
	case OpenAI:
		if opts.APIKey == "" {
			return nil, errors.New("openai api key not set")
		}
		if opts.Model == "" {
			opts.Model = "gpt-4o-mini"
		}
		if opts.Timeout <= 0 {
			opts.Timeout = 60 * time.Second
		}
		return openai_provider.NewClient(opts.APIKey, opts.Model, opts.Temperature, opts.MaxTokens, opts.Timeout), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
