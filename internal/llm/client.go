package llm

import (
	"context"
	"fmt"
)

// GenerateOptions controls a single oracle call.
type GenerateOptions struct {
	Tier        ModelTier
	Temperature float32
	// JSON asks the provider for a JSON response when it supports that mode.
	// Callers still parse leniently.
	JSON bool
}

// Client is an abstraction over LLM providers
type Client interface {
	// GenerateContent sends prompt to the model for opts.Tier and returns the raw text answer
	GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// GetModel returns the underlying provider model for a tier
	GetModel(tier ModelTier) string
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration. The returned client
// enforces config.Timeout on every call.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = GeminiConfig("")
	}

	var (
		client Client
		err    error
	)
	switch config.Provider {
	case ProviderGemini, "":
		client, err = NewGeminiClient(ctx, config, apiKey)
	case ProviderOpenAI:
		client, err = NewOpenAIClient(config, apiKey, nil)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", config.Provider)
	}
	if err != nil {
		return nil, err
	}
	return WithTimeout(client, config.Timeout), nil
}
