// Package llm provides the reasoning-oracle clients used by the triage pipeline.
// Providers are interchangeable behind Client; callers choose a model tier and a
// sampling temperature per request and must treat every response as untrusted text.
package llm

import "time"

// ModelTier names how much reasoning a request needs.
type ModelTier string

const (
	// TierLite is for short structured extraction: skill lists, commit summaries
	TierLite ModelTier = "lite"
	// TierStandard is for judgement calls: duplicate checks, profile updates
	TierStandard ModelTier = "standard"
	// TierAdvanced is for the candidate validation and requisition drafting
	TierAdvanced ModelTier = "advanced"
)

// Provider identifies the oracle backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	// ProviderOpenAI is any OpenAI-compatible chat-completions endpoint
	ProviderOpenAI Provider = "openai"
)

// DefaultTimeout bounds a single oracle call when no timeout is configured.
const DefaultTimeout = 60 * time.Second

// Tiers holds one model name per tier. Empty entries fall back to Standard,
// then Lite.
type Tiers struct {
	Lite     string
	Standard string
	Advanced string
}

// All returns Tiers that use model everywhere.
func All(model string) Tiers {
	return Tiers{Lite: model, Standard: model, Advanced: model}
}

func (t Tiers) pick(tier ModelTier) string {
	var model string
	switch tier {
	case TierLite:
		model = t.Lite
	case TierStandard:
		model = t.Standard
	case TierAdvanced:
		model = t.Advanced
	}
	for _, candidate := range []string{model, t.Standard, t.Lite} {
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

// Config selects the oracle backend and its models.
type Config struct {
	Provider Provider
	Models   Tiers
	// BaseURL is only used by OpenAI-compatible providers.
	BaseURL string
	// Timeout bounds each call; zero means DefaultTimeout.
	Timeout time.Duration
}

// Model returns the provider model for tier, or "" when none is configured.
func (c *Config) Model(tier ModelTier) string {
	return c.Models.pick(tier)
}

// GeminiConfig targets Google Gemini. A non-empty model replaces the
// per-tier defaults.
func GeminiConfig(model string) *Config {
	models := Tiers{
		Lite:     "gemini-2.5-flash-lite",
		Standard: "gemini-2.5-flash",
		Advanced: "gemini-2.5-pro",
	}
	if model != "" {
		models = All(model)
	}
	return &Config{Provider: ProviderGemini, Models: models, Timeout: DefaultTimeout}
}

// OpenAIConfig targets an OpenAI-compatible endpoint; one model serves every tier.
func OpenAIConfig(baseURL, model string) *Config {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Config{
		Provider: ProviderOpenAI,
		Models:   All(model),
		BaseURL:  baseURL,
		Timeout:  DefaultTimeout,
	}
}
