package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var errEmptyAnswer = errors.New("gemini returned no text")

// GeminiClient answers oracle prompts with Google Gemini.
type GeminiClient struct {
	sdk    *genai.Client
	config *Config
}

// NewGeminiClient dials Gemini with apiKey.
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{sdk: sdk, config: config}, nil
}

// GenerateContent sends one prompt as a single-turn request.
func (c *GeminiClient) GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	name := c.config.Model(opts.Tier)
	if name == "" {
		return "", &UnavailableError{Provider: ProviderGemini, Message: fmt.Sprintf("no model configured for tier %s", opts.Tier)}
	}

	model := c.sdk.GenerativeModel(name)
	model.SetTemperature(opts.Temperature)
	model.SetCandidateCount(1)
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &UnavailableError{Provider: ProviderGemini, Message: "request failed", Cause: err}
	}
	answer := answerText(resp)
	if answer == "" {
		return "", &UnavailableError{Provider: ProviderGemini, Message: "unusable response", Cause: errEmptyAnswer}
	}
	return answer, nil
}

func (c *GeminiClient) GetModel(tier ModelTier) string {
	return c.config.Model(tier)
}

func (c *GeminiClient) Close() error {
	if c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}

// answerText concatenates the text parts of the first candidate.
func answerText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
