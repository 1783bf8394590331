package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ChatMessage is one message of a chat-completions request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat selects text or JSON output on endpoints that support it.
type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the chat-completions request body.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream"`
}

// ChatResponse is the subset of the chat-completions response we read.
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

type Choice struct {
	FinishReason string      `json:"finish_reason"`
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
}

type Usage struct {
	CompletionTokens int `json:"completion_tokens"`
	PromptTokens     int `json:"prompt_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

const systemPrompt = "You are a precise engineering triage assistant. Answer with the requested JSON only."

// OpenAIClient implements Client for any OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	config     *Config
}

// NewOpenAIClient creates a client for config.BaseURL. A nil httpClient uses
// http.DefaultClient; per-call deadlines come from the context.
func NewOpenAIClient(config *Config, apiKey string, httpClient *http.Client) (*OpenAIClient, error) {
	if config == nil || config.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIClient{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		token:      apiKey,
		httpClient: httpClient,
		config:     config,
	}, nil
}

// GenerateContent posts a single-turn chat completion and returns the first choice's content
func (c *OpenAIClient) GenerateContent(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	modelName := c.config.Model(opts.Tier)
	if modelName == "" {
		return "", &UnavailableError{Provider: ProviderOpenAI, Message: fmt.Sprintf("no model configured for tier %s", opts.Tier)}
	}

	reqBody := ChatRequest{
		Model: modelName,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: opts.Temperature,
	}
	if opts.JSON {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuthHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UnavailableError{Provider: ProviderOpenAI, Message: "failed to send request", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &UnavailableError{Provider: ProviderOpenAI, Message: "request rejected", Cause: handleAPIError(resp)}
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &UnavailableError{Provider: ProviderOpenAI, Message: "failed to decode response", Cause: err}
	}

	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", &UnavailableError{Provider: ProviderOpenAI, Message: "empty response"}
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// GetModel returns the model name for a tier
func (c *OpenAIClient) GetModel(tier ModelTier) string {
	return c.config.Model(tier)
}

// Close is a no-op; the HTTP client is shared.
func (c *OpenAIClient) Close() error {
	return nil
}

func (c *OpenAIClient) setAuthHeaders(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
}

func handleAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Body:       string(body),
	}
}
