// Package llmtest provides a scriptable llm.Client for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/jonathan/taskmatch/internal/llm"
)

// Call records one GenerateContent invocation.
type Call struct {
	Prompt string
	Opts   llm.GenerateOptions
}

// MockClient implements llm.Client for testing. It is safe for concurrent use.
type MockClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error)
	GetModelFunc        func(tier llm.ModelTier) string
	CloseFunc           func() error

	mu    sync.Mutex
	calls []Call
}

// Respond returns a mock that answers every call with text.
func Respond(text string) *MockClient {
	return &MockClient{
		GenerateContentFunc: func(context.Context, string, llm.GenerateOptions) (string, error) {
			return text, nil
		},
	}
}

// Fail returns a mock whose every call fails with err.
func Fail(err error) *MockClient {
	return &MockClient{
		GenerateContentFunc: func(context.Context, string, llm.GenerateOptions) (string, error) {
			return "", err
		},
	}
}

func (m *MockClient) GenerateContent(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Prompt: prompt, Opts: opts})
	m.mu.Unlock()

	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, opts)
	}
	return "", nil
}

func (m *MockClient) GetModel(tier llm.ModelTier) string {
	if m.GetModelFunc != nil {
		return m.GetModelFunc(tier)
	}
	return "mock-model"
}

func (m *MockClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount returns how many times GenerateContent ran.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var _ llm.Client = (*MockClient)(nil)
