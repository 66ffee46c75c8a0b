package provider

import (
	"context"
	"sync"
)

// MockProvider is a scripted provider for tests. Responses and Errors are
// consumed in call order; a nil error slot falls through to the response.
type MockProvider struct {
	name string

	// Responses to return for each request
	CompletionResponses []*CompletionResponse
	Errors              []error

	// Hook, when set, replaces the scripted responses
	Hook func(ctx context.Context, request CompletionRequest) (*CompletionResponse, error)

	// Track calls
	CompletionCalls []CompletionRequest

	mu           sync.Mutex
	currentIndex int
}

// NewMockProvider creates a new mock provider
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{name: name}
}

// WithContent queues plain-text replies
func (m *MockProvider) WithContent(contents ...string) *MockProvider {
	for _, c := range contents {
		m.CompletionResponses = append(m.CompletionResponses, &CompletionResponse{
			Content:      c,
			FinishReason: "stop",
		})
	}
	return m
}

// Name implements Provider
func (m *MockProvider) Name() string {
	return m.name
}

// CreateCompletion implements Provider
func (m *MockProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	m.CompletionCalls = append(m.CompletionCalls, request)
	hook := m.Hook
	idx := m.currentIndex
	m.currentIndex++
	m.mu.Unlock()

	if hook != nil {
		return hook(ctx, request)
	}

	if idx < len(m.Errors) && m.Errors[idx] != nil {
		return nil, m.Errors[idx]
	}

	if idx < len(m.CompletionResponses) {
		return m.CompletionResponses[idx], nil
	}

	// Default response
	return &CompletionResponse{
		Content:      "Mock response",
		FinishReason: "stop",
		Usage: Usage{
			PromptTokens:     10,
			CompletionTokens: 5,
			TotalTokens:      15,
		},
	}, nil
}

// Calls returns a copy of the recorded requests
func (m *MockProvider) Calls() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.CompletionCalls...)
}

// Reset clears recorded calls and rewinds the script
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompletionCalls = nil
	m.currentIndex = 0
}
