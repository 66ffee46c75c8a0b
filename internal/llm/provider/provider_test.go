package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("boom"), 0},
		{"provider status", newStatusError("anthropic", 429, "slow", nil), 429},
		{"wrapped provider status", fmt.Errorf("complete: %w", newStatusError("anthropic", 404, "nope", nil)), 404},
		{"timeout code without status", NewProviderError("x", ErrorCodeTimeout, "late", nil), http.StatusGatewayTimeout},
		{"context deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"server error without status", NewProviderError("x", ErrorCodeServerError, "down", nil), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StatusOf(tt.err))
		})
	}
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, ErrorCodeAuthentication, codeForStatus(401))
	assert.Equal(t, ErrorCodeAuthentication, codeForStatus(403))
	assert.Equal(t, ErrorCodeRateLimit, codeForStatus(429))
	assert.Equal(t, ErrorCodeTooLarge, codeForStatus(413))
	assert.Equal(t, ErrorCodeInvalidRequest, codeForStatus(400))
	assert.Equal(t, ErrorCodeModelNotFound, codeForStatus(404))
	assert.Equal(t, ErrorCodeServerError, codeForStatus(503))
	assert.Equal(t, ErrorCodeUnknown, codeForStatus(302))

	assert.True(t, newStatusError("x", 503, "", nil).IsRetryable)
	assert.False(t, newStatusError("x", 400, "", nil).IsRetryable)
}

func TestTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pe := transportError(ctx, "anthropic", errors.New("connection refused"))
	assert.Equal(t, ErrorCodeServerError, pe.Code)
	assert.Equal(t, 0, pe.StatusCode)

	pe = transportError(context.Background(), "anthropic", fmt.Errorf("dial: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrorCodeTimeout, pe.Code)
	assert.Equal(t, http.StatusGatewayTimeout, pe.StatusCode)
}

func TestSplitSystem(t *testing.T) {
	system, rest := splitSystem([]Message{
		{Role: "system", Content: "a"},
		{Role: "user", Content: "q"},
		{Role: "system", Content: "b"},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{{Role: "user", Content: "q"}}, rest)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("mock", func(cfg Config) (Provider, error) {
		return NewMockProvider("mock"), nil
	})

	assert.True(t, r.Has("mock"))
	assert.False(t, r.Has("missing"))
	assert.Equal(t, []string{"mock"}, r.List())

	p, err := r.New("mock", Config{})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	_, err = r.New("missing", Config{})
	assert.Error(t, err)
}

func TestGlobalRegistry_BuiltinProviders(t *testing.T) {
	for _, name := range []string{"anthropic", "bedrock", "gemini", "openai"} {
		assert.True(t, Has(name), name)
	}
	assert.Subset(t, List(), []string{"anthropic", "bedrock", "gemini", "openai"})
}

func TestGeminiProvider_ParseResponse(t *testing.T) {
	p := &GeminiProvider{model: geminiDefaultModel}

	resp, err := p.parseResponse(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []*genai.Part{{Text: "hola "}, {Text: "mundo"}}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     4,
			CandidatesTokenCount: 2,
			TotalTokenCount:      6,
		},
	}, "gemini-test")
	require.NoError(t, err)
	assert.Equal(t, "hola mundo", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 6, resp.Usage.TotalTokens)

	_, err = p.parseResponse(&genai.GenerateContentResponse{}, "gemini-test")
	assert.Error(t, err)
}

func TestGeminiFactory_MissingKey(t *testing.T) {
	_, err := New("gemini", Config{})
	assert.ErrorIs(t, err, ErrMissingCredential)
}
