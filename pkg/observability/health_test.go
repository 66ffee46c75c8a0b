package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		checks   []*HealthCheck
		expected HealthStatus
	}{
		{
			name:     "no checks",
			expected: HealthStatusHealthy,
		},
		{
			name:     "ping only",
			checks:   []*HealthCheck{PingCheck()},
			expected: HealthStatusHealthy,
		},
		{
			name:     "provider missing degrades",
			checks:   []*HealthCheck{PingCheck(), ProviderCheck(func() bool { return false })},
			expected: HealthStatusDegraded,
		},
		{
			name: "store down is unhealthy",
			checks: []*HealthCheck{
				ProviderCheck(func() bool { return false }),
				StoreCheck(func(context.Context) error { return errors.New("connection refused") }),
			},
			expected: HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewHealthChecker("test")
			for _, c := range tt.checks {
				hc.RegisterCheck(c)
			}
			resp := hc.Check(context.Background())
			assert.Equal(t, tt.expected, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
			assert.Equal(t, "test", resp.Version)
		})
	}
}

func TestHealthChecker_Timeout(t *testing.T) {
	hc := NewHealthChecker("test")
	hc.RegisterCheck(&HealthCheck{
		Name: "slow",
		CheckFunc: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Timeout:  20 * time.Millisecond,
		Critical: true,
	})

	resp := hc.Check(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks["slow"].Message, "deadline")
}

func TestMount_Handlers(t *testing.T) {
	hc := NewHealthChecker("test")
	hc.RegisterCheck(StoreCheck(func(context.Context) error { return errors.New("down") }))

	mux := http.NewServeMux()
	Mount(mux, hc)

	tests := []struct {
		path   string
		status int
		field  string
		value  string
	}{
		{"/health", http.StatusServiceUnavailable, "status", "unhealthy"},
		{"/health/live", http.StatusOK, "status", "alive"},
		{"/health/ready", http.StatusServiceUnavailable, "status", "not ready"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.value, body[tt.field])
		})
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecordFunctions_DoNotPanic(t *testing.T) {
	InitMetrics()
	InitMetrics()

	assert.NotPanics(t, func() {
		RecordHTTPRequest("POST", "/chat", "200", time.Millisecond)
		RecordSearch("docs", 3, false, time.Millisecond)
		RecordSearch("forum", 0, true, time.Second)
		RecordCompletion("anthropic", nil, 10, 5, time.Second)
		RecordCompletion("anthropic", errors.New("boom"), 0, 0, time.Second)
		RecordChatTurn(BranchTemplates)
		RecordSuggestion("registered")
		SetSuggestionsStored(4)
	})
}
