package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{"empty", "", nil},
		{"single", "Authorization=Basic abc", map[string]string{"Authorization": "Basic abc"}},
		{"multiple", "a=1, b=2", map[string]string{"a": "1", "b": "2"}},
		{"value with equals", "k=v=w", map[string]string{"k": "v=w"}},
		{"skips malformed", "novalue,=x,ok=1", map[string]string{"ok": "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseHeaders(tt.input))
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-token=abc")

	cfg := ConfigFromEnv()
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, "none", cfg.ExporterType)
	assert.Equal(t, map[string]string{"x-token": "abc"}, cfg.OTLPHeaders)
}

func TestInit_Disabled(t *testing.T) {
	require.NoError(t, Init(Config{ExporterType: "none"}, zap.NewNop()))

	ctx, span := StartSpanWithOtel(context.Background(), "test")
	defer span.End()
	assert.NotNil(t, ctx)
}

func TestInit_UnknownExporter(t *testing.T) {
	err := Init(Config{ExporterType: "kafka"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown exporter")
}

func TestInit_Stdout(t *testing.T) {
	require.NoError(t, Init(Config{ExporterType: "stdout"}, zap.NewNop()))
	t.Cleanup(func() {
		_ = Shutdown(context.Background())
		tracerProvider = nil
	})

	_, span := StartSpanWithOtel(context.Background(), "stdout-span")
	span.End()
}

func TestShutdown_NotInitialized(t *testing.T) {
	tracerProvider = nil
	assert.NoError(t, Shutdown(context.Background()))
}
