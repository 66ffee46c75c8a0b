package provider

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/whitelabel-ai/askai-service/internal/llm/cost"
	"github.com/whitelabel-ai/askai-service/internal/observability"
	metrics "github.com/whitelabel-ai/askai-service/pkg/observability"
)

// InstrumentedProvider wraps a Provider with tracing and metrics. Every call
// gets a span and is counted with its duration, token usage and cost.
type InstrumentedProvider struct {
	provider Provider
	costs    *cost.Calculator
}

// NewInstrumentedProvider wraps a provider with automatic observability
func NewInstrumentedProvider(provider Provider) *InstrumentedProvider {
	return &InstrumentedProvider{provider: provider, costs: cost.DefaultCalculator}
}

// WithCalculator replaces the price list used for cost estimates
func (p *InstrumentedProvider) WithCalculator(c *cost.Calculator) *InstrumentedProvider {
	p.costs = c
	return p
}

// Name returns the wrapped provider's name
func (p *InstrumentedProvider) Name() string {
	return p.provider.Name()
}

// Unwrap returns the wrapped provider
func (p *InstrumentedProvider) Unwrap() Provider {
	return p.provider
}

// CreateCompletion creates a completion with automatic instrumentation
func (p *InstrumentedProvider) CreateCompletion(ctx context.Context, request CompletionRequest) (*CompletionResponse, error) {
	name := p.provider.Name()

	ctx, span := observability.StartSpanWithOtel(ctx, fmt.Sprintf("llm.%s.completion", name),
		trace.WithAttributes(
			attribute.String("llm.provider", name),
			attribute.String("llm.model", request.Model),
			attribute.Int("llm.max_tokens", request.MaxTokens),
			attribute.Int("llm.messages_count", len(request.Messages)),
		),
	)
	defer span.End()

	startTime := time.Now()
	response, err := p.provider.CreateCompletion(ctx, request)
	duration := time.Since(startTime)

	span.SetAttributes(
		attribute.Int64("llm.duration_ms", duration.Milliseconds()),
		attribute.Bool("llm.success", err == nil),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if status := StatusOf(err); status != 0 {
			span.SetAttributes(attribute.Int("llm.status_code", status))
		}
		metrics.RecordCompletion(name, err, 0, 0, duration)
		return nil, err
	}

	model := response.Model
	if model == "" {
		model = request.Model
	}
	if usd, ok := p.estimate(model, response.Usage); ok {
		span.SetAttributes(attribute.Float64("llm.cost_usd", usd))
		metrics.RecordCompletionCost(name, model, usd)
	}

	span.SetAttributes(
		attribute.Int("llm.usage.prompt_tokens", response.Usage.PromptTokens),
		attribute.Int("llm.usage.completion_tokens", response.Usage.CompletionTokens),
		attribute.Int("llm.usage.total_tokens", response.Usage.TotalTokens),
		attribute.String("llm.finish_reason", response.FinishReason),
	)
	metrics.RecordCompletion(name, nil, response.Usage.PromptTokens, response.Usage.CompletionTokens, duration)

	return response, nil
}

// estimate returns the cost of one call, false when the model is unpriced
func (p *InstrumentedProvider) estimate(model string, usage Usage) (float64, bool) {
	if p.costs == nil {
		return 0, false
	}
	return p.costs.Calculate(model, usage.PromptTokens, usage.CompletionTokens)
}
