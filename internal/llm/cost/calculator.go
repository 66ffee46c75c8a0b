// Package cost estimates the USD cost of completion calls from token usage.
package cost

import (
	"slices"
	"strings"
	"sync"
)

// ModelPricing is the list price of a model family in USD per million tokens
type ModelPricing struct {
	Model       string
	InputPer1M  float64
	OutputPer1M float64
}

// Calculator maps model names to prices. Lookups match the exact name first
// and then the longest known prefix, so dated releases such as
// "claude-3-5-sonnet-20241022" resolve to their family.
type Calculator struct {
	mu       sync.RWMutex
	pricing  map[string]ModelPricing
	prefixes []string // longest first
}

// NewCalculator creates a calculator loaded with the default price list
func NewCalculator() *Calculator {
	c := &Calculator{pricing: make(map[string]ModelPricing)}
	for _, p := range defaultPricing {
		c.pricing[p.Model] = p
	}
	c.reindex()
	return c
}

// Prices as published by each vendor; unknown models are simply not costed.
var defaultPricing = []ModelPricing{
	// Anthropic
	{Model: "claude-3-5-sonnet", InputPer1M: 3.0, OutputPer1M: 15.0},
	{Model: "claude-3-7-sonnet", InputPer1M: 3.0, OutputPer1M: 15.0},
	{Model: "claude-sonnet-4", InputPer1M: 3.0, OutputPer1M: 15.0},
	{Model: "claude-3-5-haiku", InputPer1M: 0.8, OutputPer1M: 4.0},
	{Model: "claude-3-haiku", InputPer1M: 0.25, OutputPer1M: 1.25},
	{Model: "claude-3-opus", InputPer1M: 15.0, OutputPer1M: 75.0},
	{Model: "claude-opus-4", InputPer1M: 15.0, OutputPer1M: 75.0},

	// OpenAI
	{Model: "gpt-4o", InputPer1M: 2.5, OutputPer1M: 10.0},
	{Model: "gpt-4o-mini", InputPer1M: 0.15, OutputPer1M: 0.60},
	{Model: "gpt-4.1", InputPer1M: 2.0, OutputPer1M: 8.0},
	{Model: "gpt-4.1-mini", InputPer1M: 0.4, OutputPer1M: 1.6},
	{Model: "gpt-4-turbo", InputPer1M: 10.0, OutputPer1M: 30.0},

	// Google
	{Model: "gemini-1.5-pro", InputPer1M: 1.25, OutputPer1M: 5.0},
	{Model: "gemini-1.5-flash", InputPer1M: 0.075, OutputPer1M: 0.3},
	{Model: "gemini-2.0-flash", InputPer1M: 0.1, OutputPer1M: 0.4},
	{Model: "gemini-2.5-flash", InputPer1M: 0.3, OutputPer1M: 2.5},
	{Model: "gemini-2.5-pro", InputPer1M: 1.25, OutputPer1M: 10.0},
}

// AddPricing adds or replaces the price of a model family
func (c *Calculator) AddPricing(p ModelPricing) {
	if p.Model == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pricing[normalize(p.Model)] = p
	c.reindex()
}

// reindex rebuilds the prefix list. Callers hold the write lock.
func (c *Calculator) reindex() {
	c.prefixes = c.prefixes[:0]
	for k := range c.pricing {
		c.prefixes = append(c.prefixes, k)
	}
	slices.SortFunc(c.prefixes, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
}

// GetPricing returns the price that applies to model
func (c *Calculator) GetPricing(model string) (ModelPricing, bool) {
	model = normalize(model)
	if model == "" {
		return ModelPricing{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.pricing[model]; ok {
		return p, true
	}
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(model, prefix) {
			return c.pricing[prefix], true
		}
	}
	return ModelPricing{}, false
}

// Calculate returns the USD cost of one call. ok is false for unpriced models.
func (c *Calculator) Calculate(model string, inputTokens, outputTokens int) (usd float64, ok bool) {
	p, ok := c.GetPricing(model)
	if !ok {
		return 0, false
	}
	if inputTokens > 0 {
		usd += float64(inputTokens) / 1_000_000 * p.InputPer1M
	}
	if outputTokens > 0 {
		usd += float64(outputTokens) / 1_000_000 * p.OutputPer1M
	}
	return usd, true
}

// normalize lowercases model and strips Bedrock region and vendor prefixes
// ("us.anthropic.claude-3-5-sonnet-20240620-v1:0" -> "claude-3-5-sonnet-...").
func normalize(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "anthropic."); i >= 0 {
		model = model[i+len("anthropic."):]
	}
	if i := strings.LastIndex(model, "models/"); i >= 0 {
		model = model[i+len("models/"):]
	}
	return model
}

// DefaultCalculator is the shared calculator used by instrumented providers
var DefaultCalculator = NewCalculator()
