package cost

import (
	"math"
	"sync"
	"testing"
)

func TestGetPricing(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		model  string
		want   string
		wantOK bool
	}{
		{"gpt-4o", "gpt-4o", true},
		{"gpt-4o-mini", "gpt-4o-mini", true},
		{"gpt-4o-mini-2024-07-18", "gpt-4o-mini", true},
		{"claude-3-5-sonnet-20241022", "claude-3-5-sonnet", true},
		{"Claude-3-5-Haiku-latest", "claude-3-5-haiku", true},
		{"anthropic.claude-3-5-sonnet-20240620-v1:0", "claude-3-5-sonnet", true},
		{"us.anthropic.claude-3-haiku-20240307-v1:0", "claude-3-haiku", true},
		{"models/gemini-1.5-flash", "gemini-1.5-flash", true},
		{"llama3", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p, ok := calc.GetPricing(tt.model)
			if ok != tt.wantOK {
				t.Fatalf("GetPricing(%q) ok = %v, want %v", tt.model, ok, tt.wantOK)
			}
			if ok && p.Model != tt.want {
				t.Errorf("GetPricing(%q) = %q, want %q", tt.model, p.Model, tt.want)
			}
		})
	}
}

func TestCalculate(t *testing.T) {
	calc := NewCalculator()

	usd, ok := calc.Calculate("claude-3-5-sonnet-20241022", 1_000_000, 100_000)
	if !ok {
		t.Fatal("expected pricing for sonnet")
	}
	if math.Abs(usd-4.5) > 1e-9 {
		t.Errorf("cost = %f, want 4.5", usd)
	}

	usd, ok = calc.Calculate("gpt-4o", 0, 0)
	if !ok || usd != 0 {
		t.Errorf("zero usage = (%f, %v), want (0, true)", usd, ok)
	}

	if _, ok := calc.Calculate("unknown-model", 10, 10); ok {
		t.Error("expected unknown model to be unpriced")
	}
}

func TestAddPricing(t *testing.T) {
	calc := NewCalculator()
	calc.AddPricing(ModelPricing{Model: "Custom-Model", InputPer1M: 1, OutputPer1M: 2})
	calc.AddPricing(ModelPricing{})

	usd, ok := calc.Calculate("custom-model-v2", 2_000_000, 1_000_000)
	if !ok {
		t.Fatal("expected custom pricing by prefix")
	}
	if math.Abs(usd-4) > 1e-9 {
		t.Errorf("cost = %f, want 4", usd)
	}
}

func TestCalculator_Concurrent(t *testing.T) {
	calc := NewCalculator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, ok := calc.GetPricing("gpt-4o"); !ok {
				t.Errorf("expected gpt-4o pricing")
			}
		}()
		go func(id int) {
			defer wg.Done()
			calc.AddPricing(ModelPricing{Model: "concurrent-model", InputPer1M: float64(id)})
		}(i)
	}
	wg.Wait()

	p, ok := calc.GetPricing("gpt-4o")
	if !ok || p.InputPer1M != 2.5 {
		t.Errorf("gpt-4o pricing changed: %+v", p)
	}
}
