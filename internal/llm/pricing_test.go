package llm

import (
	"context"
	"testing"
)

func TestModelFamily(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"claude-haiku-4-5-20251001", "haiku-4-5"},
		{"claude-sonnet-4-20250514", "sonnet-4"},
		{"claude-opus-4-5", "opus-4-5"},
		{"gpt-4o-mini-2024-07-18", "gpt-4o-mini"},
		{"gpt-4o", "gpt-4o"},
		{"gpt-4.1-mini", "gpt-4.1-mini"},
		{"mock", "mock"},
		{"llama-3", "llama-3"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := modelFamily(tt.model); got != tt.want {
				t.Errorf("modelFamily(%q) = %q, want %q", tt.model, got, tt.want)
			}
		})
	}
}

func TestEstimateCost(t *testing.T) {
	tests := []struct {
		model         string
		input, output int
		want          string
	}{
		{"claude-haiku-4-5-20251001", 2000, 400, "0.004"},
		{"gpt-4o-mini", 1_000_000, 1_000_000, "0.75"},
		{"mock", 5000, 5000, "0"},
		{"unknown-model", 5000, 5000, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := EstimateCost(tt.model, tt.input, tt.output); got.String() != tt.want {
				t.Errorf("EstimateCost = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestMockIsDeterministic(t *testing.T) {
	ctx := context.Background()
	m := Mock{}

	a1, usage, err := m.AnalyzeEntry(ctx, "Today I walked by the river.", nil)
	if err != nil {
		t.Fatal(err)
	}
	a2, _, _ := m.AnalyzeEntry(ctx, "Today I walked by the river.", nil)
	if a1.MemorySummary != a2.MemorySummary || a1.Themes[0] != a2.Themes[0] {
		t.Errorf("mock analysis differs between calls: %+v vs %+v", a1, a2)
	}
	if usage.Model != MockModel || !usage.CostUSD.IsZero() {
		t.Errorf("usage = %+v", usage)
	}

	// md5("hello") starts with 5d41402a; 0x5d41402a % 3 == 0.
	a, _, _ := m.AnalyzeEntry(ctx, "hello", nil)
	if a.Themes[0] != "relationships" || a.MemorySummary != "A thoughtful reflection on relationships, connection." {
		t.Errorf("analysis for hello = %+v", a)
	}

	prompts, _ := m.GeneratePrompts(ctx, "", nil)
	if len(prompts) != 6 || prompts[0].ID != "p1" {
		t.Errorf("prompts = %+v", prompts)
	}

	weekly, _ := m.WeeklyInsights(ctx, nil)
	if weekly.EmotionsSummary["contemplative"] != 3 {
		t.Errorf("weekly = %+v", weekly)
	}
}
