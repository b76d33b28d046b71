package llm

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// ModelPricing is USD per million tokens.
type ModelPricing struct {
	Input  decimal.Decimal
	Output decimal.Decimal
}

// Keyed by model family; see modelFamily.
var modelPricingTable = map[string]ModelPricing{
	"haiku-4-5":    {Input: decimal.NewFromFloat(1), Output: decimal.NewFromFloat(5)},
	"haiku-3-5":    {Input: decimal.NewFromFloat(0.80), Output: decimal.NewFromFloat(4)},
	"sonnet-4-5":   {Input: decimal.NewFromFloat(3), Output: decimal.NewFromFloat(15)},
	"sonnet-4":     {Input: decimal.NewFromFloat(3), Output: decimal.NewFromFloat(15)},
	"opus-4-5":     {Input: decimal.NewFromFloat(5), Output: decimal.NewFromFloat(25)},
	"gpt-4o-mini":  {Input: decimal.NewFromFloat(0.15), Output: decimal.NewFromFloat(0.60)},
	"gpt-4o":       {Input: decimal.NewFromFloat(2.50), Output: decimal.NewFromFloat(10)},
	"gpt-4.1-mini": {Input: decimal.NewFromFloat(0.40), Output: decimal.NewFromFloat(1.60)},
	"gpt-4.1":      {Input: decimal.NewFromFloat(2), Output: decimal.NewFromFloat(8)},
	"gpt-5-mini":   {Input: decimal.NewFromFloat(0.25), Output: decimal.NewFromFloat(2)},
	"mock":         {},
}

var oneMillion = decimal.NewFromInt(1_000_000)

// modelFamily strips vendor prefixes and date suffixes:
// "claude-haiku-4-5-20251001" -> "haiku-4-5", "gpt-4o-mini-2024-07-18" -> "gpt-4o-mini".
func modelFamily(model string) string {
	name := strings.ToLower(strings.TrimPrefix(model, "claude-"))
	parts := strings.Split(name, "-")

	switch parts[0] {
	case "haiku", "sonnet", "opus":
		if len(parts) < 2 || !isDigit(parts[1]) {
			return name
		}
		family := parts[0] + "-" + parts[1]
		if len(parts) >= 3 && isDigit(parts[2]) {
			family += "-" + parts[2]
		}
		return family
	case "gpt":
		// Longest table key that prefixes the name wins.
		best := ""
		for k := range modelPricingTable {
			if strings.HasPrefix(name, k) && len(k) > len(best) {
				best = k
			}
		}
		if best != "" {
			return best
		}
	}
	return name
}

func isDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}

// GetPricing returns zero pricing, with a warning, for unknown models.
func GetPricing(model string) ModelPricing {
	family := modelFamily(model)
	if p, ok := modelPricingTable[family]; ok {
		return p
	}
	slog.Warn("unknown model for pricing", "model", model, "family", family)
	return ModelPricing{}
}

// EstimateCost prices a single call.
func EstimateCost(model string, inputTokens, outputTokens int) decimal.Decimal {
	p := GetPricing(model)
	in := decimal.NewFromInt(int64(inputTokens)).Mul(p.Input).Div(oneMillion)
	out := decimal.NewFromInt(int64(outputTokens)).Mul(p.Output).Div(oneMillion)
	return in.Add(out)
}
