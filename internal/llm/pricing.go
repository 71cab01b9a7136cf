package llm

import (
	"strings"
)

// ModelCost is a model's list price in USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost prices u.
func (c ModelCost) Cost(u Usage) float64 {
	return float64(u.InputTokens)*c.InputPerMTok/1_000_000 +
		float64(u.OutputTokens)*c.OutputPerMTok/1_000_000
}

// modelCosts covers the model families the provider defaults and aliases
// resolve to. Keys are id prefixes; dated snapshots and OpenRouter's
// "vendor/" ids match by longest prefix.
var modelCosts = map[string]ModelCost{
	"claude-haiku-4-5": {1, 5},
	"claude-sonnet-4":  {3, 15},
	"claude-opus-4-5":  {5, 25},
	"claude-opus-4":    {15, 75},

	"gpt-4o":       {2.5, 10},
	"gpt-4o-mini":  {0.15, 0.6},
	"gpt-4.1":      {2, 8},
	"gpt-4.1-mini": {0.4, 1.6},
	"gpt-4.1-nano": {0.1, 0.4},
	"gpt-5-mini":   {0.25, 2},

	"gemini-2.0-flash":      {0.1, 0.4},
	"gemini-2.0-flash-lite": {0.075, 0.3},
	"gemini-2.5-flash":      {0.3, 2.5},
	"gemini-2.5-flash-lite": {0.1, 0.4},
	"gemini-2.5-pro":        {1.25, 10},
}

// LookupCost returns the price for modelID, or nil when unknown.
func LookupCost(modelID string) *ModelCost {
	id := modelID
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		id = id[i+1:]
	}

	best := ""
	for prefix := range modelCosts {
		if strings.HasPrefix(id, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil
	}
	c := modelCosts[best]
	return &c
}

// EstimateCost prices u for modelID. ok is false for unknown models.
func EstimateCost(modelID string, u Usage) (usd float64, ok bool) {
	c := LookupCost(modelID)
	if c == nil {
		return 0, false
	}
	return c.Cost(u), true
}
