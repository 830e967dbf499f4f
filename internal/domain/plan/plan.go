// Package plan holds the value types produced by the campaign planning pipeline.
package plan

import (
	"strings"
	"time"
)

// Intent is a coarse objective category detected by keyword matching.
type Intent string

// Objective intents.
const (
	IntentGrowth     Intent = "growth"
	IntentEngagement Intent = "engagement"
	IntentAwareness  Intent = "awareness"
	IntentRevenue    Intent = "revenue"
	IntentGeneral    Intent = "general"
)

var intentKeywords = []struct {
	intent   Intent
	label    string
	keywords []string
}{
	{IntentGrowth, "Growth-focused objective", []string{"increase", "grow", "boost", "expand"}},
	{IntentEngagement, "Engagement/retention goal", []string{"engagement", "retention", "loyalty"}},
	{IntentAwareness, "Brand awareness initiative", []string{"awareness", "brand", "visibility"}},
	{IntentRevenue, "Revenue-driven campaign", []string{"revenue", "sales", "conversion"}},
}

// Label returns a human-readable description of the intent.
func (i Intent) Label() string {
	for _, k := range intentKeywords {
		if k.intent == i {
			return k.label
		}
	}
	return "General marketing objective"
}

// ClassifyObjective returns every intent whose keywords occur in the objective
// (case-insensitive substring match), or IntentGeneral when none do.
func ClassifyObjective(objective string) []Intent {
	text := strings.ToLower(objective)
	var out []Intent
	for _, k := range intentKeywords {
		for _, kw := range k.keywords {
			if strings.Contains(text, kw) {
				out = append(out, k.intent)
				break
			}
		}
	}
	if len(out) == 0 {
		return []Intent{IntentGeneral}
	}
	return out
}

// Step is one templated action of an execution plan.
type Step struct {
	Number            int
	Action            string
	Description       string
	Reasoning         string
	EstimatedDuration time.Duration
	Dependencies      []int
}

// Plan is the output of the planning pipeline.
type Plan struct {
	ID             string
	Objective      string
	Intents        []Intent
	TargetSegments []string
	CustomerIDs    []string
	Steps          []Step
	Reasoning      []string
	Confidence     float64
	CreatedAt      time.Time
	// Degraded is true when customer retrieval used fallback embeddings.
	Degraded bool
}

// EstimatedDuration sums the step estimates.
func (p *Plan) EstimatedDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Steps {
		total += s.EstimatedDuration
	}
	return total
}

// Confidence heuristics.
const (
	BaseConfidence = 0.5
	MaxConfidence  = 1.0
)

// Confidence scores a plan: 0.5 base, +0.2 for five or more customers
// (else +0.1 for three or more), +0.15 for at most two target segments,
// +0.15 when a positive budget was supplied. Capped at 1.0.
func Confidence(customers, segments int, budget float64) float64 {
	c := BaseConfidence
	switch {
	case customers >= 5:
		c += 0.2
	case customers >= 3:
		c += 0.1
	}
	if segments <= 2 {
		c += 0.15
	}
	if budget > 0 {
		c += 0.15
	}
	if c > MaxConfidence {
		return MaxConfidence
	}
	return c
}

// Evaluation is the learning summary for a finished campaign.
type Evaluation struct {
	CampaignID  string
	EvaluatedAt time.Time
	Metrics     map[string]float64
	Learnings   []string
}

// Outcome thresholds.
const (
	HighEngagementRate   = 0.15
	LowEngagementRate    = 0.05
	StrongConversionRate = 0.05
	WeakConversionRate   = 0.01
)

// Learnings derives lessons from engagement_rate and conversion_rate when present.
func Learnings(metrics map[string]float64) []string {
	out := []string{}
	if rate, ok := metrics["engagement_rate"]; ok {
		switch {
		case rate > HighEngagementRate:
			out = append(out, "High engagement achieved - campaign resonated well with target audience")
		case rate < LowEngagementRate:
			out = append(out, "Low engagement - consider revising messaging or targeting")
		}
	}
	if rate, ok := metrics["conversion_rate"]; ok {
		switch {
		case rate > StrongConversionRate:
			out = append(out, "Strong conversion performance - channel mix was effective")
		case rate < WeakConversionRate:
			out = append(out, "Weak conversions - optimize channel strategy or call-to-action")
		}
	}
	return out
}
