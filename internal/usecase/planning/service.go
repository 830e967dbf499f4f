// Package planning turns a business objective into a campaign execution plan.
package planning

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/domain/customer"
	"github.com/nexusplanner/nexusrag/internal/domain/plan"
	"github.com/nexusplanner/nexusrag/internal/logger"
	"github.com/nexusplanner/nexusrag/internal/usecase/relevance"
)

// Planning limits.
const (
	// CustomerTopK is how many customers feed segment selection.
	CustomerTopK = 10
	// MaxTargetSegments caps the segments a plan targets.
	MaxTargetSegments = 3
	MaxObjectiveLength = 2000
)

var defaultSegments = []customer.Segment{customer.SegmentEnterprise, customer.SegmentMidMarket}

// PlanRequest is the input of CreatePlan. Timeline is informational.
type PlanRequest struct {
	Objective      string
	TargetAudience string
	Budget         float64
	Timeline       string
}

// Planner builds campaign plans from CRM retrieval results.
type Planner struct {
	customers CustomerFinder
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// New creates a Planner.
func New(customers CustomerFinder, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{
		customers: customers,
		logger:    log,
		now:       time.Now,
		newID:     func() string { return "plan_" + uuid.NewString()[:8] },
	}
}

// WithClock overrides the time source.
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}

// CreatePlan analyzes the objective, retrieves matching customers, picks
// target segments, and lays out the execution steps.
func (p *Planner) CreatePlan(ctx context.Context, req PlanRequest) (plan.Plan, error) {
	objective := strings.TrimSpace(req.Objective)
	if objective == "" {
		return plan.Plan{}, fmt.Errorf("objective is required: %w", domain.ErrInvalidRequest)
	}
	if len(objective) > MaxObjectiveLength {
		return plan.Plan{}, fmt.Errorf("objective too long (max %d): %w", MaxObjectiveLength, domain.ErrInvalidRequest)
	}
	if req.Budget < 0 {
		return plan.Plan{}, fmt.Errorf("budget must not be negative: %w", domain.ErrInvalidRequest)
	}

	id := p.newID()
	log := logger.FromContext(ctx, p.logger).With(zap.String("plan_id", id))

	intents := plan.ClassifyObjective(objective)
	reasoning := []string{"Objective Analysis: " + intentLabels(intents)}

	found, err := p.customers.SearchCustomersForCampaign(ctx, relevance.CampaignQuery{
		Theme:          objective,
		TargetAudience: req.TargetAudience,
		TopK:           CustomerTopK,
	})
	if err != nil {
		return plan.Plan{}, fmt.Errorf("retrieve customers: %w", err)
	}
	customers := make([]customer.Customer, len(found.Matches))
	customerIDs := make([]string, len(found.Matches))
	for i, m := range found.Matches {
		customers[i] = m.Customer
		customerIDs[i] = m.Customer.ID()
	}
	reasoning = append(reasoning, fmt.Sprintf(
		"Retrieved %d relevant customers from CRM using RAG. Segments: %s",
		len(customers), joinSegments(presentSegments(customers)),
	))

	segments := TargetSegments(customers)
	reasoning = append(reasoning, fmt.Sprintf(
		"Target Segments Identified: %s based on ICP scores and engagement levels",
		joinSegments(segments),
	))

	steps := plan.ExecutionSteps(len(customers), len(segments), req.Budget)
	reasoning = append(reasoning, fmt.Sprintf("Created %d-step execution plan", len(steps)))

	confidence := plan.Confidence(len(customers), len(segments), req.Budget)
	reasoning = append(reasoning, fmt.Sprintf("Plan confidence: %.2f%%", confidence*100))

	targets := make([]string, len(segments))
	for i, s := range segments {
		targets[i] = string(s)
	}

	out := plan.Plan{
		ID:             id,
		Objective:      objective,
		Intents:        intents,
		TargetSegments: targets,
		CustomerIDs:    customerIDs,
		Steps:          steps,
		Reasoning:      reasoning,
		Confidence:     confidence,
		CreatedAt:      p.now(),
		Degraded:       found.Degraded,
	}

	log.Info("Campaign plan created",
		zap.Strings("target_segments", targets),
		zap.Int("customer_count", len(customers)),
		zap.Float64("confidence", confidence),
		zap.Bool("degraded", found.Degraded),
		zap.Strings("reasoning", reasoning),
	)
	return out, nil
}

// EvaluateOutcome derives learnings from a finished campaign's metrics.
func (p *Planner) EvaluateOutcome(ctx context.Context, campaignID string, metrics map[string]float64) (plan.Evaluation, error) {
	if campaignID == "" {
		return plan.Evaluation{}, fmt.Errorf("campaign ID is required: %w", domain.ErrInvalidRequest)
	}
	copied := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		copied[k] = v
	}
	ev := plan.Evaluation{
		CampaignID:  campaignID,
		EvaluatedAt: p.now(),
		Metrics:     copied,
		Learnings:   plan.Learnings(copied),
	}
	logger.FromContext(ctx, p.logger).Info("Campaign outcome evaluated",
		zap.String("campaign_id", campaignID),
		zap.Strings("learnings", ev.Learnings),
	)
	return ev, nil
}

// TargetSegments scores each segment by the sum over its customers of ICP score
// plus an engagement bonus (20 for high, 10 otherwise) and returns the best
// three, ties broken by segment name. No customers yields enterprise and mid_market.
func TargetSegments(customers []customer.Customer) []customer.Segment {
	if len(customers) == 0 {
		return append([]customer.Segment(nil), defaultSegments...)
	}

	scores := make(map[customer.Segment]float64)
	for i := range customers {
		bonus := 10.0
		if customers[i].Engagement() == customer.EngagementHigh {
			bonus = 20
		}
		scores[customers[i].Segment()] += customers[i].ICPScore() + bonus
	}

	segments := make([]customer.Segment, 0, len(scores))
	for s := range scores {
		segments = append(segments, s)
	}
	sort.Slice(segments, func(i, j int) bool {
		if scores[segments[i]] != scores[segments[j]] {
			return scores[segments[i]] > scores[segments[j]]
		}
		return segments[i] < segments[j]
	})
	if len(segments) > MaxTargetSegments {
		segments = segments[:MaxTargetSegments]
	}
	return segments
}

func intentLabels(intents []plan.Intent) string {
	labels := make([]string, len(intents))
	for i, in := range intents {
		labels[i] = in.Label()
	}
	return strings.Join(labels, "; ")
}

func presentSegments(customers []customer.Customer) []customer.Segment {
	seen := make(map[customer.Segment]struct{})
	var out []customer.Segment
	for i := range customers {
		s := customers[i].Segment()
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func joinSegments(segments []customer.Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
