package nexusrag

import (
	"context"
	"fmt"
	"time"

	"github.com/nexusplanner/nexusrag/internal/domain/customer"
	"github.com/nexusplanner/nexusrag/internal/domain/plan"
	relevanceuc "github.com/nexusplanner/nexusrag/internal/usecase/relevance"
	planninguc "github.com/nexusplanner/nexusrag/internal/usecase/planning"
)

// CustomerService indexes CRM customers and ranks them for campaigns.
type CustomerService struct {
	svc *relevanceuc.Service
	obs *observer
}

// Index stores a profile document for every customer.
func (s *CustomerService) Index(ctx context.Context) (rep IndexReport, err error) {
	start := time.Now()
	defer func() { s.obs.observe("index_customers", start, rep.Degraded > 0, err) }()

	r, err := s.svc.Index(ctx)
	if err != nil {
		return IndexReport{}, fmt.Errorf("index customers: %w", err)
	}
	return IndexReport{Indexed: r.Indexed, Degraded: r.Degraded, Failed: r.Failed}, nil
}

// Reindex refreshes one customer's document, or removes it if the customer is gone.
// It reports whether the document was removed.
func (s *CustomerService) Reindex(ctx context.Context, customerID string) (bool, error) {
	r, err := s.svc.Reindex(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("reindex customer: %w", err)
	}
	return r.Removed, nil
}

// List returns the customers matching every set filter field, ordered by id.
func (s *CustomerService) List(ctx context.Context, f CustomerFilter) ([]Customer, error) {
	cs, err := s.svc.ListCustomers(ctx, relevanceuc.CustomerQuery{
		Segment:     customer.Segment(f.Segment),
		MinLTV:      f.MinLTV,
		EngagedOnly: f.EngagedOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]Customer, len(cs))
	for i := range cs {
		out[i] = fromCustomer(&cs[i])
	}
	return out, nil
}

// Upsert stores or replaces a customer and refreshes its document.
// It reports whether the document was embedded by the fallback.
func (s *CustomerService) Upsert(ctx context.Context, c Customer) (degraded bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("upsert_customer", start, degraded, err) }()

	r, err := s.svc.UpsertCustomer(ctx, customer.Profile{
		ID:                    c.ID,
		Name:                  c.Name,
		Email:                 c.Email,
		CompanyID:             c.CompanyID,
		CompanyName:           c.CompanyName,
		Segment:               customer.Segment(c.Segment),
		Engagement:            customer.Engagement(c.Engagement),
		LifetimeValue:         c.LifetimeValue,
		LastEngagementAt:      c.LastEngagementAt,
		LastEngagementChannel: c.LastEngagementChannel,
		Industry:              c.Industry,
		CompanySize:           c.CompanySize,
		DealStage:             c.DealStage,
		PainPoints:            c.PainPoints,
		Interests:             c.Interests,
		CampaignHistory:       c.CampaignHistory,
	})
	if err != nil {
		return false, fmt.Errorf("upsert customer: %w", err)
	}
	return r.Degraded, nil
}

// Remove deletes a customer and its document. Removing an unknown id succeeds.
func (s *CustomerService) Remove(ctx context.Context, customerID string) error {
	if _, err := s.svc.RemoveCustomer(ctx, customerID); err != nil {
		return fmt.Errorf("remove customer: %w", err)
	}
	return nil
}

func fromCustomer(c *customer.Customer) Customer {
	p := c.Profile()
	return Customer{
		ID:                    p.ID,
		Name:                  p.Name,
		Email:                 p.Email,
		CompanyID:             p.CompanyID,
		CompanyName:           p.CompanyName,
		Segment:               string(p.Segment),
		Engagement:            string(p.Engagement),
		LifetimeValue:         p.LifetimeValue,
		LastEngagementAt:      p.LastEngagementAt,
		LastEngagementChannel: p.LastEngagementChannel,
		Industry:              p.Industry,
		CompanySize:           p.CompanySize,
		DealStage:             p.DealStage,
		PainPoints:            p.PainPoints,
		Interests:             p.Interests,
		CampaignHistory:       p.CampaignHistory,
		ICPScore:              c.ICPScore(),
	}
}

// SearchForCampaign ranks indexed customers by similarity to the campaign.
func (s *CustomerService) SearchForCampaign(ctx context.Context, q CampaignQuery) (matches []CustomerMatch, err error) {
	start := time.Now()
	degraded := false
	defer func() { s.obs.observe("search_customers", start, degraded, err) }()

	res, err := s.svc.SearchCustomersForCampaign(ctx, relevanceuc.CampaignQuery{
		Theme:          q.Theme,
		TargetAudience: q.TargetAudience,
		Segment:        customer.Segment(q.Segment),
		MinEngagement:  customer.Engagement(q.MinEngagement),
		TopK:           q.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("search customers: %w", err)
	}
	degraded = res.Degraded

	matches = make([]CustomerMatch, len(res.Matches))
	for i := range res.Matches {
		c := &res.Matches[i].Customer
		matches[i] = CustomerMatch{
			ID:            c.ID(),
			Name:          c.Name(),
			Company:       c.CompanyName(),
			Segment:       string(c.Segment()),
			Engagement:    string(c.Engagement()),
			Industry:      c.Industry(),
			LifetimeValue: c.LifetimeValue(),
			ICPScore:      c.ICPScore(),
			Score:         res.Matches[i].Score,
		}
	}
	return matches, nil
}

// Stats summarizes the customer base.
func (s *CustomerService) Stats(ctx context.Context) (CRMStats, error) {
	st, err := s.svc.CRMStats(ctx)
	if err != nil {
		return CRMStats{}, fmt.Errorf("crm stats: %w", err)
	}
	out := CRMStats{
		TotalCustomers: st.TotalCustomers,
		BySegment:      make(map[string]int, len(st.BySegment)),
		ByEngagement:   make(map[string]int, len(st.ByEngagement)),
		TotalLTV:       st.TotalLTV,
		AvgLTV:         st.AvgLTV,
	}
	for k, v := range st.BySegment {
		out.BySegment[string(k)] = v
	}
	for k, v := range st.ByEngagement {
		out.ByEngagement[string(k)] = v
	}
	return out, nil
}

// CreatePlan runs the planning pipeline. Customers should be indexed first.
func (c *Client) CreatePlan(ctx context.Context, req PlanRequest) (out Plan, err error) {
	start := time.Now()
	defer func() { c.obs.observe("create_plan", start, out.Degraded, err) }()

	p, err := c.planner.CreatePlan(ctx, planninguc.PlanRequest{
		Objective:      req.Objective,
		TargetAudience: req.TargetAudience,
		Budget:         req.Budget,
		Timeline:       req.Timeline,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("create plan: %w", err)
	}
	return fromPlan(&p), nil
}

// EvaluateOutcome derives learnings from engagement_rate and conversion_rate.
func (c *Client) EvaluateOutcome(ctx context.Context, campaignID string, m map[string]float64) (Evaluation, error) {
	ev, err := c.planner.EvaluateOutcome(ctx, campaignID, m)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluate outcome: %w", err)
	}
	return Evaluation{
		CampaignID:  ev.CampaignID,
		EvaluatedAt: ev.EvaluatedAt,
		Metrics:     ev.Metrics,
		Learnings:   ev.Learnings,
	}, nil
}

func fromPlan(p *plan.Plan) Plan {
	intents := make([]string, len(p.Intents))
	for i, in := range p.Intents {
		intents[i] = string(in)
	}
	steps := make([]PlanStep, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = PlanStep{
			Number:            s.Number,
			Action:            s.Action,
			Description:       s.Description,
			Reasoning:         s.Reasoning,
			EstimatedDuration: s.EstimatedDuration,
			Dependencies:      s.Dependencies,
		}
	}
	return Plan{
		ID:                p.ID,
		Objective:         p.Objective,
		Intents:           intents,
		TargetSegments:    p.TargetSegments,
		CustomerIDs:       p.CustomerIDs,
		Steps:             steps,
		Reasoning:         p.Reasoning,
		Confidence:        p.Confidence,
		EstimatedDuration: p.EstimatedDuration(),
		CreatedAt:         p.CreatedAt,
		Degraded:          p.Degraded,
	}
}
