package chi

import (
	"slices"
	"time"

	dombatch "github.com/nexusplanner/nexusrag/internal/domain/batch"
	"github.com/nexusplanner/nexusrag/internal/domain/customer"
	domdoc "github.com/nexusplanner/nexusrag/internal/domain/document"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
	"github.com/nexusplanner/nexusrag/internal/domain/plan"
	"github.com/nexusplanner/nexusrag/internal/domain/search/result"
	"github.com/nexusplanner/nexusrag/internal/domain/usage"
	"github.com/nexusplanner/nexusrag/internal/usecase/relevance"
)

// --- Documents ---

type putDocumentRequest struct {
	Content  string            `json:"content" validate:"max=163840"`
	Metadata metadata.Metadata `json:"metadata"`
}

type putDocumentResponse struct {
	ID       string `json:"id"`
	Created  bool   `json:"created"`
	Degraded bool   `json:"degraded"`
}

type batchItem struct {
	ID       string            `json:"id" validate:"required,max=256"`
	Content  string            `json:"content" validate:"max=163840"`
	Metadata metadata.Metadata `json:"metadata"`
}

type batchPutRequest struct {
	Items []batchItem `json:"items" validate:"required,min=1,dive"`
}

type batchResultItem struct {
	ID     string         `json:"id"`
	Status string         `json:"status"`
	Error  *errorResponse `json:"error,omitempty"`
}

type batchPutResponse struct {
	Items     []batchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Degraded  int               `json:"degraded"`
	Failed    int               `json:"failed"`
}

type documentResponse struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Metadata   metadata.Metadata `json:"metadata"`
	Dimensions int               `json:"dimensions"`
	Embedding  []float32         `json:"embedding"`
}

type storeStatsResponse struct {
	TotalDocuments int      `json:"total_documents"`
	MetadataKeys   []string `json:"metadata_keys"`
	EmbeddingModel string   `json:"embedding_model"`
	Dimensions     int      `json:"dimensions"`
}

// --- Retrieval ---

type searchRequest struct {
	Query  string            `json:"query" validate:"max=8192"`
	TopK   *int              `json:"top_k" validate:"omitempty,gte=0"`
	Filter metadata.Metadata `json:"filter"`
}

type searchResultItem struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Metadata metadata.Metadata `json:"metadata"`
}

type searchResponse struct {
	Results  []searchResultItem `json:"results"`
	Degraded bool               `json:"degraded"`
}

// --- CRM ---

type campaignSearchRequest struct {
	Theme          string `json:"theme" validate:"required,max=2000"`
	TargetAudience string `json:"target_audience" validate:"max=500"`
	Segment        string `json:"segment" validate:"omitempty,oneof=enterprise mid_market smb startup"`
	MinEngagement  string `json:"min_engagement" validate:"omitempty,oneof=high medium low dormant"`
	TopK           int    `json:"top_k" validate:"omitempty,gte=1,lte=50"`
}

type customerMatch struct {
	CustomerID      string  `json:"customer_id"`
	Name            string  `json:"name"`
	Company         string  `json:"company"`
	Segment         string  `json:"segment"`
	EngagementLevel string  `json:"engagement_level"`
	Industry        string  `json:"industry"`
	LifetimeValue   float64 `json:"lifetime_value"`
	ICPScore        float64 `json:"icp_score"`
	Score           float64 `json:"score"`
}

type campaignSearchResponse struct {
	Customers []customerMatch `json:"customers"`
	Degraded  bool            `json:"degraded"`
}

type crmStatsResponse struct {
	TotalCustomers int            `json:"total_customers"`
	BySegment      map[string]int `json:"by_segment"`
	ByEngagement   map[string]int `json:"by_engagement"`
	TotalLTV       float64        `json:"total_ltv"`
	AvgLTV         float64        `json:"avg_ltv"`
}

type indexResponse struct {
	Indexed  int `json:"indexed"`
	Degraded int `json:"degraded"`
	Failed   int `json:"failed"`
}

type customerResponse struct {
	CustomerID      string  `json:"customer_id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Company         string  `json:"company"`
	Segment         string  `json:"segment"`
	EngagementLevel string  `json:"engagement_level"`
	Industry        string  `json:"industry"`
	DealStage       string  `json:"deal_stage,omitempty"`
	LifetimeValue   float64 `json:"lifetime_value"`
	ICPScore        float64 `json:"icp_score"`
}

type customerListResponse struct {
	Customers []customerResponse `json:"customers"`
}

type upsertCustomerRequest struct {
	Name                  string     `json:"name" validate:"max=200"`
	Email                 string     `json:"email" validate:"omitempty,email"`
	CompanyID             string     `json:"company_id" validate:"max=100"`
	CompanyName           string     `json:"company_name" validate:"max=200"`
	Segment               string     `json:"segment" validate:"required,oneof=enterprise mid_market smb startup"`
	EngagementLevel       string     `json:"engagement_level" validate:"required,oneof=high medium low dormant"`
	LifetimeValue         float64    `json:"lifetime_value" validate:"gte=0"`
	LastEngagementAt      *time.Time `json:"last_engagement_at"`
	LastEngagementChannel string     `json:"last_engagement_channel" validate:"max=100"`
	Industry              string     `json:"industry" validate:"max=100"`
	CompanySize           int        `json:"company_size" validate:"gte=0"`
	DealStage             string     `json:"deal_stage" validate:"max=100"`
	PainPoints            []string   `json:"pain_points" validate:"max=50"`
	Interests             []string   `json:"interests" validate:"max=50"`
	CampaignHistory       []string   `json:"campaign_history" validate:"max=100"`
}

func (r *upsertCustomerRequest) toProfile(id string) customer.Profile {
	p := customer.Profile{
		ID:                    id,
		Name:                  r.Name,
		Email:                 r.Email,
		CompanyID:             r.CompanyID,
		CompanyName:           r.CompanyName,
		Segment:               customer.Segment(r.Segment),
		Engagement:            customer.Engagement(r.EngagementLevel),
		LifetimeValue:         r.LifetimeValue,
		LastEngagementChannel: r.LastEngagementChannel,
		Industry:              r.Industry,
		CompanySize:           r.CompanySize,
		DealStage:             r.DealStage,
		PainPoints:            r.PainPoints,
		Interests:             r.Interests,
		CampaignHistory:       r.CampaignHistory,
	}
	if r.LastEngagementAt != nil {
		p.LastEngagementAt = *r.LastEngagementAt
	}
	return p
}

type reindexResponse struct {
	CustomerID string `json:"customer_id"`
	DocumentID string `json:"document_id"`
	Removed    bool   `json:"removed"`
	Degraded   bool   `json:"degraded"`
}

// --- Agent ---

type planRequest struct {
	Objective      string  `json:"objective" validate:"required,max=2000"`
	TargetAudience string  `json:"target_audience" validate:"max=500"`
	Budget         float64 `json:"budget" validate:"gte=0"`
	Timeline       string  `json:"timeline" validate:"max=200"`
}

type planStep struct {
	StepNumber          int    `json:"step_number"`
	Action              string `json:"action"`
	Description         string `json:"description"`
	Reasoning           string `json:"reasoning"`
	EstimatedDurationMS int64  `json:"estimated_duration_ms"`
	Dependencies        []int  `json:"dependencies"`
}

type planResponse struct {
	PlanID              string     `json:"plan_id"`
	Objective           string     `json:"objective"`
	Intents             []string   `json:"intents"`
	TargetSegments      []string   `json:"target_segments"`
	CustomerIDs         []string   `json:"customer_ids"`
	Steps               []planStep `json:"steps"`
	Reasoning           []string   `json:"reasoning"`
	Confidence          float64    `json:"confidence"`
	EstimatedDurationMS int64      `json:"estimated_duration_ms"`
	CreatedAt           time.Time  `json:"created_at"`
	Degraded            bool       `json:"degraded"`
}

type evaluateRequest struct {
	CampaignID string             `json:"campaign_id" validate:"required,max=256"`
	Metrics    map[string]float64 `json:"metrics" validate:"required"`
}

type evaluateResponse struct {
	CampaignID  string             `json:"campaign_id"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
	Metrics     map[string]float64 `json:"metrics"`
	Learnings   []string           `json:"learnings"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type usageResponse struct {
	Provider        string    `json:"provider,omitempty"`
	Period          string    `json:"period"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	TokensLimit     int64     `json:"tokens_limit"`
	TokensUsed      int64     `json:"tokens_used"`
	TokensRemaining int64     `json:"tokens_remaining"`
	Exhausted       bool      `json:"exhausted"`
}

// --- Converters ---

func usageToResponse(r *usage.Report) usageResponse {
	return usageResponse{
		Provider:        r.Provider,
		Period:          string(r.Period),
		PeriodStart:     r.Start,
		PeriodEnd:       r.End,
		TokensLimit:     r.Limit,
		TokensUsed:      r.Used,
		TokensRemaining: r.Remaining,
		Exhausted:       r.Exhausted(),
	}
}

func documentToResponse(doc *domdoc.Document) documentResponse {
	return documentResponse{
		ID:         doc.ID(),
		Content:    doc.Content(),
		Metadata:   nonNilMetadata(doc.Metadata()),
		Dimensions: doc.Dimensions(),
		Embedding:  slices.Clone(doc.Embedding()),
	}
}

func searchResultToResponse(r *result.Result) searchResultItem {
	doc := r.Document()
	return searchResultItem{
		ID:       r.ID(),
		Content:  doc.Content(),
		Score:    r.Score(),
		Metadata: nonNilMetadata(doc.Metadata()),
	}
}

func batchResultToResponse(r dombatch.Result) batchResultItem {
	item := batchResultItem{ID: r.ID(), Status: string(r.Status())}
	if r.Err() != nil {
		item.Error = &errorResponse{
			Code:    batchErrorCode(r.Err()),
			Message: safeDomainMessage(r.Err()),
		}
	}
	return item
}

func matchToResponse(m *relevance.Match) customerMatch {
	c := m.Customer
	return customerMatch{
		CustomerID:      c.ID(),
		Name:            c.Name(),
		Company:         c.CompanyName(),
		Segment:         string(c.Segment()),
		EngagementLevel: string(c.Engagement()),
		Industry:        c.Industry(),
		LifetimeValue:   c.LifetimeValue(),
		ICPScore:        c.ICPScore(),
		Score:           m.Score,
	}
}

func reindexToResponse(r *relevance.ReindexResult) reindexResponse {
	return reindexResponse{
		CustomerID: r.CustomerID,
		DocumentID: r.DocumentID,
		Removed:    r.Removed,
		Degraded:   r.Degraded,
	}
}

func customerToResponse(c *customer.Customer) customerResponse {
	return customerResponse{
		CustomerID:      c.ID(),
		Name:            c.Name(),
		Email:           c.Email(),
		Company:         c.CompanyName(),
		Segment:         string(c.Segment()),
		EngagementLevel: string(c.Engagement()),
		Industry:        c.Industry(),
		DealStage:       c.DealStage(),
		LifetimeValue:   c.LifetimeValue(),
		ICPScore:        c.ICPScore(),
	}
}

func crmStatsToResponse(st *customer.Stats) crmStatsResponse {
	resp := crmStatsResponse{
		TotalCustomers: st.TotalCustomers,
		BySegment:      make(map[string]int, len(st.BySegment)),
		ByEngagement:   make(map[string]int, len(st.ByEngagement)),
		TotalLTV:       st.TotalLTV,
		AvgLTV:         st.AvgLTV,
	}
	for k, v := range st.BySegment {
		resp.BySegment[string(k)] = v
	}
	for k, v := range st.ByEngagement {
		resp.ByEngagement[string(k)] = v
	}
	return resp
}

func planToResponse(p *plan.Plan) planResponse {
	intents := make([]string, len(p.Intents))
	for i, in := range p.Intents {
		intents[i] = string(in)
	}
	steps := make([]planStep, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = planStep{
			StepNumber:          s.Number,
			Action:              s.Action,
			Description:         s.Description,
			Reasoning:           s.Reasoning,
			EstimatedDurationMS: s.EstimatedDuration.Milliseconds(),
			Dependencies:        s.Dependencies,
		}
	}
	return planResponse{
		PlanID:              p.ID,
		Objective:           p.Objective,
		Intents:             intents,
		TargetSegments:      p.TargetSegments,
		CustomerIDs:         p.CustomerIDs,
		Steps:               steps,
		Reasoning:           p.Reasoning,
		Confidence:          p.Confidence,
		EstimatedDurationMS: p.EstimatedDuration().Milliseconds(),
		CreatedAt:           p.CreatedAt.UTC(),
		Degraded:            p.Degraded,
	}
}

func nonNilMetadata(m metadata.Metadata) metadata.Metadata {
	if m == nil {
		return metadata.Metadata{}
	}
	return m
}
