package nexusrag

import "time"

// Document is a text with scalar metadata (string or number values).
// Embedding is filled in by Get and ignored by Put.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// PutResult describes a stored document.
type PutResult struct {
	Created  bool
	Degraded bool
}

// BatchResult is the outcome of one item in a batch operation.
type BatchResult struct {
	ID       string
	OK       bool
	Degraded bool
	Err      error
}

// SearchResult is a single search hit.
type SearchResult struct {
	ID       string
	Score    float64
	Content  string
	Metadata map[string]any
}

// SearchResults lists hits by descending score. Degraded is true when the
// query embedding came from the fallback.
type SearchResults struct {
	Hits     []SearchResult
	Degraded bool
}

// StoreStats describes the document store.
type StoreStats struct {
	TotalDocuments int
	MetadataKeys   []string
	EmbeddingModel string
	Dimensions     int
}

// CustomerMatch is a customer ranked for a campaign.
type CustomerMatch struct {
	ID            string
	Name          string
	Company       string
	Segment       string
	Engagement    string
	Industry      string
	LifetimeValue float64
	ICPScore      float64
	Score         float64
}

// Customer is a CRM customer profile. ICPScore is computed and ignored by Upsert.
type Customer struct {
	ID                    string
	Name                  string
	Email                 string
	CompanyID             string
	CompanyName           string
	Segment               string
	Engagement            string
	LifetimeValue         float64
	LastEngagementAt      time.Time
	LastEngagementChannel string
	Industry              string
	CompanySize           int
	DealStage             string
	PainPoints            []string
	Interests             []string
	CampaignHistory       []string
	ICPScore              float64
}

// CustomerFilter narrows CustomerService.List. Zero fields do not filter.
type CustomerFilter struct {
	Segment     string
	MinLTV      float64
	EngagedOnly bool
}

// CampaignQuery selects customers for a campaign. Segment and MinEngagement
// are optional; TopK 0 means 5.
type CampaignQuery struct {
	Theme          string
	TargetAudience string
	Segment        string
	MinEngagement  string
	TopK           int
}

// CRMStats summarizes the customer base.
type CRMStats struct {
	TotalCustomers int
	BySegment      map[string]int
	ByEngagement   map[string]int
	TotalLTV       float64
	AvgLTV         float64
}

// IndexReport counts the outcome of indexing the customer base.
type IndexReport struct {
	Indexed  int
	Degraded int
	Failed   int
}

// PlanRequest is the input of CreatePlan.
type PlanRequest struct {
	Objective      string
	TargetAudience string
	Budget         float64
	Timeline       string
}

// PlanStep is one action of a plan.
type PlanStep struct {
	Number            int
	Action            string
	Description       string
	Reasoning         string
	EstimatedDuration time.Duration
	Dependencies      []int
}

// Plan is a campaign execution plan.
type Plan struct {
	ID                string
	Objective         string
	Intents           []string
	TargetSegments    []string
	CustomerIDs       []string
	Steps             []PlanStep
	Reasoning         []string
	Confidence        float64
	EstimatedDuration time.Duration
	CreatedAt         time.Time
	Degraded          bool
}

// Evaluation holds learnings from campaign outcome metrics.
type Evaluation struct {
	CampaignID  string
	EvaluatedAt time.Time
	Metrics     map[string]float64
	Learnings   []string
}
