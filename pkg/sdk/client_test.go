package nexusrag

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var keywordAxes = []string{"security", "cloud", "billing"}

// keywordEmbedder puts one axis per keyword plus a constant bias axis.
type keywordEmbedder struct {
	calls int
	err   error
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.calls++
	if e.err != nil {
		return EmbeddingResult{}, e.err
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(keywordAxes)+1)
	for i, kw := range keywordAxes {
		vec[i] = float32(strings.Count(lower, kw))
	}
	vec[len(keywordAxes)] = 0.1
	return EmbeddingResult{Embedding: vec, PromptTokens: 3, TotalTokens: 3}, nil
}

const testCustomers = `
customers:
  - id: c1
    name: Ana
    email: ana@example.com
    company_name: Vault Inc
    segment: enterprise
    engagement_level: high
    lifetime_value: 200000
    last_engagement_days_ago: 3
    industry: Technology
    pain_points: [Security compliance]
    interests: [Zero trust security]
  - id: c2
    name: Ben
    email: ben@example.com
    company_name: Skyward
    segment: smb
    engagement_level: low
    lifetime_value: 5000
    last_engagement_days_ago: 90
    industry: Retail
    pain_points: [Cloud costs]
    interests: [Cloud migration]
`

func newTestClient(t *testing.T, opts ...Option) (*Client, *keywordEmbedder) {
	t.Helper()
	emb := &keywordEmbedder{}
	base := []Option{
		WithEmbedder(emb),
		WithDimensions(len(keywordAxes) + 1),
		WithCustomers(strings.NewReader(testCustomers)),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c, emb
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if c.ProviderConfigured() {
		t.Error("provider configured without embedder or API key")
	}
	h := c.Health(context.Background())
	if h.Status != "degraded" {
		t.Errorf("status = %q, want degraded", h.Status)
	}
	if h.Checks["database"] != "disabled" || h.Checks["embedding"] != "disabled" {
		t.Errorf("checks = %v", h.Checks)
	}

	st, err := c.Customers().Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalCustomers == 0 {
		t.Error("built-in customers not loaded")
	}
}

func TestNew_InvalidDimensions(t *testing.T) {
	if _, err := New(context.Background(), WithDimensions(0)); err == nil {
		t.Fatal("expected error for zero dimensions")
	}
}

func TestNew_BadCustomers(t *testing.T) {
	_, err := New(context.Background(), WithCustomers(strings.NewReader("customers:\n  - id: x\n    segment: galactic\n")))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestDocuments_PutGetDelete(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	docs := c.Documents()

	res, err := docs.Put(ctx, Document{ID: "d1", Content: "cloud guide", Metadata: map[string]any{"kind": "guide", "year": 2024}})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !res.Created || res.Degraded {
		t.Errorf("result = %+v, want created and not degraded", res)
	}

	res, err = docs.Put(ctx, Document{ID: "d1", Content: "cloud guide v2"})
	if err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	if res.Created {
		t.Error("replacement reported as created")
	}

	got, err := docs.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content != "cloud guide v2" || len(got.Metadata) != 0 {
		t.Errorf("got = %+v", got)
	}
	want := []float32{0, 1, 0, 0.1}
	if !slices.Equal(got.Embedding, want) {
		t.Errorf("embedding = %v, want %v", got.Embedding, want)
	}
	got.Embedding[1] = 99
	again, err := docs.Get(ctx, "d1")
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if again.Embedding[1] != 1 {
		t.Errorf("stored embedding changed through returned slice: %v", again.Embedding)
	}

	if err := docs.Delete(ctx, "d1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := docs.Get(ctx, "d1"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestDocuments_PutRejectsNestedMetadata(t *testing.T) {
	c, emb := newTestClient(t)

	_, err := c.Documents().Put(context.Background(), Document{
		ID: "d1", Content: "x", Metadata: map[string]any{"tags": []string{"a"}},
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times for invalid document", emb.calls)
	}
}

func TestDocuments_PutBatch(t *testing.T) {
	c, _ := newTestClient(t)

	results := c.Documents().PutBatch(context.Background(), []Document{
		{ID: "a", Content: "security"},
		{ID: "b", Content: "bad", Metadata: map[string]any{"n": map[string]any{}}},
		{ID: "c", Content: "billing"},
	})
	if len(results) != 3 {
		t.Fatalf("len = %d, want 3", len(results))
	}
	if !results[0].OK || !results[2].OK {
		t.Errorf("valid items failed: %+v", results)
	}
	if results[1].OK || results[1].Err == nil || results[1].ID != "b" {
		t.Errorf("invalid item = %+v", results[1])
	}

	st, err := c.Documents().Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalDocuments != 2 {
		t.Errorf("total = %d, want 2", st.TotalDocuments)
	}
}

func TestSearch_RanksAndFilters(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	docs := c.Documents()

	for _, d := range []Document{
		{ID: "sec", Content: "security security", Metadata: map[string]any{"team": "infra"}},
		{ID: "cloud", Content: "cloud", Metadata: map[string]any{"team": "infra"}},
		{ID: "bill", Content: "billing", Metadata: map[string]any{"team": "finance"}},
	} {
		if _, err := docs.Put(ctx, d); err != nil {
			t.Fatalf("Put %s: %v", d.ID, err)
		}
	}

	res, err := c.Search(ctx, "security", 2, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Hits) != 2 || res.Hits[0].ID != "sec" {
		t.Fatalf("hits = %+v", res.Hits)
	}
	if res.Hits[0].Score < res.Hits[1].Score {
		t.Error("hits not sorted by score")
	}

	res, err = c.Search(ctx, "security", 10, map[string]any{"team": "finance"})
	if err != nil {
		t.Fatalf("Search filtered: %v", err)
	}
	if len(res.Hits) != 1 || res.Hits[0].ID != "bill" {
		t.Errorf("filtered hits = %+v", res.Hits)
	}

	res, err = c.Search(ctx, "security", 0, nil)
	if err != nil {
		t.Fatalf("Search top_k 0: %v", err)
	}
	if len(res.Hits) != 0 {
		t.Errorf("top_k 0 returned %d hits", len(res.Hits))
	}
}

func TestSearch_DegradedWhenProviderFails(t *testing.T) {
	c, emb := newTestClient(t)
	ctx := context.Background()
	if _, err := c.Customers().Index(ctx); err != nil {
		t.Fatalf("Index: %v", err)
	}
	emb.err = errors.New("provider down")

	res, err := c.Search(ctx, "anything", 3, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !res.Degraded {
		t.Error("expected degraded result")
	}
	if len(res.Hits) != 2 {
		t.Errorf("hits = %d, want both indexed customers", len(res.Hits))
	}
}

func TestSearch_EmptyStoreSkipsEmbedding(t *testing.T) {
	c, emb := newTestClient(t)
	emb.err = errors.New("provider down")

	res, err := c.Search(context.Background(), "anything", 3, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Degraded || len(res.Hits) != 0 || emb.calls != 0 {
		t.Errorf("empty store: degraded=%v hits=%d calls=%d, want no embedding at all", res.Degraded, len(res.Hits), emb.calls)
	}
}

func TestCustomers_IndexAndSearch(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	cs := c.Customers()

	rep, err := cs.Index(ctx)
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if rep.Indexed != 2 || rep.Failed != 0 {
		t.Errorf("report = %+v", rep)
	}

	matches, err := cs.SearchForCampaign(ctx, CampaignQuery{Theme: "security webinar", TopK: 2})
	if err != nil {
		t.Fatalf("SearchForCampaign: %v", err)
	}
	if len(matches) != 2 || matches[0].ID != "c1" {
		t.Fatalf("matches = %+v", matches)
	}
	if matches[0].Segment != "enterprise" || matches[0].ICPScore <= matches[1].ICPScore {
		t.Errorf("top match = %+v", matches[0])
	}

	matches, err = cs.SearchForCampaign(ctx, CampaignQuery{Theme: "cloud", Segment: "smb"})
	if err != nil {
		t.Fatalf("SearchForCampaign smb: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "c2" {
		t.Errorf("smb matches = %+v", matches)
	}

	matches, err = cs.SearchForCampaign(ctx, CampaignQuery{Theme: "cloud", MinEngagement: "high"})
	if err != nil {
		t.Fatalf("SearchForCampaign min engagement: %v", err)
	}
	for _, m := range matches {
		if m.Engagement != "high" {
			t.Errorf("match %s below engagement floor", m.ID)
		}
	}
}

func TestCustomers_ReindexUnknown(t *testing.T) {
	c, _ := newTestClient(t)

	removed, err := c.Customers().Reindex(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if !removed {
		t.Error("expected unknown customer document to be removed")
	}
}

func TestCustomers_List(t *testing.T) {
	c, _ := newTestClient(t)

	tests := []struct {
		name   string
		filter CustomerFilter
		want   []string
	}{
		{"all", CustomerFilter{}, []string{"c1", "c2"}},
		{"segment", CustomerFilter{Segment: "smb"}, []string{"c2"}},
		{"lifetime value", CustomerFilter{MinLTV: 10000}, []string{"c1"}},
		{"engaged", CustomerFilter{EngagedOnly: true}, []string{"c1"}},
		{"no match", CustomerFilter{Segment: "smb", EngagedOnly: true}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Customers().List(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			ids := make([]string, len(got))
			for i := range got {
				ids[i] = got[i].ID
			}
			if !slices.Equal(ids, tt.want) {
				t.Errorf("ids = %v, want %v", ids, tt.want)
			}
		})
	}

	if _, err := c.Customers().List(context.Background(), CustomerFilter{Segment: "galactic"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestCustomers_UpsertAndRemove(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	cs := c.Customers()
	if _, err := cs.Index(ctx); err != nil {
		t.Fatalf("Index: %v", err)
	}

	degraded, err := cs.Upsert(ctx, Customer{
		ID:          "c3",
		Name:        "Caro",
		CompanyName: "Ledger Co",
		Segment:     "mid_market",
		Engagement:  "medium",
		PainPoints:  []string{"Billing disputes"},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if degraded {
		t.Error("upsert reported degraded with a healthy provider")
	}

	matches, err := cs.SearchForCampaign(ctx, CampaignQuery{Theme: "billing", TopK: 1})
	if err != nil {
		t.Fatalf("SearchForCampaign: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "c3" {
		t.Errorf("matches = %+v, want c3 first", matches)
	}

	if _, err := cs.Upsert(ctx, Customer{ID: "c4", Segment: "galactic", Engagement: "low"}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("invalid segment: err = %v", err)
	}

	if err := cs.Remove(ctx, "c3"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := c.Documents().Get(ctx, "customer_c3"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("document after remove: err = %v", err)
	}
	all, err := cs.List(ctx, CustomerFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("customers after remove = %d, want 2", len(all))
	}
}

func TestCreatePlanAndEvaluate(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	if _, err := c.Customers().Index(ctx); err != nil {
		t.Fatalf("Index: %v", err)
	}

	p, err := c.CreatePlan(ctx, PlanRequest{Objective: "Launch a security awareness email campaign", Budget: 5000})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if p.ID == "" || len(p.Steps) == 0 || len(p.CustomerIDs) == 0 {
		t.Errorf("plan = %+v", p)
	}
	if p.Confidence <= 0 || p.Confidence > 1 {
		t.Errorf("confidence = %v", p.Confidence)
	}
	if p.EstimatedDuration <= 0 {
		t.Error("plan has no duration")
	}

	if _, err := c.CreatePlan(ctx, PlanRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("empty objective err = %v, want ErrInvalidRequest", err)
	}

	ev, err := c.EvaluateOutcome(ctx, p.ID, map[string]float64{"engagement_rate": 0.2, "conversion_rate": 0.06})
	if err != nil {
		t.Fatalf("EvaluateOutcome: %v", err)
	}
	if ev.CampaignID != p.ID || len(ev.Learnings) == 0 {
		t.Errorf("evaluation = %+v", ev)
	}
}

func TestWithPrometheus_CountsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, emb := newTestClient(t, WithPrometheus(reg))
	ctx := context.Background()
	if _, err := c.Customers().Index(ctx); err != nil {
		t.Fatalf("Index: %v", err)
	}

	if _, err := c.Search(ctx, "security", 1, nil); err != nil {
		t.Fatalf("Search: %v", err)
	}
	emb.err = errors.New("down")
	if _, err := c.Search(ctx, "security", 1, nil); err != nil {
		t.Fatalf("Search: %v", err)
	}

	ops := c.obs.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("search", "ok")); got != 1 {
		t.Errorf("ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("search", "degraded")); got != 1 {
		t.Errorf("degraded = %v, want 1", got)
	}

	// A second client on the same registry reuses the collectors.
	if _, err := New(ctx, WithPrometheus(reg)); err != nil {
		t.Fatalf("second New: %v", err)
	}
}

func TestExternalEmbedder_WrapsError(t *testing.T) {
	down := errors.New("provider down")
	if _, err := (external{&keywordEmbedder{err: down}}).Embed(context.Background(), "hello"); !errors.Is(err, down) {
		t.Fatalf("err = %v, want wrapped provider error", err)
	}
}

func TestEmbedderFunc_WrongDimensionsDegrade(t *testing.T) {
	short := EmbedderFunc(func(context.Context, string) (EmbeddingResult, error) {
		return EmbeddingResult{Embedding: []float32{1, 0}}, nil
	})
	c, _ := newTestClient(t, WithEmbedder(short))

	res, err := c.Documents().Put(context.Background(), Document{ID: "d1", Content: "cloud guide"})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !res.Degraded {
		t.Error("a vector of the wrong length must be replaced by a fallback vector")
	}
}
