package nexusrag

import (
	"context"
	"fmt"
	"slices"
	"time"

	dombatch "github.com/nexusplanner/nexusrag/internal/domain/batch"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
	"github.com/nexusplanner/nexusrag/internal/domain/search/filter"
	"github.com/nexusplanner/nexusrag/internal/domain/search/request"
	documentuc "github.com/nexusplanner/nexusrag/internal/usecase/document"
)

// DocumentService manages the document store.
type DocumentService struct {
	svc *documentuc.Service
	obs *observer
}

// Put embeds and stores a document, replacing any with the same ID.
func (s *DocumentService) Put(ctx context.Context, doc Document) (res PutResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("put", start, res.Degraded, err) }()

	meta, err := metadata.FromMap(doc.Metadata)
	if err != nil {
		return PutResult{}, fmt.Errorf("put: %w", err)
	}
	r, err := s.svc.Put(ctx, doc.ID, doc.Content, meta)
	if err != nil {
		return PutResult{}, fmt.Errorf("put: %w", err)
	}
	return PutResult{Created: r.Created, Degraded: r.Degraded}, nil
}

// PutBatch stores documents in order. Per-item failures are reported in the results.
func (s *DocumentService) PutBatch(ctx context.Context, docs []Document) []BatchResult {
	start := time.Now()

	out := make([]BatchResult, len(docs))
	items := make([]documentuc.Item, 0, len(docs))
	pos := make([]int, 0, len(docs))
	for i, d := range docs {
		meta, err := metadata.FromMap(d.Metadata)
		if err != nil {
			out[i] = BatchResult{ID: d.ID, Err: fmt.Errorf("metadata: %w", err)}
			continue
		}
		items = append(items, documentuc.Item{ID: d.ID, Content: d.Content, Metadata: meta})
		pos = append(pos, i)
	}

	degraded := false
	for j, r := range s.svc.PutBatch(ctx, items) {
		out[pos[j]] = BatchResult{
			ID:       r.ID(),
			OK:       r.Stored(),
			Degraded: r.Status() == dombatch.StatusDegraded,
			Err:      r.Err(),
		}
		degraded = degraded || r.Status() == dombatch.StatusDegraded
	}
	s.obs.observe("put_batch", start, degraded, nil)
	return out
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (Document, error) {
	d, err := s.svc.Get(ctx, id)
	if err != nil {
		return Document{}, fmt.Errorf("get document: %w", err)
	}
	return Document{
		ID:        d.ID(),
		Content:   d.Content(),
		Metadata:  d.Metadata().ToMap(),
		Embedding: slices.Clone(d.Embedding()),
	}, nil
}

// Delete removes a document. Deleting an absent ID succeeds.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if err := s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Clear removes every document, including indexed customers.
func (s *DocumentService) Clear(ctx context.Context) error {
	if err := s.svc.Clear(ctx); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	return nil
}

// Stats describes the store.
func (s *DocumentService) Stats(ctx context.Context) (StoreStats, error) {
	st, err := s.svc.Stats(ctx)
	if err != nil {
		return StoreStats{}, fmt.Errorf("stats: %w", err)
	}
	return StoreStats{
		TotalDocuments: st.TotalDocuments,
		MetadataKeys:   st.MetadataKeys,
		EmbeddingModel: st.EmbeddingModel,
		Dimensions:     st.Dimensions,
	}, nil
}

// Search returns the topK documents most similar to query among those whose
// metadata equals every filter entry. topK <= 0 returns no hits.
func (c *Client) Search(ctx context.Context, query string, topK int, filters map[string]any) (res SearchResults, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, res.Degraded, err) }()

	meta, err := metadata.FromMap(filters)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search filter: %w", err)
	}
	expr, err := filter.FromMetadata(meta)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search filter: %w", err)
	}
	req, err := request.New(query, topK, expr)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search: %w", err)
	}

	resp, err := c.searchSvc.Retrieve(ctx, &req)
	if err != nil {
		return SearchResults{}, fmt.Errorf("search: %w", err)
	}
	hits := make([]SearchResult, len(resp.Results))
	for i := range resp.Results {
		r := &resp.Results[i]
		doc := r.Document()
		hits[i] = SearchResult{ID: r.ID(), Score: r.Score(), Content: doc.Content(), Metadata: doc.Metadata().ToMap()}
	}
	return SearchResults{Hits: hits, Degraded: resp.Degraded}, nil
}
