package document

import (
	"context"
	"fmt"

	"github.com/nexusplanner/nexusrag/internal/domain"
	dombatch "github.com/nexusplanner/nexusrag/internal/domain/batch"
	domdoc "github.com/nexusplanner/nexusrag/internal/domain/document"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
	"github.com/nexusplanner/nexusrag/internal/metrics"
)

// MaxBatchSize is the maximum number of items per PutBatch call.
const MaxBatchSize = 500

// Item is one document to store in a batch.
type Item struct {
	ID       string
	Content  string
	Metadata metadata.Metadata
}

// PutResult describes a stored document.
type PutResult struct {
	Created  bool
	Degraded bool
}

// Stats describes the store contents.
type Stats struct {
	TotalDocuments int
	MetadataKeys   []string
	EmbeddingModel string
	Dimensions     int
}

// Service handles document storage with automatic vectorization.
type Service struct {
	repo         Repository
	embedder     Embedder
	model        string
	dimensions   int
	maxBatchSize int
}

// New creates a document service. model and dimensions are reported by Stats.
func New(repo Repository, embedder Embedder, model string, dimensions int) *Service {
	return &Service{
		repo:         repo,
		embedder:     embedder,
		model:        model,
		dimensions:   dimensions,
		maxBatchSize: MaxBatchSize,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Put embeds content and stores the document, replacing any document with the same id.
func (s *Service) Put(ctx context.Context, id, content string, meta metadata.Metadata) (PutResult, error) {
	doc, err := domdoc.New(id, content, meta)
	if err != nil {
		return PutResult{}, fmt.Errorf("validate document: %w", err)
	}

	result, err := s.embedder.Embed(ctx, doc.Content())
	if err != nil {
		return PutResult{}, fmt.Errorf("vectorize document: %w", err)
	}
	domain.UsageFromContext(ctx).Record(result)

	created, err := s.repo.Upsert(ctx, doc.WithEmbedding(result.Embedding))
	if err != nil {
		return PutResult{}, fmt.Errorf("upsert document %s: %w", id, err)
	}
	s.refreshGauge(ctx)

	return PutResult{Created: created, Degraded: result.Degraded}, nil
}

// PutBatch stores items in order. A failed item does not stop the batch and
// nothing is rolled back; only context cancellation aborts the remaining items.
func (s *Service) PutBatch(ctx context.Context, items []Item) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i, item := range items {
			results[i] = dombatch.NewError(
				item.ID,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidRequest),
			)
		}
		return results
	}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(items); j++ {
				results[j] = dombatch.NewError(items[j].ID, fmt.Errorf("batch aborted: %w", err))
			}
			return results
		}

		res, err := s.Put(ctx, item.ID, item.Content, item.Metadata)
		switch {
		case err != nil:
			results[i] = dombatch.NewError(item.ID, err)
		case res.Degraded:
			results[i] = dombatch.NewDegraded(item.ID)
		default:
			results[i] = dombatch.NewOK(item.ID)
		}
	}
	return results
}

// Get returns a document by id.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Delete removes a document. Deleting an absent id succeeds.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.refreshGauge(ctx)
	return nil
}

// Clear removes every document.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear documents: %w", err)
	}
	metrics.DocumentsStored.Set(0)
	return nil
}

// Stats reports document count, distinct metadata keys and the embedding setup.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	keys, err := s.repo.MetadataKeys(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("metadata keys: %w", err)
	}
	return Stats{
		TotalDocuments: n,
		MetadataKeys:   keys,
		EmbeddingModel: s.model,
		Dimensions:     s.dimensions,
	}, nil
}

func (s *Service) refreshGauge(ctx context.Context) {
	if n, err := s.repo.Count(ctx); err == nil {
		metrics.DocumentsStored.Set(float64(n))
	}
}
