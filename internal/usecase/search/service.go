package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/nexusplanner/nexusrag/internal/domain"
	domdoc "github.com/nexusplanner/nexusrag/internal/domain/document"
	"github.com/nexusplanner/nexusrag/internal/domain/search/request"
	"github.com/nexusplanner/nexusrag/internal/domain/search/result"
	"github.com/nexusplanner/nexusrag/internal/domain/vector"
	"github.com/nexusplanner/nexusrag/internal/metrics"
)

// Response is a ranked retrieval result.
type Response struct {
	Results []result.Result
	// Degraded is true when the query vector came from the fallback embedder.
	Degraded bool
}

// Service ranks stored documents by cosine similarity to a query.
type Service struct {
	repo  Repository
	embed Embedder
}

// New creates a search service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Retrieve returns up to TopK documents matching the filter, best first.
// Equal scores are ordered by document id. The query is not embedded when
// the result is known to be empty.
func (s *Service) Retrieve(ctx context.Context, req *request.Request) (Response, error) {
	if req.IsNoop() {
		return Response{}, nil
	}

	n, err := s.repo.Count(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("count documents: %w", err)
	}
	if n == 0 {
		return Response{}, nil
	}

	start := time.Now()

	embResult, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		return Response{}, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).Record(embResult)

	docs, err := s.repo.All(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("list documents: %w", err)
	}

	candidates := docs[:0]
	for i := range docs {
		if req.Filters().Matches(docs[i].Metadata()) {
			candidates = append(candidates, docs[i])
		}
	}
	metrics.RetrievalCandidates.Observe(float64(len(candidates)))

	results, err := rank(embResult.Embedding, candidates)
	if err != nil {
		return Response{}, err
	}
	if len(results) > req.TopK() {
		results = results[:req.TopK()]
	}

	metrics.RetrievalDuration.WithLabelValues(strconv.FormatBool(embResult.Degraded)).
		Observe(time.Since(start).Seconds())

	return Response{Results: results, Degraded: embResult.Degraded}, nil
}

func rank(query []float32, docs []domdoc.Document) ([]result.Result, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	results := make([]result.Result, 0, len(docs))
	for i := range docs {
		score, err := vector.Cosine(query, docs[i].Embedding())
		if err != nil {
			return nil, fmt.Errorf("score document %s: %w", docs[i].ID(), err)
		}
		results = append(results, result.New(docs[i], score))
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score() != results[j].Score() {
			return results[i].Score() > results[j].Score()
		}
		return results[i].ID() < results[j].ID()
	})
	return results, nil
}
