package search

import (
	"context"

	"github.com/nexusplanner/nexusrag/internal/domain"
	domdoc "github.com/nexusplanner/nexusrag/internal/domain/document"
)

// Repository exposes the documents to rank.
type Repository interface {
	All(ctx context.Context) ([]domdoc.Document, error)
	Count(ctx context.Context) (int, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
