package nexusrag

import (
	"context"
	"fmt"

	"github.com/nexusplanner/nexusrag/internal/domain"
)

// Embedder is a pluggable embedding provider. Vectors whose length differs
// from the client dimensions are discarded and replaced by a fallback vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbedderFunc adapts a plain function to Embedder.
type EmbedderFunc func(ctx context.Context, text string) (EmbeddingResult, error)

// Embed calls f.
func (f EmbedderFunc) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return f(ctx, text)
}

// EmbeddingResult is a provider vector and the tokens it consumed.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// external bridges a caller-supplied Embedder into the internal chain.
type external struct{ Embedder }

func (e external) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := e.Embedder.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("custom embedder: %w", err)
	}
	return domain.EmbeddingResult{Embedding: r.Embedding, PromptTokens: r.PromptTokens, TotalTokens: r.TotalTokens}, nil
}
