package embedding

import (
	"context"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"

	"github.com/nexusplanner/nexusrag/internal/domain"
)

// HashEmbedder is the deterministic pseudo-random embedder used when no
// provider is available. The PCG generator is seeded from xxhash64 of the
// text, so the same text yields bit-identical vectors in every process.
// Values are uniform in [0, 1); the vectors carry no semantic meaning.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a fallback embedder producing dims-length vectors.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = domain.DefaultVectorConfig().Dimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the vector length.
func (h *HashEmbedder) Dimensions() int { return h.dims }

// Embed never fails and never consumes tokens.
func (h *HashEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: h.Vector(text)}, nil
}

// Vector returns the deterministic vector for text.
func (h *HashEmbedder) Vector(text string) []float32 {
	seed := xxhash.Sum64String(text)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) //nolint:gosec // not used for security

	vec := make([]float32, h.dims)
	for i := range vec {
		vec[i] = rng.Float32()
	}
	return vec
}
