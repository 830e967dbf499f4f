// Package vector implements the similarity metric used for ranking.
package vector

import (
	"math"

	"github.com/nexusplanner/nexusrag/internal/domain"
)

// Cosine returns dot(a,b) / (|a| * |b|), accumulated in float64.
// A zero-norm vector scores 0. Vectors of different length are rejected.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.NewDimMismatch(len(b), len(a))
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
