package request

import (
	"fmt"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/domain/search/filter"
)

// Retrieval parameter limits.
const (
	// MaxQueryLength is the maximum allowed query length in bytes.
	MaxQueryLength = 8192
	DefaultTopK    = 5
)

// Request is a validated retrieval query.
type Request struct {
	query   string
	topK    int
	filters filter.Expression
}

// New validates retrieval parameters.
// An empty query is legal. topK <= 0 is legal and yields no results.
func New(query string, topK int, filters filter.Expression) (Request, error) {
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d bytes): %w", MaxQueryLength, domain.ErrInvalidRequest)
	}
	return Request{query: query, topK: topK, filters: filters}, nil
}

// Query returns the text to embed.
func (r *Request) Query() string { return r.query }

// TopK returns the maximum number of results.
func (r *Request) TopK() int { return r.topK }

// Filters returns the metadata pre-filter.
func (r *Request) Filters() filter.Expression { return r.filters }

// IsNoop reports whether the request can never return results.
func (r *Request) IsNoop() bool { return r.topK <= 0 }
