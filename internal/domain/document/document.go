package document

import (
	"fmt"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
)

// Limits on document identity and payload.
const (
	MaxIDLength    = 256
	MaxContentSize = 163840 // 160KB
)

// Document is the indexed unit of the store (immutable value object).
// Identity is the id: putting the same id again replaces the document completely.
type Document struct {
	id        string
	content   string
	embedding []float32
	metadata  metadata.Metadata
}

// New validates and creates a Document without an embedding.
// Empty content is legal; the embedding provider accepts any string.
func New(id, content string, meta metadata.Metadata) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required: %w", domain.ErrInvalidRequest)
	}
	if len(id) > MaxIDLength {
		return Document{}, fmt.Errorf("document ID too long (max %d): %w", MaxIDLength, domain.ErrInvalidRequest)
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes): %w", MaxContentSize, domain.ErrInvalidRequest)
	}
	for k, v := range meta {
		if k == "" || !v.IsValid() {
			return Document{}, fmt.Errorf("metadata key %q has no scalar value: %w", k, domain.ErrInvalidRequest)
		}
	}
	return Document{id: id, content: content, metadata: meta.Clone()}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, content string, embedding []float32, meta metadata.Metadata) Document {
	return Document{id: id, content: content, embedding: embedding, metadata: meta}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the text that was embedded.
func (d *Document) Content() string { return d.content }

// Embedding returns the embedding vector.
func (d *Document) Embedding() []float32 { return d.embedding }

// Metadata returns the filterable attributes.
func (d *Document) Metadata() metadata.Metadata { return d.metadata }

// Dimensions returns the embedding length.
func (d *Document) Dimensions() int { return len(d.embedding) }

// WithEmbedding returns a copy with the given embedding set.
func (d *Document) WithEmbedding(v []float32) Document {
	return Document{id: d.id, content: d.content, metadata: d.metadata, embedding: v}
}
