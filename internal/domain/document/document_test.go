package document

import (
	"errors"
	"strings"
	"testing"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
)

func TestNew_Valid(t *testing.T) {
	meta := metadata.Metadata{"type": metadata.String("customer")}

	doc, err := New("customer_cust_001", "Customer: Sarah Chen", meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID() != "customer_cust_001" {
		t.Errorf("ID() = %q", doc.ID())
	}
	if doc.Content() != "Customer: Sarah Chen" {
		t.Errorf("Content() = %q", doc.Content())
	}
	if !doc.Metadata()["type"].Equal(metadata.String("customer")) {
		t.Errorf("Metadata() = %v", doc.Metadata())
	}
	if doc.Embedding() != nil {
		t.Error("Embedding() should be nil for new document")
	}
}

func TestNew_EmptyContentAllowed(t *testing.T) {
	if _, err := New("doc-1", "", nil); err != nil {
		t.Fatalf("empty content should be legal, got %v", err)
	}
}

func TestNew_ClonesMetadata(t *testing.T) {
	meta := metadata.Metadata{"k": metadata.String("v")}
	doc, _ := New("doc-1", "content", meta)

	meta["k"] = metadata.String("mutated")

	if !doc.Metadata()["k"].Equal(metadata.String("v")) {
		t.Error("metadata mutation leaked into document")
	}
}

func TestNew_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		content string
		meta    metadata.Metadata
	}{
		{"empty id", "", "content", nil},
		{"id too long", strings.Repeat("a", MaxIDLength+1), "content", nil},
		{"content too large", "doc-1", strings.Repeat("x", MaxContentSize+1), nil},
		{"invalid metadata value", "doc-1", "content", metadata.Metadata{"k": {}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.id, tt.content, tt.meta)
			if !errors.Is(err, domain.ErrInvalidRequest) {
				t.Errorf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestWithEmbedding(t *testing.T) {
	doc, _ := New("doc-1", "content", nil)
	withVec := doc.WithEmbedding([]float32{1, 0, 0})

	if withVec.Dimensions() != 3 {
		t.Errorf("Dimensions() = %d, want 3", withVec.Dimensions())
	}
	if doc.Embedding() != nil {
		t.Error("original document must stay unchanged")
	}
}
