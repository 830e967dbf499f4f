package result

import (
	"testing"

	"github.com/nexusplanner/nexusrag/internal/domain/document"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
)

func TestNew(t *testing.T) {
	doc := document.Reconstruct("doc-1", "hello", []float32{1, 0}, metadata.Metadata{"lang": metadata.String("go")})

	r := New(doc, 0.95)

	if r.ID() != "doc-1" {
		t.Errorf("ID() = %q", r.ID())
	}
	if r.Score() != 0.95 {
		t.Errorf("Score() = %f", r.Score())
	}
	got := r.Document()
	if got.Content() != "hello" {
		t.Errorf("Document().Content() = %q", got.Content())
	}
}
