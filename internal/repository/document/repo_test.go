package document

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/nexusplanner/nexusrag/internal/domain"
	domdoc "github.com/nexusplanner/nexusrag/internal/domain/document"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
)

func doc(id, content string, vec []float32, meta metadata.Metadata) domdoc.Document {
	return domdoc.Reconstruct(id, content, vec, meta)
}

func ids(docs []domdoc.Document) []string {
	out := make([]string, len(docs))
	for i := range docs {
		out[i] = docs[i].ID()
	}
	return out
}

func TestRepo_UpsertAndGet(t *testing.T) {
	r := New(3)
	ctx := context.Background()

	created, err := r.Upsert(ctx, doc("a", "alpha", []float32{1, 0, 0}, nil))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created {
		t.Error("expected created=true on first put")
	}

	got, err := r.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content() != "alpha" {
		t.Errorf("Content() = %q", got.Content())
	}
}

func TestRepo_OverwriteReplacesCompletely(t *testing.T) {
	r := New(2)
	ctx := context.Background()

	_, _ = r.Upsert(ctx, doc("a", "old", []float32{1, 0}, metadata.Metadata{"segment": metadata.String("smb")}))
	_, _ = r.Upsert(ctx, doc("b", "other", []float32{0, 1}, nil))
	created, err := r.Upsert(ctx, doc("a", "new", []float32{0, 1}, metadata.Metadata{"tier": metadata.Number(2)}))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created {
		t.Error("expected created=false on overwrite")
	}

	got, _ := r.Get(ctx, "a")
	if got.Content() != "new" {
		t.Errorf("Content() = %q, want new", got.Content())
	}
	if _, ok := got.Metadata()["segment"]; ok {
		t.Error("old metadata must not survive an overwrite")
	}
	if n, _ := r.Count(ctx); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
	all, _ := r.All(ctx)
	if !reflect.DeepEqual(ids(all), []string{"a", "b"}) {
		t.Errorf("order = %v, overwrite must keep position", ids(all))
	}
}

func TestRepo_GetMissing(t *testing.T) {
	_, err := New(0).Get(context.Background(), "nope")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestRepo_DeleteThenRetrieveAbsent(t *testing.T) {
	r := New(2)
	ctx := context.Background()
	_, _ = r.Upsert(ctx, doc("a", "", []float32{1, 0}, nil))
	_, _ = r.Upsert(ctx, doc("b", "", []float32{0, 1}, nil))

	if err := r.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := r.Delete(ctx, "a"); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
	all, _ := r.All(ctx)
	if !reflect.DeepEqual(ids(all), []string{"b"}) {
		t.Errorf("All() = %v", ids(all))
	}
}

func TestRepo_Clear(t *testing.T) {
	r := New(0)
	ctx := context.Background()
	_, _ = r.Upsert(ctx, doc("a", "", []float32{1}, nil))
	if err := r.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := r.Count(ctx); n != 0 {
		t.Errorf("Count() = %d after Clear", n)
	}
	if r.Dimensions() != 0 {
		t.Errorf("Dimensions() = %d, learned dimension should reset", r.Dimensions())
	}
}

func TestRepo_DimensionMismatchConfigured(t *testing.T) {
	r := New(4)
	_, err := r.Upsert(context.Background(), doc("a", "", []float32{1, 2, 3}, nil))
	var dme *domain.DimMismatchError
	if !errors.As(err, &dme) {
		t.Fatalf("expected DimMismatchError, got %v", err)
	}
	if dme.Got != 3 || dme.Want != 4 {
		t.Errorf("mismatch = %+v", dme)
	}
}

func TestRepo_DimensionLearnedFromFirstVector(t *testing.T) {
	r := New(0)
	ctx := context.Background()
	if _, err := r.Upsert(ctx, doc("a", "", []float32{1, 2}, nil)); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := r.Upsert(ctx, doc("b", "", []float32{1, 2, 3}, nil)); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
	if n, _ := r.Count(ctx); n != 1 {
		t.Errorf("rejected document must not be stored, Count() = %d", n)
	}
}

func TestRepo_LearnedDimensionSurvivesDeletingFirst(t *testing.T) {
	r := New(0)
	ctx := context.Background()
	_, _ = r.Upsert(ctx, doc("a", "", []float32{1, 2}, nil))
	_, _ = r.Upsert(ctx, doc("b", "", []float32{3, 4}, nil))
	_ = r.Delete(ctx, "a")

	if got := r.Dimensions(); got != 2 {
		t.Fatalf("Dimensions() = %d, want 2 from the remaining document", got)
	}
	if _, err := r.Upsert(ctx, doc("c", "", []float32{1}, nil)); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Errorf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestRepo_MetadataKeys(t *testing.T) {
	r := New(1)
	ctx := context.Background()
	_, _ = r.Upsert(ctx, doc("a", "", []float32{1}, metadata.Metadata{"type": metadata.String("customer"), "segment": metadata.String("smb")}))
	_, _ = r.Upsert(ctx, doc("b", "", []float32{1}, metadata.Metadata{"type": metadata.String("note"), "author": metadata.String("x")}))

	keys, err := r.MetadataKeys(ctx)
	if err != nil {
		t.Fatalf("MetadataKeys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"author", "segment", "type"}) {
		t.Errorf("MetadataKeys() = %v", keys)
	}
}

func TestRepo_ConcurrentAccess(t *testing.T) {
	r := New(1)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = r.Upsert(ctx, doc(fmt.Sprintf("d%d", i), "", []float32{1}, nil))
		}()
		go func() {
			defer wg.Done()
			_, _ = r.All(ctx)
		}()
	}
	wg.Wait()

	if n, _ := r.Count(ctx); n != 50 {
		t.Errorf("Count() = %d, want 50", n)
	}
}
