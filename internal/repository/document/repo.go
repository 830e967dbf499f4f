package document

import (
	"context"
	"sort"
	"sync"

	"github.com/nexusplanner/nexusrag/internal/domain"
	domdoc "github.com/nexusplanner/nexusrag/internal/domain/document"
)

// Repo is the in-memory document store. Iteration follows insertion order;
// an overwrite keeps the original position.
type Repo struct {
	mu    sync.RWMutex
	dims  int
	docs  map[string]domdoc.Document
	order []string
}

// New creates an empty repository. dims fixes the expected embedding length;
// zero means the first stored vector decides it.
func New(dims int) *Repo {
	return &Repo{
		dims: dims,
		docs: make(map[string]domdoc.Document),
	}
}

// Upsert stores doc, replacing any document with the same id.
// Returns true if the document was created.
func (r *Repo) Upsert(_ context.Context, doc domdoc.Document) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if want := r.expectedDims(); want > 0 && doc.Dimensions() != want {
		return false, domain.NewDimMismatch(doc.Dimensions(), want)
	}

	_, exists := r.docs[doc.ID()]
	r.docs[doc.ID()] = doc
	if !exists {
		r.order = append(r.order, doc.ID())
	}
	return !exists, nil
}

// expectedDims must be called with mu held.
func (r *Repo) expectedDims() int {
	if r.dims > 0 {
		return r.dims
	}
	if len(r.order) == 0 {
		return 0
	}
	first := r.docs[r.order[0]]
	return first.Dimensions()
}

// Get returns a document by id.
func (r *Repo) Get(_ context.Context, id string) (domdoc.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return doc, nil
}

// Delete removes a document. Deleting an absent id is a no-op.
func (r *Repo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return nil
	}
	delete(r.docs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every document.
func (r *Repo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs = make(map[string]domdoc.Document)
	r.order = nil
	return nil
}

// All returns a snapshot of every document in insertion order.
func (r *Repo) All(_ context.Context) ([]domdoc.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domdoc.Document, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.docs[id])
	}
	return out, nil
}

// Count returns the number of stored documents.
func (r *Repo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs), nil
}

// MetadataKeys returns the distinct metadata keys across all documents, sorted.
func (r *Repo) MetadataKeys(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, doc := range r.docs {
		for k := range doc.Metadata() {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Dimensions returns the embedding length currently enforced, or 0 if none yet.
func (r *Repo) Dimensions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.expectedDims()
}
