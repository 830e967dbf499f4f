package result

import "github.com/nexusplanner/nexusrag/internal/domain/document"

// Result is a single retrieval hit: a stored document and its cosine similarity to the query.
type Result struct {
	doc   document.Document
	score float64
}

// New creates a retrieval result.
func New(doc document.Document, score float64) Result {
	return Result{doc: doc, score: score}
}

// Document returns the matched document.
func (r *Result) Document() document.Document { return r.doc }

// ID returns the document identifier.
func (r *Result) ID() string { return r.doc.ID() }

// Score returns the cosine similarity in [-1, 1].
func (r *Result) Score() float64 { return r.score }
