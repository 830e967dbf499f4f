package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK ItemStatus = "ok"
	// StatusDegraded marks an item stored with a fallback embedding.
	StatusDegraded ItemStatus = "degraded"
	StatusError    ItemStatus = "error"
)

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	id     string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(id string) Result { return Result{id: id, status: StatusOK} }

// NewDegraded creates a result for an item stored with a fallback embedding.
func NewDegraded(id string) Result { return Result{id: id, status: StatusDegraded} }

// NewError creates a failed batch result.
func NewError(id string, err error) Result { return Result{id: id, status: StatusError, err: err} }

// ID returns the item identifier.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Stored reports whether the item reached the store.
func (r Result) Stored() bool { return r.status != StatusError }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Summary counts outcomes across a batch.
type Summary struct {
	OK       int
	Degraded int
	Failed   int
}

// Summarize tallies results by status.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.status {
		case StatusOK:
			s.OK++
		case StatusDegraded:
			s.Degraded++
		case StatusError:
			s.Failed++
		}
	}
	return s
}
