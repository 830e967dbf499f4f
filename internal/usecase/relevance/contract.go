package relevance

import (
	"context"

	dombatch "github.com/nexusplanner/nexusrag/internal/domain/batch"
	"github.com/nexusplanner/nexusrag/internal/domain/customer"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
	"github.com/nexusplanner/nexusrag/internal/domain/search/request"
	"github.com/nexusplanner/nexusrag/internal/usecase/document"
	"github.com/nexusplanner/nexusrag/internal/usecase/search"
)

// CustomerSource reads and edits customers in the CRM.
type CustomerSource interface {
	All(ctx context.Context) ([]customer.Customer, error)
	Get(ctx context.Context, id string) (customer.Customer, error)
	Stats(ctx context.Context) (customer.Stats, error)
	BySegment(ctx context.Context, s customer.Segment) ([]customer.Customer, error)
	HighValue(ctx context.Context, minLTV float64) ([]customer.Customer, error)
	Engaged(ctx context.Context) ([]customer.Customer, error)
	Upsert(ctx context.Context, c customer.Customer) error
	Remove(ctx context.Context, id string) error
}

// DocumentWriter stores and removes customer documents.
type DocumentWriter interface {
	Put(ctx context.Context, id, content string, meta metadata.Metadata) (document.PutResult, error)
	PutBatch(ctx context.Context, items []document.Item) []dombatch.Result
	Delete(ctx context.Context, id string) error
}

// Retriever ranks documents against a query.
type Retriever interface {
	Retrieve(ctx context.Context, req *request.Request) (search.Response, error)
}
