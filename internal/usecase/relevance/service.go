// Package relevance indexes CRM customers as documents and finds the
// customers most relevant to a campaign theme.
package relevance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nexusplanner/nexusrag/internal/domain"
	dombatch "github.com/nexusplanner/nexusrag/internal/domain/batch"
	"github.com/nexusplanner/nexusrag/internal/domain/customer"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
	"github.com/nexusplanner/nexusrag/internal/domain/search/filter"
	"github.com/nexusplanner/nexusrag/internal/domain/search/request"
	"github.com/nexusplanner/nexusrag/internal/logger"
	"github.com/nexusplanner/nexusrag/internal/metrics"
	"github.com/nexusplanner/nexusrag/internal/usecase/document"
)

// IndexReport counts the outcome of indexing the customer base.
type IndexReport struct {
	Indexed  int
	Degraded int
	Failed   int
	Results  []dombatch.Result
}

// ReindexResult describes what happened to one customer's document.
type ReindexResult struct {
	CustomerID string
	DocumentID string
	Removed    bool
	Degraded   bool
}

// CampaignQuery selects customers for a campaign.
// Segment and MinEngagement are optional. TopK 0 means request.DefaultTopK.
type CampaignQuery struct {
	Theme          string
	TargetAudience string
	Segment        customer.Segment
	MinEngagement  customer.Engagement
	TopK           int
}

// Match is a customer with the similarity of its profile to the campaign.
type Match struct {
	Customer customer.Customer
	Score    float64
}

// CampaignResult lists matching customers, most relevant first.
type CampaignResult struct {
	Matches  []Match
	Degraded bool
}

// CustomerQuery narrows a customer listing. Zero fields do not filter.
type CustomerQuery struct {
	Segment     customer.Segment
	MinLTV      float64
	EngagedOnly bool
}

// Service keeps customer documents in the store and queries them.
type Service struct {
	crm    CustomerSource
	docs   DocumentWriter
	search Retriever
	logger *zap.Logger
}

// New creates a relevance service.
func New(crm CustomerSource, docs DocumentWriter, search Retriever, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{crm: crm, docs: docs, search: search, logger: log}
}

// Index writes one document per CRM customer. Individual failures are
// reported in the result and do not stop the run.
func (s *Service) Index(ctx context.Context) (IndexReport, error) {
	customers, err := s.crm.All(ctx)
	if err != nil {
		return IndexReport{}, fmt.Errorf("list customers: %w", err)
	}

	items := make([]document.Item, len(customers))
	for i := range customers {
		items[i] = itemFor(&customers[i])
	}

	results := s.docs.PutBatch(ctx, items)
	sum := dombatch.Summarize(results)

	log := logger.FromContext(ctx, s.logger)
	for _, r := range results {
		metrics.CustomersIndexedTotal.WithLabelValues(string(r.Status())).Inc()
		if r.Err() != nil {
			log.Warn("Customer indexing failed", zap.String("document_id", r.ID()), zap.Error(r.Err()))
		}
	}
	log.Info("Customers indexed",
		zap.Int("ok", sum.OK),
		zap.Int("degraded", sum.Degraded),
		zap.Int("failed", sum.Failed),
	)

	return IndexReport{
		Indexed:  sum.OK + sum.Degraded,
		Degraded: sum.Degraded,
		Failed:   sum.Failed,
		Results:  results,
	}, nil
}

// Reindex refreshes one customer's document, or removes it when the customer
// no longer exists in the CRM.
func (s *Service) Reindex(ctx context.Context, customerID string) (ReindexResult, error) {
	if customerID == "" {
		return ReindexResult{}, fmt.Errorf("customer ID is required: %w", domain.ErrInvalidRequest)
	}
	out := ReindexResult{CustomerID: customerID, DocumentID: customer.DocumentIDPrefix + customerID}

	c, err := s.crm.Get(ctx, customerID)
	if errors.Is(err, domain.ErrCustomerNotFound) {
		if err := s.docs.Delete(ctx, out.DocumentID); err != nil {
			return ReindexResult{}, fmt.Errorf("remove stale document: %w", err)
		}
		out.Removed = true
		metrics.CustomersIndexedTotal.WithLabelValues("removed").Inc()
		return out, nil
	}
	if err != nil {
		return ReindexResult{}, fmt.Errorf("get customer: %w", err)
	}

	item := itemFor(&c)
	res, err := s.docs.Put(ctx, item.ID, item.Content, item.Metadata)
	if err != nil {
		metrics.CustomersIndexedTotal.WithLabelValues(string(dombatch.StatusError)).Inc()
		return ReindexResult{}, fmt.Errorf("index customer %s: %w", customerID, err)
	}
	status := dombatch.StatusOK
	if res.Degraded {
		status = dombatch.StatusDegraded
	}
	metrics.CustomersIndexedTotal.WithLabelValues(string(status)).Inc()
	out.Degraded = res.Degraded
	return out, nil
}

// SearchCustomersForCampaign returns the customers whose profiles are most
// similar to the campaign theme. The engagement floor applies after ranking,
// so fewer than TopK customers may come back.
func (s *Service) SearchCustomersForCampaign(ctx context.Context, q CampaignQuery) (CampaignResult, error) {
	expr, err := campaignFilter(q.Segment)
	if err != nil {
		return CampaignResult{}, err
	}
	if q.MinEngagement != "" {
		if _, err := customer.ParseEngagement(string(q.MinEngagement)); err != nil {
			return CampaignResult{}, err //nolint:wrapcheck // already carries the field name
		}
	}
	topK := q.TopK
	if topK == 0 {
		topK = request.DefaultTopK
	}

	req, err := request.New(campaignQueryText(q), topK, expr)
	if err != nil {
		return CampaignResult{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.search.Retrieve(ctx, &req)
	if err != nil {
		return CampaignResult{}, fmt.Errorf("retrieve customers: %w", err)
	}

	log := logger.FromContext(ctx, s.logger)
	matches := make([]Match, 0, len(resp.Results))
	for _, hit := range resp.Results {
		doc := hit.Document()
		ref, ok := metadata.CustomerFrom(doc.Metadata())
		if !ok {
			log.Warn("Customer document without customer reference", zap.String("document_id", hit.ID()))
			continue
		}
		c, err := s.crm.Get(ctx, ref.CustomerID)
		if errors.Is(err, domain.ErrCustomerNotFound) {
			log.Warn("Skipping stale customer document",
				zap.String("document_id", hit.ID()),
				zap.String("customer_id", ref.CustomerID),
			)
			continue
		}
		if err != nil {
			return CampaignResult{}, fmt.Errorf("get customer %s: %w", ref.CustomerID, err)
		}
		if q.MinEngagement != "" && !c.Engagement().AtLeast(q.MinEngagement) {
			continue
		}
		matches = append(matches, Match{Customer: c, Score: hit.Score()})
	}

	return CampaignResult{Matches: matches, Degraded: resp.Degraded}, nil
}

// CRMStats summarizes the customer base.
func (s *Service) CRMStats(ctx context.Context) (customer.Stats, error) {
	st, err := s.crm.Stats(ctx)
	if err != nil {
		return customer.Stats{}, fmt.Errorf("crm stats: %w", err)
	}
	return st, nil
}

// ListCustomers returns the customers matching every set criterion, ordered by id.
func (s *Service) ListCustomers(ctx context.Context, q CustomerQuery) ([]customer.Customer, error) {
	if q.Segment != "" && !q.Segment.IsValid() {
		return nil, fmt.Errorf("unknown segment %q: %w", q.Segment, domain.ErrInvalidRequest)
	}
	if q.MinLTV < 0 {
		return nil, fmt.Errorf("negative lifetime value floor: %w", domain.ErrInvalidRequest)
	}

	var sets [][]customer.Customer
	add := func(cs []customer.Customer, err error) error {
		if err != nil {
			return fmt.Errorf("list customers: %w", err)
		}
		sets = append(sets, cs)
		return nil
	}
	if q.Segment != "" {
		if err := add(s.crm.BySegment(ctx, q.Segment)); err != nil {
			return nil, err
		}
	}
	if q.MinLTV > 0 {
		if err := add(s.crm.HighValue(ctx, q.MinLTV)); err != nil {
			return nil, err
		}
	}
	if q.EngagedOnly {
		if err := add(s.crm.Engaged(ctx)); err != nil {
			return nil, err
		}
	}
	if len(sets) == 0 {
		all, err := s.crm.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("list customers: %w", err)
		}
		return all, nil
	}
	return intersect(sets), nil
}

// UpsertCustomer stores the profile in the CRM and refreshes its document.
func (s *Service) UpsertCustomer(ctx context.Context, p customer.Profile) (ReindexResult, error) {
	c, err := customer.New(p)
	if err != nil {
		return ReindexResult{}, err //nolint:wrapcheck // already carries the customer id
	}
	if err := s.crm.Upsert(ctx, c); err != nil {
		return ReindexResult{}, fmt.Errorf("upsert customer: %w", err)
	}
	logger.FromContext(ctx, s.logger).Info("Customer upserted", zap.String("customer_id", c.ID()))
	return s.Reindex(ctx, c.ID())
}

// RemoveCustomer deletes the customer from the CRM and drops its document.
func (s *Service) RemoveCustomer(ctx context.Context, customerID string) (ReindexResult, error) {
	if customerID == "" {
		return ReindexResult{}, fmt.Errorf("customer ID is required: %w", domain.ErrInvalidRequest)
	}
	if err := s.crm.Remove(ctx, customerID); err != nil {
		return ReindexResult{}, fmt.Errorf("remove customer: %w", err)
	}
	logger.FromContext(ctx, s.logger).Info("Customer removed", zap.String("customer_id", customerID))
	return s.Reindex(ctx, customerID)
}

// intersect keeps the customers present in every set, in the order of the first.
func intersect(sets [][]customer.Customer) []customer.Customer {
	counts := make(map[string]int)
	for _, set := range sets {
		for i := range set {
			counts[set[i].ID()]++
		}
	}
	out := make([]customer.Customer, 0, len(sets[0]))
	for i := range sets[0] {
		if counts[sets[0][i].ID()] == len(sets) {
			out = append(out, sets[0][i])
		}
	}
	return out
}

func itemFor(c *customer.Customer) document.Item {
	return document.Item{
		ID:       c.DocumentID(),
		Content:  c.ContextString(),
		Metadata: c.DocumentMetadata(),
	}
}

func campaignQueryText(q CampaignQuery) string {
	if q.TargetAudience == "" {
		return q.Theme
	}
	return q.Theme + " targeting " + q.TargetAudience
}

func campaignFilter(seg customer.Segment) (filter.Expression, error) {
	m := metadata.Metadata{metadata.KeyType: metadata.String(metadata.TypeCustomer)}
	if seg != "" {
		if !seg.IsValid() {
			return filter.Expression{}, fmt.Errorf("unknown segment %q: %w", seg, domain.ErrInvalidRequest)
		}
		m[metadata.KeySegment] = metadata.String(string(seg))
	}
	expr, err := filter.FromMetadata(m)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("build filter: %w", err)
	}
	return expr, nil
}
