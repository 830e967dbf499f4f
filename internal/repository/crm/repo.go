// Package crm is the in-memory customer source backing the relevance layer.
package crm

import (
	"bytes"
	"context"
	"errors"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/domain/customer"
)

//go:embed seed.yaml
var defaultSeed []byte

// Repo holds customers keyed by id.
type Repo struct {
	mu        sync.RWMutex
	customers map[string]customer.Customer
}

// New creates a repository holding the given customers.
// A later customer with a duplicate id replaces the earlier one.
func New(customers []customer.Customer) *Repo {
	r := &Repo{customers: make(map[string]customer.Customer, len(customers))}
	for _, c := range customers {
		r.customers[c.ID()] = c
	}
	return r
}

// Load parses a YAML seed document. Relative engagement dates resolve against now.
func Load(rd io.Reader, now time.Time) ([]customer.Customer, error) {
	var f seedFile
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode customers: %w", err)
	}

	out := make([]customer.Customer, 0, len(f.Customers))
	for i, d := range f.Customers {
		c, err := d.toDomain(now)
		if err != nil {
			return nil, fmt.Errorf("customers[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// LoadFile reads customers from a YAML file. An empty path yields the built-in demo accounts.
func LoadFile(path string, now time.Time) ([]customer.Customer, error) {
	if path == "" {
		return Load(bytes.NewReader(defaultSeed), now)
	}
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open customers file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f, now)
}

// All returns every customer ordered by id.
func (r *Repo) All(_ context.Context) ([]customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]customer.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

// Get returns one customer.
func (r *Repo) Get(_ context.Context, id string) (customer.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok {
		return customer.Customer{}, fmt.Errorf("customer %s: %w", id, domain.ErrCustomerNotFound)
	}
	return c, nil
}

// Upsert stores or replaces a customer.
func (r *Repo) Upsert(_ context.Context, c customer.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.ID()] = c
	return nil
}

// Remove deletes a customer. Removing an unknown id is a no-op.
func (r *Repo) Remove(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.customers, id)
	return nil
}

// BySegment returns the customers of one segment ordered by id.
func (r *Repo) BySegment(ctx context.Context, s customer.Segment) ([]customer.Customer, error) {
	return r.filter(ctx, func(c *customer.Customer) bool { return c.Segment() == s })
}

// HighValue returns customers whose lifetime value is at least minLTV.
func (r *Repo) HighValue(ctx context.Context, minLTV float64) ([]customer.Customer, error) {
	return r.filter(ctx, func(c *customer.Customer) bool { return c.LifetimeValue() >= minLTV })
}

// Engaged returns customers with medium or high engagement.
func (r *Repo) Engaged(ctx context.Context) ([]customer.Customer, error) {
	return r.filter(ctx, func(c *customer.Customer) bool {
		return c.Engagement().AtLeast(customer.EngagementMedium)
	})
}

func (r *Repo) filter(ctx context.Context, keep func(*customer.Customer) bool) ([]customer.Customer, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for i := range all {
		if keep(&all[i]) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

// Stats summarizes the whole customer base.
func (r *Repo) Stats(ctx context.Context) (customer.Stats, error) {
	all, err := r.All(ctx)
	if err != nil {
		return customer.Stats{}, err
	}
	return customer.Summarize(all), nil
}
