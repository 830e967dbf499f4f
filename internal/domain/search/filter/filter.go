package filter

import (
	"fmt"
	"sort"

	"github.com/nexusplanner/nexusrag/internal/domain"
	"github.com/nexusplanner/nexusrag/internal/domain/metadata"
)

// MaxConditions is the maximum number of conditions in one filter.
const MaxConditions = 32

// Expression is a conjunction of exact-match conditions over document metadata.
// The zero Expression matches every document.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must ...Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many filter conditions (max %d): %w", MaxConditions, domain.ErrInvalidRequest)
	}
	seen := make(map[string]struct{}, len(must))
	for _, c := range must {
		if _, dup := seen[c.key]; dup {
			return Expression{}, fmt.Errorf("duplicate filter key %q: %w", c.key, domain.ErrInvalidRequest)
		}
		seen[c.key] = struct{}{}
	}
	return Expression{must: must}, nil
}

// FromMetadata builds an Expression requiring every key of m, in key order.
func FromMetadata(m metadata.Metadata) (Expression, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]Condition, 0, len(keys))
	for _, k := range keys {
		c, err := NewMatch(k, m[k])
		if err != nil {
			return Expression{}, err
		}
		conds = append(conds, c)
	}
	return NewExpression(conds...)
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Matches reports whether every condition holds for meta.
// A key missing from meta fails its condition.
func (e Expression) Matches(meta metadata.Metadata) bool {
	for _, c := range e.must {
		if !c.Matches(meta) {
			return false
		}
	}
	return true
}

// Condition requires a metadata key to hold exactly the given value.
type Condition struct {
	key   string
	value metadata.Value
}

// NewMatch creates an exact match condition.
func NewMatch(key string, value metadata.Value) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required: %w", domain.ErrInvalidRequest)
	}
	if !value.IsValid() {
		return Condition{}, fmt.Errorf("match value is required for key %q: %w", key, domain.ErrInvalidRequest)
	}
	return Condition{key: key, value: value}, nil
}

// Key returns the metadata key.
func (c Condition) Key() string { return c.key }

// Value returns the expected value.
func (c Condition) Value() metadata.Value { return c.value }

// Matches reports whether meta holds the expected value under the key.
func (c Condition) Matches(meta metadata.Metadata) bool {
	got, ok := meta[c.key]
	return ok && got.Equal(c.value)
}
