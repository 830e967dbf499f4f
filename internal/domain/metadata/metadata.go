// Package metadata holds the scalar key/value attributes attached to documents.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/nexusplanner/nexusrag/internal/domain"
)

// Kind is the type tag of a metadata Value.
type Kind uint8

// Value kinds.
const (
	KindInvalid Kind = iota
	KindString
	KindNumber
)

// Value is a scalar metadata value: either a string or a number.
// The zero Value is invalid and never equals anything.
type Value struct {
	kind Kind
	str  string
	num  float64
}

// String creates a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number creates a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// FromAny converts a decoded JSON/YAML scalar into a Value.
func FromAny(v any) (Value, error) {
	switch t := v.(type) {
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("metadata number %q: %w", t.String(), domain.ErrInvalidRequest)
		}
		return Number(f), nil
	case Value:
		return t, nil
	default:
		return Value{}, fmt.Errorf("metadata value of type %T is not a string or number: %w", v, domain.ErrInvalidRequest)
	}
}

// Kind returns the type tag.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether the value was constructed via String or Number.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the numeric payload.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Equal reports exact equality: same kind and same payload.
// String("1") does not equal Number(1).
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	default:
		return false
	}
}

// Any returns the payload as a plain Go value (string or float64).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the value as a bare JSON string or number.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str) //nolint:wrapcheck // stdlib encode of a string cannot fail
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return nil, fmt.Errorf("metadata number %v is not representable in JSON", v.num)
		}
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string or number; anything else is rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode metadata value: %w", err)
	}
	parsed, err := FromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Metadata is an open mapping of scalar attributes.
type Metadata map[string]Value

// FromMap converts a decoded map of scalars into Metadata.
func FromMap(m map[string]any) (Metadata, error) {
	if m == nil {
		return nil, nil
	}
	out := make(Metadata, len(m))
	for k, raw := range m {
		if k == "" {
			return nil, fmt.Errorf("metadata key is empty: %w", domain.ErrInvalidRequest)
		}
		val, err := FromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("metadata key %q: %w", k, err)
		}
		out[k] = val
	}
	return out, nil
}

// Get returns the value for key.
func (m Metadata) Get(key string) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// Keys returns the keys in ascending order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy (values are immutable).
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	c := make(Metadata, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// ToMap converts to plain Go values for serialization.
func (m Metadata) ToMap() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}
