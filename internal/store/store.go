// Package store defines the collection-scoped document store used by every
// pipeline stage. Documents are JSON-shaped maps; implementations normalize
// written data to its JSON form so callers observe the same value types
// (string, float64, bool, []any, map[string]any) regardless of backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

// Collection names.
const (
	CollectionCases         = "anzen-site-cases"
	CollectionCategories    = "categories"
	CollectionInternalCases = "internal_cases"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is a stored record.
type Document struct {
	ID   string
	Data map[string]any
}

// Op is a filter comparison operator.
type Op string

const (
	OpEqual    Op = "=="
	OpNotEqual Op = "!="
	OpLess     Op = "<"
	OpGreater  Op = ">"
)

// Filter is a single top-level field predicate.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents from a collection. Zero Limit means no limit.
// Without OrderBy, documents come back in insertion order.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Update is one entry of an atomic batch: Fields are merged into ID.
type Update struct {
	ID     string
	Fields map[string]any
}

// Store is a collection-scoped document store.
type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	All(ctx context.Context, collection string) ([]Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Create inserts data under a generated id.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)
	// Set replaces the whole document, creating it when absent.
	Set(ctx context.Context, collection, id string, data map[string]any) error
	// Merge overwrites only the given top-level fields. Missing document
	// yields ErrNotFound.
	Merge(ctx context.Context, collection, id string, fields map[string]any) error
	// BatchUpdate merges every update or none of them.
	BatchUpdate(ctx context.Context, collection string, updates []Update) error
	// Delete removes the document. Deleting a missing document is not an
	// error.
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// fieldName accepts identifiers in any script; source case records key
// their fields in Japanese.
var fieldName = regexp.MustCompile(`^[\pL_][\pL\pN_]*$`)

// ValidateQuery rejects field names that are not identifiers and unknown
// operators.
func ValidateQuery(q Query) error {
	for _, f := range q.Filters {
		if !fieldName.MatchString(f.Field) {
			return fmt.Errorf("invalid filter field %q", f.Field)
		}
		switch f.Op {
		case OpEqual, OpNotEqual, OpLess, OpGreater:
		default:
			return fmt.Errorf("invalid filter operator %q", f.Op)
		}
	}
	if q.OrderBy != "" && !fieldName.MatchString(q.OrderBy) {
		return fmt.Errorf("invalid order field %q", q.OrderBy)
	}
	if q.Limit < 0 {
		return fmt.Errorf("negative limit %d", q.Limit)
	}
	return nil
}

// Normalize returns the JSON round-trip of data.
func Normalize(data map[string]any) (map[string]any, error) {
	if data == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return out, nil
}

// Matches reports whether data satisfies every filter. A missing field
// compares as nil: it is != any non-nil value and never < or >.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v := data[f.Field]
		switch f.Op {
		case OpEqual:
			if !equal(v, f.Value) {
				return false
			}
		case OpNotEqual:
			if equal(v, f.Value) {
				return false
			}
		case OpLess, OpGreater:
			c, ok := Compare(v, f.Value)
			if !ok || (f.Op == OpLess && c >= 0) || (f.Op == OpGreater && c <= 0) {
				return false
			}
		}
	}
	return true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	c, ok := Compare(a, b)
	return ok && c == 0
}

// Compare orders two scalar values of the same kind (strings or numbers).
func Compare(a, b any) (int, bool) {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		}
		return 0, true
	}
	af, aok := number(a)
	bf, bok := number(b)
	if !aok || !bok {
		if ab, ok := a.(bool); ok {
			if bb, ok := b.(bool); ok && ab == bb {
				return 0, true
			}
		}
		return 0, false
	}
	switch {
	case af < bf:
		return -1, true
	case af > bf:
		return 1, true
	}
	return 0, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
