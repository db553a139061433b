// Package incident records accidents reported inside the organisation and
// serves the most recent ones as grounding for safety suggestions.
package incident

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/efebarandurmaz/anzen/internal/store"
)

// ErrInvalid is returned for a case missing a required field or carrying an
// unparseable date.
var ErrInvalid = errors.New("invalid internal case")

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldCause       = "cause"
	fieldMeasures    = "measures"
	fieldOccurredAt  = "occurredAt"
	fieldCreatedAt   = "createdAt"
)

// NewCase is the registration payload.
type NewCase struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Cause       string `json:"cause"`
	Measures    string `json:"measures"`
	OccurredAt  string `json:"occurredAt,omitempty"`
}

// Case is a stored internal case.
type Case struct {
	ID          string
	Title       string
	Description string
	Cause       string
	Measures    string
	OccurredAt  *time.Time
	CreatedAt   time.Time
}

// Store persists internal cases in the internal_cases collection.
type Store struct {
	docs store.Store
	now  func() time.Time
}

// NewStore wraps a document store.
func NewStore(docs store.Store) *Store {
	return &Store{docs: docs, now: time.Now}
}

// Validate checks required fields and parses OccurredAt.
func (n NewCase) Validate() (*time.Time, error) {
	var missing []string
	for _, f := range [][2]string{
		{fieldTitle, n.Title}, {fieldDescription, n.Description}, {fieldCause, n.Cause}, {fieldMeasures, n.Measures},
	} {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	if strings.TrimSpace(n.OccurredAt) == "" {
		return nil, nil
	}
	t, err := ParseDate(n.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("%w: occurredAt: %v", ErrInvalid, err)
	}
	return &t, nil
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

// Create validates and stores c, returning the new id.
func (s *Store) Create(ctx context.Context, c NewCase) (string, error) {
	occurred, err := c.Validate()
	if err != nil {
		return "", err
	}
	data := map[string]any{
		fieldTitle:       strings.TrimSpace(c.Title),
		fieldDescription: strings.TrimSpace(c.Description),
		fieldCause:       strings.TrimSpace(c.Cause),
		fieldMeasures:    strings.TrimSpace(c.Measures),
		fieldOccurredAt:  nil,
		fieldCreatedAt:   s.now().UTC().Format(timeLayout),
	}
	if occurred != nil {
		data[fieldOccurredAt] = occurred.UTC().Format(timeLayout)
	}
	id, err := s.docs.Create(ctx, store.CollectionInternalCases, data)
	if err != nil {
		return "", fmt.Errorf("saving internal case: %w", err)
	}
	return id, nil
}

// Recent returns up to n cases, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Case, error) {
	docs, err := s.docs.Query(ctx, store.CollectionInternalCases, store.Query{
		OrderBy: fieldCreatedAt,
		Desc:    true,
		Limit:   n,
	})
	if err != nil {
		return nil, fmt.Errorf("loading internal cases: %w", err)
	}
	out := make([]Case, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDocument(d))
	}
	return out, nil
}

func fromDocument(d store.Document) Case {
	str := func(k string) string {
		v, _ := d.Data[k].(string)
		return v
	}
	c := Case{
		ID:          d.ID,
		Title:       str(fieldTitle),
		Description: str(fieldDescription),
		Cause:       str(fieldCause),
		Measures:    str(fieldMeasures),
	}
	if t, err := time.Parse(timeLayout, str(fieldCreatedAt)); err == nil {
		c.CreatedAt = t
	}
	if t, err := time.Parse(timeLayout, str(fieldOccurredAt)); err == nil {
		c.OccurredAt = &t
	}
	return c
}
