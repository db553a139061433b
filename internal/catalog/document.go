package catalog

import (
	"fmt"
	"math"

	"github.com/efebarandurmaz/anzen/internal/store"
)

// Source-site field names for case documents.
const (
	fieldTitle      = "title"
	fieldCause      = "原因"
	fieldMeasures   = "対策"
	fieldCategoryID = "categoryId"
)

// Category document field names.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldMeasures    = "measures"
	FieldEmbedding   = "embedding"
	FieldVideoURLs   = "videoUrls"
)

// CaseFromDocument decodes a source-site case. Unknown fields land in Extra.
func CaseFromDocument(d store.Document) Case {
	c := Case{ID: d.ID, Extra: map[string]any{}}
	for k, v := range d.Data {
		switch k {
		case fieldTitle:
			c.Title = asString(v)
		case fieldCause:
			c.Cause = asString(v)
		case fieldMeasures:
			c.Measures = asString(v)
		case fieldCategoryID:
			c.CategoryID = asString(v)
		default:
			c.Extra[k] = v
		}
	}
	return c
}

// CaseCategoryUpdate is the write-back that attaches a category to a case.
func CaseCategoryUpdate(caseID, categoryID string) store.Update {
	return store.Update{ID: caseID, Fields: map[string]any{fieldCategoryID: categoryID}}
}

// EligibleCaseQuery selects cases whose title, cause and measures are all
// non-empty strings.
func EligibleCaseQuery() store.Query {
	return store.Query{Filters: []store.Filter{
		{Field: fieldTitle, Op: store.OpGreater, Value: ""},
		{Field: fieldCause, Op: store.OpGreater, Value: ""},
		{Field: fieldMeasures, Op: store.OpGreater, Value: ""},
	}}
}

// CategoryFromDocument decodes both persisted shapes: the single-language
// shape (name string, description string, measures array) written by the
// builder, and the per-language object shape written by translation.
func CategoryFromDocument(d store.Document) (*Category, error) {
	c := &Category{
		ID:          d.ID,
		Name:        Localized{},
		Description: Localized{},
		Measures:    LocalizedList{},
		VideoURLs:   map[string]string{},
	}

	switch name := d.Data[FieldName].(type) {
	case string:
		c.Name[BaseLang] = name
	case map[string]any:
		c.Multilingual = true
		for k, v := range name {
			c.Name[Lang(k)] = asString(v)
		}
	case nil:
	default:
		return nil, fmt.Errorf("category %s: unexpected name type %T", d.ID, name)
	}

	switch desc := d.Data[FieldDescription].(type) {
	case string:
		c.Description[BaseLang] = desc
	case map[string]any:
		for k, v := range desc {
			c.Description[Lang(k)] = asString(v)
		}
	}

	switch m := d.Data[FieldMeasures].(type) {
	case []any:
		c.Measures[BaseLang] = asStrings(m)
	case map[string]any:
		for k, v := range m {
			if list, ok := v.([]any); ok {
				c.Measures[Lang(k)] = asStrings(list)
			}
		}
	}

	if raw, ok := d.Data[FieldEmbedding].([]any); ok {
		vec := make([]float32, 0, len(raw))
		for _, x := range raw {
			f, ok := x.(float64)
			if !ok || math.IsNaN(f) {
				vec = nil
				break
			}
			vec = append(vec, float32(f))
		}
		c.Embedding = vec
	}

	if urls, ok := d.Data[FieldVideoURLs].(map[string]any); ok {
		for k, v := range urls {
			if s := asString(v); s != "" {
				c.VideoURLs[k] = s
			}
		}
	}
	return c, nil
}

// Document encodes the category in the shape matching Multilingual.
func (c *Category) Document() map[string]any {
	doc := map[string]any{}
	if c.Multilingual {
		name, desc, measures := map[string]any{}, map[string]any{}, map[string]any{}
		for l, v := range c.Name {
			name[string(l)] = v
		}
		for l, v := range c.Description {
			desc[string(l)] = v
		}
		for l, v := range c.Measures {
			measures[string(l)] = v
		}
		doc[FieldName], doc[FieldDescription], doc[FieldMeasures] = name, desc, measures
	} else {
		doc[FieldName] = c.Name[BaseLang]
		doc[FieldDescription] = c.Description[BaseLang]
		doc[FieldMeasures] = c.Measures[BaseLang]
	}

	if c.Embedding != nil {
		doc[FieldEmbedding] = c.Embedding
	} else {
		doc[FieldEmbedding] = nil
	}
	if len(c.VideoURLs) > 0 {
		doc[FieldVideoURLs] = c.VideoURLs
	}
	return doc
}

// NewCategory builds the single-language category persisted by the builder.
func NewCategory(name string, d Details) *Category {
	return &Category{
		Name:        Localized{BaseLang: name},
		Description: Localized{BaseLang: d.Description},
		Measures:    LocalizedList{BaseLang: d.Measures},
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(list []any) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, asString(v))
	}
	return out
}
