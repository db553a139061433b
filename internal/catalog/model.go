// Package catalog holds the category data model and the offline builder that
// clusters case reports into named categories through a generative model.
package catalog

import (
	"strings"
)

// Lang is a supported content language.
type Lang string

const (
	LangJA Lang = "ja"
	LangEN Lang = "en"
	LangBN Lang = "bn"
	LangZH Lang = "zh"

	// BaseLang is the language categories are generated in.
	BaseLang = LangJA
)

// TargetLangs are the translation targets, in prompt order.
var TargetLangs = []Lang{LangEN, LangBN, LangZH}

// NormalizeLang maps unknown or empty tags to BaseLang.
func NormalizeLang(s string) Lang {
	l := Lang(strings.ToLower(strings.TrimSpace(s)))
	if l == BaseLang {
		return l
	}
	for _, t := range TargetLangs {
		if l == t {
			return l
		}
	}
	return BaseLang
}

const (
	// Unclassified is the bucket for cases the model could not place.
	Unclassified = "その他"
	// FailedText is the persisted placeholder for failed generations.
	FailedText = "生成失敗"
	// MeasuresPerCategory is the number of measures generated per category.
	MeasuresPerCategory = 3
	// EmbeddingDim is the expected embedding dimensionality.
	EmbeddingDim = 3072
)

// Localized is a per-language string.
type Localized map[Lang]string

// Get returns the lang entry, falling back to BaseLang when absent or empty.
func (l Localized) Get(lang Lang) string {
	if v := l[lang]; v != "" {
		return v
	}
	return l[BaseLang]
}

// LocalizedList is a per-language string list.
type LocalizedList map[Lang][]string

// Get returns the lang entry, falling back to BaseLang when absent or empty.
func (l LocalizedList) Get(lang Lang) []string {
	if v := l[lang]; len(v) > 0 {
		return v
	}
	return l[BaseLang]
}

// Case is one labor-accident report from the source site.
type Case struct {
	ID         string
	Title      string
	Cause      string
	Measures   string
	CategoryID string
	Extra      map[string]any
}

// Eligible reports whether the case can take part in a catalog build.
func (c Case) Eligible() bool {
	return strings.TrimSpace(c.Title) != "" &&
		strings.TrimSpace(c.Cause) != "" &&
		strings.TrimSpace(c.Measures) != ""
}

// Category is a named cluster of cases with its enrichment.
type Category struct {
	ID          string
	Name        Localized
	Description Localized
	Measures    LocalizedList
	Embedding   []float32
	VideoURLs   map[string]string
	// Multilingual is false while the stored document still has the
	// single-language shape written by the builder.
	Multilingual bool
}

// HasValidEmbedding reports whether the embedding has exactly dim entries.
func (c *Category) HasValidEmbedding(dim int) bool {
	return len(c.Embedding) == dim && dim > 0
}

// HasValidDescription reports whether the base description is real content.
func (c *Category) HasValidDescription() bool {
	d := strings.TrimSpace(c.Description[BaseLang])
	return d != "" && d != FailedText
}

// Details is the generated enrichment of one category.
type Details struct {
	Description string
	Measures    []string
}

// FailedDetails is the placeholder payload persisted when details
// generation fails, so later stages can recognise and skip it.
func FailedDetails() Details {
	m := make([]string, MeasuresPerCategory)
	for i := range m {
		m[i] = FailedText
	}
	return Details{Description: FailedText, Measures: m}
}
