// Package catalogcache holds the in-memory category snapshot served by
// online search.
package catalogcache

import (
	"context"
	"fmt"

	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/similarity"
	"github.com/efebarandurmaz/anzen/internal/store"
)

// Snapshot is an immutable set of searchable categories in store order.
type Snapshot struct {
	categories []*catalog.Category
	byID       map[string]*catalog.Category
	skipped    int
}

// Load reads all categories and keeps those with a valid base description
// and an embedding of exactly dim entries.
func Load(ctx context.Context, s store.Store, dim int) (*Snapshot, error) {
	docs, err := s.All(ctx, store.CollectionCategories)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	snap := &Snapshot{byID: make(map[string]*catalog.Category, len(docs))}
	for _, d := range docs {
		c, err := catalog.CategoryFromDocument(d)
		if err != nil || !c.HasValidDescription() || !c.HasValidEmbedding(dim) {
			snap.skipped++
			continue
		}
		snap.categories = append(snap.categories, c)
		snap.byID[c.ID] = c
	}
	return snap, nil
}

// New builds a snapshot from already decoded categories without filtering.
func New(categories []*catalog.Category) *Snapshot {
	snap := &Snapshot{byID: make(map[string]*catalog.Category, len(categories))}
	for _, c := range categories {
		snap.categories = append(snap.categories, c)
		snap.byID[c.ID] = c
	}
	return snap
}

// Len is the number of searchable categories.
func (s *Snapshot) Len() int { return len(s.categories) }

// Skipped is the number of stored categories left out by Load.
func (s *Snapshot) Skipped() int { return s.skipped }

// Categories returns a copy of the category list.
func (s *Snapshot) Categories() []*catalog.Category {
	return append([]*catalog.Category(nil), s.categories...)
}

// Get looks up a category by id.
func (s *Snapshot) Get(id string) (*catalog.Category, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Best returns the category most similar to query; the earliest wins ties.
func (s *Snapshot) Best(query []float32) (similarity.Match[*catalog.Category], bool) {
	return similarity.Best(query, s.categories, func(c *catalog.Category) []float32 { return c.Embedding })
}
