// Package memory is an in-process store.Store used by tests and by the CLI
// when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/anzen/internal/store"
)

type collection struct {
	order []string
	docs  map[string]map[string]any
}

// Store keeps documents in memory, preserving insertion order.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	writes      int
}

// New creates an empty Store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

// Writes returns the number of successful write operations (Create, Set,
// Merge, and one per BatchUpdate entry).
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]map[string]any)}
		s.collections[name] = c
	}
	return c
}

func (s *Store) Get(_ context.Context, coll, id string) (store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[coll]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	data, ok := c.docs[id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return copyDoc(id, data)
}

func (s *Store) All(ctx context.Context, coll string) ([]store.Document, error) {
	return s.Query(ctx, coll, store.Query{})
}

func (s *Store) Query(_ context.Context, coll string, q store.Query) ([]store.Document, error) {
	if err := store.ValidateQuery(q); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[coll]
	if !ok {
		return nil, nil
	}

	var out []store.Document
	for _, id := range c.order {
		data := c.docs[id]
		if !store.Matches(data, q.Filters) {
			continue
		}
		d, err := copyDoc(id, data)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c, ok := store.Compare(out[i].Data[q.OrderBy], out[j].Data[q.OrderBy])
			if !ok {
				return false
			}
			if q.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, coll string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, coll, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(_ context.Context, coll, id string, data map[string]any) error {
	norm, err := store.Normalize(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.coll(coll)
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = norm
	s.writes++
	return nil
}

func (s *Store) Merge(_ context.Context, coll, id string, fields map[string]any) error {
	norm, err := store.Normalize(fields)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[coll]
	if !ok {
		return store.ErrNotFound
	}
	data, ok := c.docs[id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range norm {
		data[k] = v
	}
	s.writes++
	return nil
}

func (s *Store) BatchUpdate(_ context.Context, coll string, updates []store.Update) error {
	norms := make([]map[string]any, len(updates))
	for i, u := range updates {
		n, err := store.Normalize(u.Fields)
		if err != nil {
			return err
		}
		norms[i] = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[coll]
	if !ok && len(updates) > 0 {
		return fmt.Errorf("batch update %s: %w", updates[0].ID, store.ErrNotFound)
	}
	for _, u := range updates {
		if _, ok := c.docs[u.ID]; !ok {
			return fmt.Errorf("batch update %s: %w", u.ID, store.ErrNotFound)
		}
	}
	for i, u := range updates {
		for k, v := range norms[i] {
			c.docs[u.ID][k] = v
		}
		s.writes++
	}
	return nil
}

func (s *Store) Delete(_ context.Context, coll, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[coll]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	s.writes++
	return nil
}

func (s *Store) Close() error { return nil }

func copyDoc(id string, data map[string]any) (store.Document, error) {
	cp, err := store.Normalize(data)
	if err != nil {
		return store.Document{}, err
	}
	return store.Document{ID: id, Data: cp}, nil
}

var _ store.Store = (*Store)(nil)
