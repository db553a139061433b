// Package precompute fills in missing category embeddings.
package precompute

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/observability"
	"github.com/efebarandurmaz/anzen/internal/store"
	"github.com/efebarandurmaz/anzen/internal/vector"
)

// Stats counts what a run did.
type Stats struct {
	Total    int
	Embedded int
	Skipped  int
	Failed   int
	Mirrored int
}

// Precomputer embeds the base description of every category that lacks a
// valid embedding.
type Precomputer struct {
	store    store.Store
	provider llm.Provider
	mirror   vector.Repository
	dim      int
	reindex  bool
	logger   *slog.Logger
}

// New creates a Precomputer expecting embeddings of dim entries.
func New(s store.Store, p llm.Provider, dim int, logger *slog.Logger) *Precomputer {
	if dim <= 0 {
		dim = catalog.EmbeddingDim
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Precomputer{store: s, provider: p, dim: dim, logger: logger}
}

// WithMirror upserts written embeddings into m. With reindex set, categories
// that already had a valid embedding are mirrored as well.
func (p *Precomputer) WithMirror(m vector.Repository, reindex bool) *Precomputer {
	p.mirror = m
	p.reindex = reindex
	return p
}

// Run processes every category once. Per-category failures are counted and
// logged; only a failure to list categories aborts the run.
func (p *Precomputer) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	ctx, span := observability.StartStageSpan(ctx, "embed")
	defer span.End()

	docs, err := p.store.All(ctx, store.CollectionCategories)
	if err != nil {
		observability.RecordError(span, err)
		return Stats{}, fmt.Errorf("listing categories: %w", err)
	}

	var st Stats
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		st.Total++
		cat, err := catalog.CategoryFromDocument(d)
		if err != nil {
			st.Failed++
			p.logger.Warn("undecodable category", "category_id", d.ID, "err", err)
			continue
		}
		if !cat.HasValidDescription() {
			st.Skipped++
			continue
		}
		if cat.HasValidEmbedding(p.dim) {
			st.Skipped++
			if p.reindex {
				p.mirrorOne(ctx, cat, &st)
			}
			continue
		}

		vec, err := llm.EmbedOne(ctx, p.provider, cat.Description[catalog.BaseLang])
		if err == nil && len(vec) != p.dim {
			err = fmt.Errorf("embedding has %d dimensions, want %d", len(vec), p.dim)
		}
		if err != nil {
			st.Failed++
			p.logger.Warn("embedding failed", "category_id", cat.ID, "err", err)
			continue
		}
		if err := p.store.Merge(ctx, store.CollectionCategories, cat.ID, map[string]any{catalog.FieldEmbedding: vec}); err != nil {
			st.Failed++
			p.logger.Warn("embedding write failed", "category_id", cat.ID, "err", err)
			continue
		}
		st.Embedded++
		cat.Embedding = vec
		p.mirrorOne(ctx, cat, &st)
	}

	p.logger.Info("embedding precompute finished",
		"total", st.Total, "embedded", st.Embedded, "skipped", st.Skipped, "failed", st.Failed)
	observability.RecordStageResult(span, st.Embedded, st.Failed, st.Skipped)
	observability.Metrics().RecordStage(time.Since(start), st.Embedded, st.Failed)
	return st, nil
}

func (p *Precomputer) mirrorOne(ctx context.Context, cat *catalog.Category, st *Stats) {
	if p.mirror == nil {
		return
	}
	pt := vector.CategoryPoint{CategoryID: cat.ID, Name: cat.Name[catalog.BaseLang], Vector: cat.Embedding}
	if err := p.mirror.Upsert(ctx, []vector.CategoryPoint{pt}); err != nil {
		st.Failed++
		p.logger.Warn("vector mirror failed", "category_id", cat.ID, "err", err)
		return
	}
	st.Mirrored++
}
