// Package search maps a free-text work description to the closest accident
// category and asks the model for additional safety suggestions grounded in
// recent internal cases.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/catalogcache"
	"github.com/efebarandurmaz/anzen/internal/incident"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/observability"
	"github.com/efebarandurmaz/anzen/internal/parse"
)

var (
	// ErrEmptyQuery is returned for a blank query before any backend call.
	ErrEmptyQuery = errors.New("query text is required")
	// ErrNotFound is returned when no category can be matched.
	ErrNotFound = errors.New("no matching category found")
)

// QueryEmbedder embeds a search query.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// QueryTranslator translates a query into the base language. On failure it
// returns the original text alongside the error.
type QueryTranslator interface {
	TranslateQuery(ctx context.Context, text string, from catalog.Lang) (string, error)
}

// CaseSource lists recent internal cases.
type CaseSource interface {
	Recent(ctx context.Context, n int) ([]incident.Case, error)
}

// MediaFilter drops unusable media URLs.
type MediaFilter interface {
	FilterMap(ctx context.Context, urls map[string]string) map[string]string
}

// Config tunes the service.
type Config struct {
	RecentCases int
	Suggestions int
}

// DefaultConfig grounds on the 50 most recent cases and asks for 10
// suggestions.
func DefaultConfig() Config {
	return Config{RecentCases: 50, Suggestions: 10}
}

// Request is a search query.
type Request struct {
	Query string `json:"query"`
	Lang  string `json:"lang"`
}

// Response is the matched category in the requested language plus
// suggestions.
type Response struct {
	ID                    string             `json:"id"`
	Name                  string             `json:"name"`
	Description           string             `json:"description"`
	Measures              []string           `json:"measures"`
	VideoURLs             map[string]string  `json:"videoUrls"`
	AdditionalSuggestions []parse.Suggestion `json:"additionalSuggestions"`
	Score                 float64            `json:"-"`
}

// Service answers search requests against the snapshot loaded at startup.
type Service struct {
	snapshot   *catalogcache.Snapshot
	provider   llm.Provider
	embedder   QueryEmbedder
	translator QueryTranslator
	cases      CaseSource
	media      MediaFilter
	cfg        Config
	logger     *slog.Logger
}

// Deps are the collaborators of a Service. Translator, Cases and Media are
// optional.
type Deps struct {
	Provider   llm.Provider
	Embedder   QueryEmbedder
	Translator QueryTranslator
	Cases      CaseSource
	Media      MediaFilter
	Logger     *slog.Logger
}

// NewService creates a Service serving snap.
func NewService(snap *catalogcache.Snapshot, deps Deps, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.RecentCases <= 0 {
		cfg.RecentCases = def.RecentCases
	}
	if cfg.Suggestions <= 0 {
		cfg.Suggestions = def.Suggestions
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if snap != nil {
		observability.Metrics().SnapshotCategories.Set(float64(snap.Len()))
	}
	return &Service{
		snapshot:   snap,
		provider:   deps.Provider,
		embedder:   deps.Embedder,
		translator: deps.Translator,
		cases:      deps.Cases,
		media:      deps.Media,
		cfg:        cfg,
		logger:     deps.Logger,
	}
}

// Snapshot returns the served snapshot.
func (s *Service) Snapshot() *catalogcache.Snapshot { return s.snapshot }

// Search runs one query end to end.
func (s *Service) Search(ctx context.Context, req Request) (resp *Response, err error) {
	start := time.Now()
	lang := catalog.NormalizeLang(req.Lang)
	ctx, span := observability.StartSearchSpan(ctx, string(lang))
	defer func() {
		if err != nil {
			observability.RecordError(span, err)
		}
		span.End()
		observability.Metrics().RecordSearch(time.Since(start), errors.Is(err, ErrNotFound), err)
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	snap := s.snapshot
	if snap == nil || snap.Len() == 0 {
		return nil, ErrNotFound
	}

	baseQuery := query
	if lang != catalog.BaseLang && s.translator != nil {
		translated, terr := s.translator.TranslateQuery(ctx, query, lang)
		if terr != nil {
			s.logger.Warn("query translation failed, using original text", "lang", lang, "err", terr)
		}
		baseQuery = translated
	}

	vec, err := s.embedder.EmbedQuery(ctx, baseQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	match, ok := snap.Best(vec)
	if !ok {
		return nil, ErrNotFound
	}
	cat := match.Item

	resp = &Response{
		ID:          cat.ID,
		Name:        cat.Name.Get(lang),
		Description: cat.Description.Get(lang),
		Measures:    cat.Measures.Get(lang),
		VideoURLs:   map[string]string{},
		Score:       match.Score,
	}

	var recent []incident.Case
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if s.media == nil {
			for k, v := range cat.VideoURLs {
				resp.VideoURLs[k] = v
			}
			return nil
		}
		resp.VideoURLs = s.media.FilterMap(gctx, cat.VideoURLs)
		return nil
	})
	g.Go(func() error {
		if s.cases == nil {
			return nil
		}
		cases, cerr := s.cases.Recent(gctx, s.cfg.RecentCases)
		if cerr != nil {
			s.logger.Warn("loading internal cases failed", "err", cerr)
			return nil
		}
		recent = cases
		return nil
	})
	_ = g.Wait()

	prompt := suggestionPrompt(query, string(lang), resp.Name, groundingContext(recent), s.cfg.Suggestions)
	text, err := llm.Generate(ctx, s.provider, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("generating suggestions: %w", err)
	}
	resp.AdditionalSuggestions = parse.Suggestions(text)
	if resp.AdditionalSuggestions == nil {
		resp.AdditionalSuggestions = []parse.Suggestion{}
	}

	observability.RecordSearchMatch(span, cat.ID, match.Score, len(resp.AdditionalSuggestions))
	s.logger.Info("search matched", "category_id", cat.ID, "score", match.Score, "lang", lang)
	return resp, nil
}
