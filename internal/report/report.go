// Package report renders safety reports for a matched category and publishes
// them through an object store.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/efebarandurmaz/anzen/internal/blob"
	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/observability"
	"github.com/efebarandurmaz/anzen/internal/parse"
	"github.com/efebarandurmaz/anzen/internal/store"
)

// ErrNotFound is returned when the requested category does not exist.
var ErrNotFound = errors.New("category not found")

// SuggestionsPerPage is the number of suggestions laid out on one page.
const SuggestionsPerPage = 4

var annotation = regexp.MustCompile(`【.*?】`)

// Request asks for a report on one category.
type Request struct {
	CategoryID  string
	UserQuery   string
	Suggestions []parse.Suggestion
	Lang        catalog.Lang
}

// Generator produces report files.
type Generator struct {
	store      store.Store
	renderer   Renderer
	blobs      blob.ObjectStore
	pictograms PictogramSource
	logger     *slog.Logger
	now        func() time.Time
}

// NewGenerator creates a Generator. Pictograms are omitted until
// WithPictograms is called.
func NewGenerator(s store.Store, r Renderer, blobs blob.ObjectStore, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{store: s, renderer: r, blobs: blobs, logger: logger, now: time.Now}
}

// WithPictograms attaches a pictogram source.
func (g *Generator) WithPictograms(p PictogramSource) *Generator {
	g.pictograms = p
	return g
}

// Generate renders the report for req and returns its public URL.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.CategoryID) == "" {
		return "", fmt.Errorf("%w: empty category id", ErrNotFound)
	}
	ctx, span := observability.StartStageSpan(ctx, "report")
	defer span.End()

	doc, err := g.store.Get(ctx, store.CollectionCategories, req.CategoryID)
	if errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, req.CategoryID)
	}
	if err != nil {
		observability.RecordError(span, err)
		return "", fmt.Errorf("load category %s: %w", req.CategoryID, err)
	}
	cat, err := catalog.CategoryFromDocument(doc)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}

	layout := g.layout(ctx, cat, req)
	html, err := renderHTML(layout)
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	footer, err := renderFooter()
	if err != nil {
		return "", fmt.Errorf("render footer: %w", err)
	}

	out, err := g.renderer.Render(ctx, html, footer)
	if err != nil {
		observability.RecordError(span, err)
		return "", err
	}
	key := fmt.Sprintf("reports/%s_%d.%s", cat.ID, g.now().UnixMilli(), out.Ext)
	url, err := g.blobs.Put(ctx, key, out.Data, out.ContentType)
	if err != nil {
		observability.RecordError(span, err)
		return "", fmt.Errorf("store report: %w", err)
	}
	g.logger.Info("report generated", "category_id", cat.ID, "url", url)
	return url, nil
}

func (g *Generator) layout(ctx context.Context, cat *catalog.Category, req Request) *Layout {
	lang := catalog.NormalizeLang(string(req.Lang))

	measures := make([]Item, 0, len(cat.Measures.Get(lang)))
	for _, m := range cat.Measures.Get(lang) {
		measures = append(measures, Item{Text: StripAnnotations(m)})
	}
	suggestions := make([]Item, 0, len(req.Suggestions))
	for _, s := range req.Suggestions {
		if t := StripAnnotations(s.Text); t != "" {
			suggestions = append(suggestions, Item{Text: t})
		}
	}

	if g.pictograms != nil {
		g.attachPictograms(ctx, cat.ID, measures, "measure")
		g.attachPictograms(ctx, cat.ID, suggestions, "add")
	}

	return &Layout{
		Labels:          LabelsFor(lang),
		Task:            req.UserQuery,
		Name:            cat.Name.Get(lang),
		Description:     cat.Description.Get(lang),
		Measures:        measures,
		SuggestionPages: Paginate(suggestions, SuggestionsPerPage),
	}
}

// attachPictograms fills items in place. Failures leave the item without
// an image.
func (g *Generator) attachPictograms(ctx context.Context, categoryID string, items []Item, kind string) {
	var eg errgroup.Group
	for i := range items {
		eg.Go(func() error {
			name := fmt.Sprintf("pictogram_%s_%s%d", categoryID, kind, i+1)
			url, err := g.pictograms.Pictogram(ctx, items[i].Text, name)
			if err != nil {
				g.logger.Warn("pictogram failed", "category_id", categoryID, "item", name, "err", err)
				return nil
			}
			items[i].Pictogram = url
			return nil
		})
	}
	_ = eg.Wait()
}

// StripAnnotations removes 【...】 markers and surrounding space.
func StripAnnotations(s string) string {
	return strings.TrimSpace(annotation.ReplaceAllString(s, ""))
}

// Paginate splits items into pages of size n. Only the final page is
// marked Last.
func Paginate(items []Item, n int) []Page {
	if n <= 0 {
		n = SuggestionsPerPage
	}
	var pages []Page
	for start := 0; start < len(items); start += n {
		end := min(start+n, len(items))
		pages = append(pages, Page{Items: items[start:end]})
	}
	if len(pages) > 0 {
		pages[len(pages)-1].Last = true
	}
	return pages
}
