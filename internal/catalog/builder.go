package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/efebarandurmaz/anzen/internal/graph"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/observability"
	"github.com/efebarandurmaz/anzen/internal/parse"
	"github.com/efebarandurmaz/anzen/internal/qualitygate"
	"github.com/efebarandurmaz/anzen/internal/result"
	"github.com/efebarandurmaz/anzen/internal/store"
)

var (
	// ErrQualityGate is returned when the generated name list fails a
	// blocking quality gate. Nothing is persisted in that case.
	ErrQualityGate = errors.New("category names failed quality gate")
	// ErrNoCases is returned when the case collection has no eligible case.
	ErrNoCases = errors.New("no eligible cases")
)

// Config tunes a catalog build.
type Config struct {
	RequestedNames int
	Concurrency    int
	Gates          *qualitygate.GateConfig
}

// DefaultConfig asks for 50 names and classifies 8 cases at a time.
func DefaultConfig() Config {
	return Config{RequestedNames: 50, Concurrency: 8, Gates: qualitygate.DefaultConfig()}
}

// Builder runs the five-step catalog build: load cases, name categories,
// classify every case, generate details per category, write back.
type Builder struct {
	provider llm.Provider
	store    store.Store
	graph    graph.Repository
	cfg      Config
	logger   *slog.Logger
}

// NewBuilder creates a Builder. Zero config fields take DefaultConfig values.
func NewBuilder(provider llm.Provider, s store.Store, cfg Config, logger *slog.Logger) *Builder {
	def := DefaultConfig()
	if cfg.RequestedNames <= 0 {
		cfg.RequestedNames = def.RequestedNames
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Gates == nil {
		cfg.Gates = def.Gates
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{provider: provider, store: s, cfg: cfg, logger: logger}
}

// WithGraph exports assignments to g after the write-back.
func (b *Builder) WithGraph(g graph.Repository) *Builder {
	b.graph = g
	return b
}

// BuildReport summarizes a completed build.
type BuildReport struct {
	Cases         int
	Names         []string
	Assignments   map[string]string // case id -> bucket name
	CategoryIDs   map[string]string // bucket name -> persisted category id
	Unclassified  int
	FailedDetails []string
	NameGates     *qualitygate.PipelineResult
	ReportGates   *qualitygate.PipelineResult
	Duration      time.Duration
}

// LoadCases reads every eligible case from the case collection.
func (b *Builder) LoadCases(ctx context.Context) ([]Case, error) {
	docs, err := b.store.Query(ctx, store.CollectionCases, EligibleCaseQuery())
	if err != nil {
		return nil, fmt.Errorf("loading cases: %w", err)
	}
	cases := make([]Case, 0, len(docs))
	for _, d := range docs {
		if c := CaseFromDocument(d); c.Eligible() {
			cases = append(cases, c)
		}
	}
	return cases, nil
}

// BuildCategoryNames asks the model for category names covering cases and
// checks the list against the name gates.
func (b *Builder) BuildCategoryNames(ctx context.Context, cases []Case) ([]string, error) {
	names, _, err := b.categoryNames(ctx, cases)
	return names, err
}

func (b *Builder) categoryNames(ctx context.Context, cases []Case) ([]string, *qualitygate.PipelineResult, error) {
	if len(cases) == 0 {
		return nil, nil, ErrNoCases
	}
	text, err := llm.Generate(ctx, b.provider, namesPrompt(cases, b.cfg.RequestedNames), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("generating category names: %w", err)
	}

	gates := qualitygate.NamePipeline(b.cfg.Gates).Run(&qualitygate.EvalContext{
		CategoryNames: parse.NumberedList(text),
	})
	if gates.Failed() {
		msg := gates.Summary
		if g, ok := gates.FirstFailure(); ok {
			msg = g.Message
		}
		return nil, gates, fmt.Errorf("%w: %s", ErrQualityGate, msg)
	}
	return parse.UniqueList(text), gates, nil
}

// ClassifyCase picks one of names for c. The answer must equal a name up to
// Unicode width folding. Backend failures and labels outside names are
// Failed; callers place those in the Unclassified bucket.
func (b *Builder) ClassifyCase(ctx context.Context, c Case, names []string) result.Result[string] {
	text, err := llm.Generate(ctx, b.provider, classifyPrompt(c, names), nil)
	if err != nil {
		return result.Failed[string](err.Error())
	}
	label := strings.Trim(parse.Label(text), "。. ")
	key := norm.NFKC.String(label)
	for _, n := range names {
		if n == label || norm.NFKC.String(n) == key {
			return result.Ok(n)
		}
	}
	return result.Failedf[string]("label %q is not a category name", label)
}

// GenerateCategoryDetails writes the description and measures for one
// category. The two generation calls run concurrently; either failing, or
// fewer than MeasuresPerCategory parsed measures, fails the whole result.
func (b *Builder) GenerateCategoryDetails(ctx context.Context, name string, cases []Case) result.Result[Details] {
	var d Details
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := llm.Generate(gctx, b.provider, descriptionPrompt(name, cases), nil)
		if err != nil {
			return fmt.Errorf("description: %w", err)
		}
		d.Description = strings.TrimSpace(parse.StripFences(text))
		return nil
	})
	g.Go(func() error {
		text, err := llm.Generate(gctx, b.provider, measuresPrompt(name, cases), nil)
		if err != nil {
			return fmt.Errorf("measures: %w", err)
		}
		m := parse.NumberedList(text)
		if len(m) < MeasuresPerCategory {
			return fmt.Errorf("measures: got %d, want %d", len(m), MeasuresPerCategory)
		}
		d.Measures = m[:MeasuresPerCategory]
		return nil
	})
	if err := g.Wait(); err != nil {
		return result.Failed[Details](err.Error())
	}
	if d.Description == "" {
		return result.Failed[Details]("description: empty")
	}
	return result.Ok(d)
}

// Build runs the full catalog build. Only a failed load, a failed name
// generation, a blocking gate or a failed write aborts it; per-case and
// per-category failures degrade and are reported.
func (b *Builder) Build(ctx context.Context) (*BuildReport, error) {
	start := time.Now()
	ctx, span := observability.StartStageSpan(ctx, "build-catalog")
	defer span.End()

	report, err := b.build(ctx)
	if err != nil {
		observability.RecordError(span, err)
		return report, err
	}
	report.Duration = time.Since(start)
	observability.RecordStageResult(span, report.Cases, len(report.FailedDetails), report.Unclassified)
	observability.Metrics().RecordStage(report.Duration, report.Cases, len(report.FailedDetails))
	return report, nil
}

func (b *Builder) build(ctx context.Context) (*BuildReport, error) {
	cases, err := b.LoadCases(ctx)
	if err != nil {
		return nil, err
	}
	b.logger.Info("cases loaded", "count", len(cases))

	names, nameGates, err := b.categoryNames(ctx, cases)
	report := &BuildReport{Cases: len(cases), NameGates: nameGates}
	if err != nil {
		return report, err
	}
	report.Names = names
	b.logger.Info("category names generated", "count", len(names))

	report.Assignments = b.classifyAll(ctx, cases, names)

	buckets := make(map[string][]Case)
	for _, c := range cases {
		bucket := report.Assignments[c.ID]
		buckets[bucket] = append(buckets[bucket], c)
	}
	report.Unclassified = len(buckets[Unclassified])

	order := names
	if !contains(names, Unclassified) {
		order = append(append([]string(nil), names...), Unclassified)
	}
	var emptyBuckets []string
	for _, n := range names {
		if len(buckets[n]) == 0 {
			emptyBuckets = append(emptyBuckets, n)
		}
	}

	report.CategoryIDs = make(map[string]string)
	for _, name := range order {
		members := buckets[name]
		if len(members) == 0 {
			continue
		}
		details, ok := b.GenerateCategoryDetails(ctx, name, members).Value()
		if !ok {
			b.logger.Warn("category details failed", "category", name)
			report.FailedDetails = append(report.FailedDetails, name)
			details = FailedDetails()
		}
		id, err := b.store.Create(ctx, store.CollectionCategories, NewCategory(name, details).Document())
		if err != nil {
			b.removeCategories(ctx, report.CategoryIDs)
			return report, fmt.Errorf("creating category %q: %w", name, err)
		}
		report.CategoryIDs[name] = id
	}

	updates := make([]store.Update, 0, len(cases))
	var exports []graph.Assignment
	for _, c := range cases {
		bucket := report.Assignments[c.ID]
		id, ok := report.CategoryIDs[bucket]
		if !ok {
			continue
		}
		updates = append(updates, CaseCategoryUpdate(c.ID, id))
		exports = append(exports, graph.Assignment{CaseID: c.ID, CaseTitle: c.Title, CategoryID: id, CategoryName: bucket})
	}
	if err := b.store.BatchUpdate(ctx, store.CollectionCases, updates); err != nil {
		b.removeCategories(ctx, report.CategoryIDs)
		return report, fmt.Errorf("writing case categories: %w", err)
	}
	b.logger.Info("case categories written", "cases", len(updates), "categories", len(report.CategoryIDs))

	if b.graph != nil {
		if err := b.graph.ExportAssignments(ctx, exports); err != nil {
			b.logger.Warn("graph export failed", "err", err)
		}
	}

	report.ReportGates = qualitygate.ReportPipeline(b.cfg.Gates).Run(&qualitygate.EvalContext{
		CategoryNames:   names,
		CasesTotal:      len(cases),
		CasesClassified: len(cases) - report.Unclassified,
		EmptyBuckets:    emptyBuckets,
		FailedDetails:   report.FailedDetails,
	})
	return report, nil
}

// removeCategories deletes the categories a failed build created, so a rerun
// does not leave a second set behind. Cases are untouched: the write-back
// is a single batch that either applied fully or not at all.
func (b *Builder) removeCategories(ctx context.Context, ids map[string]string) {
	ctx = context.WithoutCancel(ctx)
	for name, id := range ids {
		if err := b.store.Delete(ctx, store.CollectionCategories, id); err != nil {
			b.logger.Error("removing category of failed build", "category", name, "category_id", id, "err", err)
		}
	}
}

// classifyAll assigns every case to exactly one bucket.
func (b *Builder) classifyAll(ctx context.Context, cases []Case, names []string) map[string]string {
	assignments := make(map[string]string, len(cases))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(b.cfg.Concurrency)
	for _, c := range cases {
		g.Go(func() error {
			r := b.ClassifyCase(ctx, c, names)
			if !r.IsOk() {
				b.logger.Debug("case unclassified", "case_id", c.ID, "reason", r.Reason())
			}
			mu.Lock()
			assignments[c.ID] = r.ValueOr(Unclassified)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return assignments
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
