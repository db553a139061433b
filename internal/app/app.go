// Package app wires configuration into the concrete backends shared by the
// anzen CLI and the pipeline worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/efebarandurmaz/anzen/internal/blob"
	"github.com/efebarandurmaz/anzen/internal/cache"
	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/catalogcache"
	"github.com/efebarandurmaz/anzen/internal/config"
	"github.com/efebarandurmaz/anzen/internal/graph"
	"github.com/efebarandurmaz/anzen/internal/graph/neo4j"
	"github.com/efebarandurmaz/anzen/internal/incident"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/llm/gemini"
	"github.com/efebarandurmaz/anzen/internal/llmutil"
	"github.com/efebarandurmaz/anzen/internal/media"
	"github.com/efebarandurmaz/anzen/internal/observability"
	"github.com/efebarandurmaz/anzen/internal/precompute"
	"github.com/efebarandurmaz/anzen/internal/report"
	"github.com/efebarandurmaz/anzen/internal/search"
	"github.com/efebarandurmaz/anzen/internal/server"
	"github.com/efebarandurmaz/anzen/internal/store"
	"github.com/efebarandurmaz/anzen/internal/store/memory"
	"github.com/efebarandurmaz/anzen/internal/store/postgres"
	"github.com/efebarandurmaz/anzen/internal/temporal"
	"github.com/efebarandurmaz/anzen/internal/translation"
	"github.com/efebarandurmaz/anzen/internal/vector"
	"github.com/efebarandurmaz/anzen/internal/vector/qdrant"
)

// ErrNoMediaBackend is returned when video or image generation is requested
// but the configured provider cannot render media.
var ErrNoMediaBackend = errors.New("media generation requires the gemini provider")

type closer struct {
	name string
	fn   func() error
}

// App holds the backends built from one Config. Graph, Vector and Media
// are nil when not configured.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     store.Store
	Provider  llm.Provider
	Embedding llm.Provider
	Media     *gemini.Client
	Blobs     blob.ObjectStore
	Graph     graph.Repository
	Vector    vector.Repository
	Cache     cache.Client
	Tracer    *observability.TracerProvider

	closers         []closer
	tracerHandedOff bool
}

// Options overrides backends, mainly for tests. Zero fields are built from
// the configuration.
type Options struct {
	Store     store.Store
	Provider  llm.Provider
	Embedding llm.Provider
}

// New connects every configured backend. On error, whatever was already
// opened is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	tp, err := observability.InitTracing(ctx, a.tracingConfig())
	if err != nil {
		return nil, fmt.Errorf("tracing: %w", err)
	}
	a.Tracer = tp

	if a.Store = opts.Store; a.Store == nil {
		if a.Store, err = openStore(ctx, cfg.Store); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closer{"store", a.Store.Close})
	}

	if a.Provider = opts.Provider; a.Provider == nil {
		if a.Provider, err = a.newProvider(cfg.LLM.ProviderConfig()); err != nil {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
	}
	if a.Embedding = opts.Embedding; a.Embedding == nil {
		if a.Embedding, err = a.newProvider(cfg.Embedding.Resolve(cfg.LLM)); err != nil {
			return nil, fmt.Errorf("embedding provider: %w", err)
		}
	}

	if cfg.LLM.Provider == "gemini" {
		a.Media = gemini.New(gemini.Config{
			APIKey:     cfg.LLM.APIKey,
			BaseURL:    cfg.LLM.BaseURL,
			VideoModel: cfg.LLM.VideoModel,
			ImageModel: cfg.LLM.ImageModel,
		})
	}

	local, err := blob.NewLocalStore(cfg.Media.Dir, cfg.Media.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("blob store: %w", err)
	}
	a.Blobs = blob.WithDetection(local)

	if cfg.Cache.Addr != "" {
		rc, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			Prefix:   cfg.Cache.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		a.Cache = rc
	} else {
		a.Cache = cache.NewMemoryClient(cfg.Cache.MaxEntries)
	}
	a.closers = append(a.closers, closer{"cache", a.Cache.Close})

	if cfg.Graph.URI != "" {
		g, err := neo4j.New(ctx, cfg.Graph.URI, cfg.Graph.Username, cfg.Graph.Password)
		if err != nil {
			return nil, fmt.Errorf("graph: %w", err)
		}
		a.Graph = g
		a.closers = append(a.closers, closer{"graph", func() error { return g.Close(context.Background()) }})
	}

	if cfg.Vector.Host != "" {
		v, err := qdrant.New(cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection)
		if err != nil {
			return nil, fmt.Errorf("vector index: %w", err)
		}
		a.Vector = v
		a.closers = append(a.closers, closer{"vector", v.Close})
	}

	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(), nil
	case "postgres":
		s, err := postgres.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func (a *App) newProvider(pc llm.ProviderConfig) (llm.Provider, error) {
	factory := llm.NewFactory()
	llmutil.RegisterDefaultProviders(factory)
	p, err := factory.Create(pc)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("provider %q cannot serve this stage", pc.Provider)
	}
	rl := llm.DefaultRateLimitConfig()
	if a.Config.LLM.RequestsPerMinute > 0 {
		rl.RequestsPerMinute = a.Config.LLM.RequestsPerMinute
	}
	return llm.Instrument(llm.WithRateLimit(p, rl), observability.Metrics()), nil
}

func (a *App) tracingConfig() *observability.TracingConfig {
	tc := observability.DefaultTracingConfig()
	if a.Config.Tracing.ServiceName != "" {
		tc.ServiceName = a.Config.Tracing.ServiceName
	}
	tc.SampleRate = a.Config.Tracing.SampleRate
	if a.Config.Tracing.Enabled {
		tc.OTLPEndpoint = a.Config.Tracing.Endpoint
	}
	return tc
}

// Builder returns the catalog builder, exporting to the graph when set.
func (a *App) Builder() *catalog.Builder {
	b := catalog.NewBuilder(a.Provider, a.Store, catalog.Config{
		RequestedNames: a.Config.Catalog.RequestedNames,
		Concurrency:    a.Config.Catalog.Concurrency,
	}, a.Logger)
	if a.Graph != nil {
		b.WithGraph(a.Graph)
	}
	return b
}

// Precomputer returns the embedding stage, mirroring into the vector index
// when set.
func (a *App) Precomputer(reindex bool) *precompute.Precomputer {
	p := precompute.New(a.Store, a.Embedding, a.Config.Embedding.Dimensions, a.Logger)
	if a.Vector != nil {
		p.WithMirror(a.Vector, reindex)
	}
	return p
}

// Translator returns the translation stage.
func (a *App) Translator() *translation.Translator {
	return translation.New(a.Store, a.Provider, a.Logger)
}

// VideoJob returns the video stage.
func (a *App) VideoJob(force bool) (*media.VideoJob, error) {
	if a.Media == nil {
		return nil, ErrNoMediaBackend
	}
	return media.NewVideoJob(a.Store, a.Media, a.Blobs, a.Logger).WithForce(force), nil
}

// Activities returns the pipeline stages for the Temporal worker. The
// video stage is omitted when no media backend is configured.
func (a *App) Activities() *temporal.Activities {
	acts := &temporal.Activities{
		Builder:    a.Builder(),
		Embeddings: a.Precomputer(false),
		Translator: a.Translator(),
	}
	if job, err := a.VideoJob(false); err == nil {
		acts.Videos = job
	}
	return acts
}

// Incidents returns the internal case registry.
func (a *App) Incidents() *incident.Store {
	return incident.NewStore(a.Store)
}

// LoadSnapshot reads the servable categories.
func (a *App) LoadSnapshot(ctx context.Context) (*catalogcache.Snapshot, error) {
	return catalogcache.Load(ctx, a.Store, a.Config.Embedding.Dimensions)
}

// SearchService builds the online search service around snap.
func (a *App) SearchService(snap *catalogcache.Snapshot) *search.Service {
	prober := media.NewProber(a.Logger,
		media.WithMinSize(a.Config.Media.MinBytes),
		media.WithConcurrency(a.Config.Media.Concurrency),
		media.WithTimeout(a.Config.Media.ProbeTimeout),
	)
	embedder := cache.NewEmbedder(a.Embedding, a.Cache, a.Config.Embedding.Model, a.Config.Cache.TTL, a.Logger)

	return search.NewService(snap, search.Deps{
		Provider:   a.Provider,
		Embedder:   embedder,
		Translator: a.Translator(),
		Cases:      a.Incidents(),
		Media:      prober,
		Logger:     a.Logger,
	}, search.Config{
		RecentCases: a.Config.Search.RecentCases,
		Suggestions: a.Config.Search.Suggestions,
	})
}

// ReportGenerator returns the report generator. Without a renderer URL it
// publishes HTML.
func (a *App) ReportGenerator() *report.Generator {
	var r report.Renderer = report.HTMLRenderer{}
	if a.Config.Report.RendererURL != "" {
		r = report.NewHTTPRenderer(a.Config.Report.RendererURL, nil)
	}
	g := report.NewGenerator(a.Store, r, a.Blobs, a.Logger)
	if a.Config.Report.Pictograms && a.Media != nil {
		g.WithPictograms(report.NewGeneratedPictograms(a.Media, a.Blobs))
	}
	return g
}

// RegisterChecks adds health checks for the reachable backends.
func (a *App) RegisterChecks(h *server.HealthServer) {
	if p, ok := a.Store.(interface{ Ping(context.Context) error }); ok {
		h.RegisterCheck("store", server.StoreHealthChecker(p.Ping))
	}
	if p, ok := a.Cache.(interface{ Ping(context.Context) error }); ok {
		h.RegisterCheck("cache", server.CacheHealthChecker(p.Ping))
	}
}

// RegisterShutdown closes the backends through h, after the HTTP server
// and worker hooks.
func (a *App) RegisterShutdown(h *server.ShutdownHandler) {
	for _, c := range a.closers {
		if c.name == "store" {
			h.Register(server.StoreShutdownHook(c.fn))
			continue
		}
		h.Register(server.CloserShutdownHook(c.name, c.fn))
	}
	if a.Tracer != nil {
		h.Register(server.TracingShutdownHook(a.Tracer.Shutdown))
	}
	a.closers = nil
	a.tracerHandedOff = true
}

// Close releases every backend not yet handed to a shutdown handler, in
// reverse opening order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.closers[i].name, err))
		}
	}
	a.closers = nil
	if a.Tracer != nil && !a.tracerHandedOff {
		if err := a.Tracer.Shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
		a.tracerHandedOff = true
	}
	return errors.Join(errs...)
}
