// Package api is the HTTP surface consumed by the web front-end.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/efebarandurmaz/anzen/internal/incident"
	"github.com/efebarandurmaz/anzen/internal/observability"
	"github.com/efebarandurmaz/anzen/internal/report"
	"github.com/efebarandurmaz/anzen/internal/search"
	"github.com/efebarandurmaz/anzen/internal/server"
)

// Searcher answers category searches.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

// ReportGenerator renders a report and returns its URL.
type ReportGenerator interface {
	Generate(ctx context.Context, req report.Request) (string, error)
}

// CaseRegistry records internally logged incidents.
type CaseRegistry interface {
	Create(ctx context.Context, c incident.NewCase) (string, error)
}

// Deps are the services behind the routes. Reports and Cases may be nil,
// in which case their routes are not registered.
type Deps struct {
	Search  Searcher
	Reports ReportGenerator
	Cases   CaseRegistry
	Health  *server.HealthServer
	Metrics *observability.AnzenMetrics
	Logger  *slog.Logger
}

// RouterConfig configures middleware and static file serving.
type RouterConfig struct {
	AllowedOrigins []string
	// FilesDir, when set, is served under /files for locally stored
	// reports, pictograms and videos.
	FilesDir string
}

// NewRouter sets up the API router.
func NewRouter(deps Deps, cfg RouterConfig) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = server.NewHealthServer(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.Metrics()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(deps.Logger))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 1 && origins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	router.Use(cors.New(corsCfg))

	h := &Handler{search: deps.Search, reports: deps.Reports, cases: deps.Cases, logger: deps.Logger}

	router.POST("/search", h.Search)
	if deps.Reports != nil {
		router.POST("/generate-pdf", h.GeneratePDF)
	}
	if deps.Cases != nil {
		router.POST("/internal-cases", h.CreateInternalCase)
	}

	router.GET("/health", gin.WrapF(deps.Health.HandleHealth))
	router.GET("/ready", gin.WrapF(deps.Health.HandleReady))
	router.GET("/live", gin.WrapF(deps.Health.HandleLive))
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	if cfg.FilesDir != "" {
		router.Static("/files", cfg.FilesDir)
	}
	return router
}
