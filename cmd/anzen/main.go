package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/anzen/internal/api"
	"github.com/efebarandurmaz/anzen/internal/app"
	"github.com/efebarandurmaz/anzen/internal/catalog"
	"github.com/efebarandurmaz/anzen/internal/config"
	"github.com/efebarandurmaz/anzen/internal/llm"
	"github.com/efebarandurmaz/anzen/internal/logging"
	"github.com/efebarandurmaz/anzen/internal/observability"
	"github.com/efebarandurmaz/anzen/internal/server"
	temporalmod "github.com/efebarandurmaz/anzen/internal/temporal"
)

var version = "dev"

func main() {
	var (
		configPath string
		jsonReport bool
	)

	rootCmd := &cobra.Command{
		Use:           "anzen",
		Short:         "Labor-accident category matching and safety guidance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/anzen.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&jsonReport, "json", false, "Print stage results as JSON")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}

	buildCmd := &cobra.Command{
		Use:   "build-catalog",
		Short: "Cluster source cases into named categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app.App) error {
				fmt.Println("=== Catalog: naming, classifying and describing categories ===")
				rep, err := a.Builder().Build(ctx)
				if err != nil {
					return err
				}
				return printBuild(rep, jsonReport)
			})
		},
	}

	var reindex bool
	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "Precompute category embeddings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app.App) error {
				fmt.Println("=== Embeddings: precomputing category vectors ===")
				stats, err := a.Precomputer(reindex).Run(ctx)
				if err != nil {
					return err
				}
				return printStats(stats, jsonReport)
			})
		},
	}
	embedCmd.Flags().BoolVar(&reindex, "reindex", false, "Mirror existing embeddings into the vector index too")

	translateCmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate single-language categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app.App) error {
				fmt.Println("=== Translation: expanding categories to en, bn, zh ===")
				stats, err := a.Translator().Run(ctx)
				if err != nil {
					return err
				}
				return printStats(stats, jsonReport)
			})
		},
	}

	var force bool
	videosCmd := &cobra.Command{
		Use:   "videos",
		Short: "Render measure videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(configPath, func(ctx context.Context, a *app.App) error {
				job, err := a.VideoJob(force)
				if err != nil {
					return err
				}
				fmt.Println("=== Videos: rendering first-measure pictogram videos ===")
				stats, err := job.Run(ctx)
				if err != nil {
					return err
				}
				return printStats(stats, jsonReport)
			})
		},
	}
	videosCmd.Flags().BoolVar(&force, "force", false, "Regenerate videos that already exist")

	var (
		input temporalmod.PipelineInput
		wait  bool
	)
	pipelineCmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Start the offline pipeline on the Temporal worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startPipeline(configPath, input, wait, jsonReport)
		},
	}
	pipelineCmd.Flags().BoolVar(&input.SkipBuild, "skip-build", false, "Skip the catalog build")
	pipelineCmd.Flags().BoolVar(&input.SkipEmbed, "skip-embed", false, "Skip embedding precomputation")
	pipelineCmd.Flags().BoolVar(&input.SkipTranslate, "skip-translate", false, "Skip translation")
	pipelineCmd.Flags().BoolVar(&input.SkipVideos, "skip-videos", false, "Skip video rendering")
	pipelineCmd.Flags().BoolVar(&wait, "wait", false, "Wait for the workflow and print its result")

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			names := make([]string, 0, len(llm.KnownProviders))
			for name := range llm.KnownProviders {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println("Available LLM providers:")
			fmt.Println()
			for _, name := range names {
				fmt.Printf("  %-14s %s\n", name, llm.KnownProviders[name])
			}
			fmt.Println("  custom         (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println()
			fmt.Println("Video and pictogram generation require gemini.")
			fmt.Println()
			fmt.Println("Configure in anzen.yaml or via environment:")
			fmt.Println("  ANZEN_LLM_PROVIDER=gemini")
			fmt.Println("  ANZEN_LLM_API_KEY=...")
			fmt.Println("  ANZEN_EMBEDDING_MODEL=gemini-embedding-001")
		},
	}

	rootCmd.AddCommand(serveCmd, buildCmd, embedCmd, translateCmd, videosCmd, pipelineCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(configPath string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.Init(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withApp runs fn against a fully wired App and releases it afterwards.
func withApp(configPath string, fn func(ctx context.Context, a *app.App) error) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing backends", "err", err)
		}
	}()
	return fn(ctx, a)
}

func serve(configPath string) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		return err
	}

	health := server.NewHealthServer(&server.HealthConfig{Version: version})
	a.RegisterChecks(health)

	snap, err := a.LoadSnapshot(ctx)
	if err != nil {
		a.Close()
		return fmt.Errorf("loading categories: %w", err)
	}
	logger.Info("categories loaded", "servable", snap.Len(), "skipped", snap.Skipped())

	svc := a.SearchService(snap)
	health.RegisterCheck("snapshot", server.SnapshotHealthChecker(func() int { return svc.Snapshot().Len() }))

	router := api.NewRouter(api.Deps{
		Search:  svc,
		Reports: a.ReportGenerator(),
		Cases:   a.Incidents(),
		Health:  health,
		Metrics: observability.Metrics(),
		Logger:  logger,
	}, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		FilesDir:       cfg.Media.Dir,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := server.NewShutdownHandler(&server.ShutdownConfig{
		Timeout: cfg.Server.ShutdownTimeout,
		Logger:  logger,
	})
	shutdown.Register(server.HTTPServerShutdownHook("http", srv.Shutdown))
	a.RegisterShutdown(shutdown)
	shutdown.Start()

	go func() {
		<-shutdown.ShutdownCh()
		health.SetReady(false)
	}()
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", "err", err)
			shutdown.Shutdown()
		}
	}()
	health.SetReady(true)

	shutdown.Wait()
	logger.Info("server stopped")
	return nil
}

func startPipeline(configPath string, input temporalmod.PipelineInput, wait, jsonReport bool) error {
	cfg, logger, err := setup(configPath)
	if err != nil {
		return err
	}

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	ctx := context.Background()
	run, err := c.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("anzen-pipeline-%d", time.Now().Unix()),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, temporalmod.PipelineWorkflow, input)
	if err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}
	fmt.Printf("Pipeline started: workflow=%s run=%s\n", run.GetID(), run.GetRunID())
	if !wait {
		return nil
	}

	var out temporalmod.PipelineOutput
	if err := run.Get(ctx, &out); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return printStats(out, jsonReport)
}

func printBuild(rep *catalog.BuildReport, jsonReport bool) error {
	if jsonReport {
		return printStats(struct {
			Cases         int
			Categories    int
			Unclassified  int
			FailedDetails []string
			Duration      string
		}{rep.Cases, len(rep.CategoryIDs), rep.Unclassified, rep.FailedDetails, rep.Duration.String()}, true)
	}
	fmt.Printf("Cases:          %d\n", rep.Cases)
	fmt.Printf("Names:          %d\n", len(rep.Names))
	fmt.Printf("Categories:     %d\n", len(rep.CategoryIDs))
	fmt.Printf("Unclassified:   %d\n", rep.Unclassified)
	fmt.Printf("Failed details: %d\n", len(rep.FailedDetails))
	if rep.ReportGates != nil {
		for _, g := range rep.ReportGates.Gates {
			fmt.Printf("  gate %-20s %-8s score=%.2f\n", g.Name, g.Status, g.Score)
		}
	}
	fmt.Printf("Duration:       %s\n", rep.Duration.Round(time.Millisecond))
	return nil
}

func printStats(v any, jsonReport bool) error {
	if jsonReport {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Printf("%+v\n", v)
	return nil
}
