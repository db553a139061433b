package main

import (
	"context"
	"flag"
	"log"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/anzen/internal/app"
	"github.com/efebarandurmaz/anzen/internal/config"
	"github.com/efebarandurmaz/anzen/internal/logging"
	"github.com/efebarandurmaz/anzen/internal/server"
	temporalmod "github.com/efebarandurmaz/anzen/internal/temporal"
)

func main() {
	configPath := flag.String("config", "configs/anzen.yaml", "Config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.Init(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		log.Fatalf("backends: %v", err)
	}

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger,
	})
	if err != nil {
		a.Close()
		log.Fatalf("temporal client: %v", err)
	}

	acts := a.Activities()
	if acts.Videos == nil {
		logger.Warn("video stage disabled: no media backend configured")
	}
	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue, acts)
	if err != nil {
		c.Close()
		a.Close()
		log.Fatalf("worker: %v", err)
	}
	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue)

	shutdown := server.NewShutdownHandler(&server.ShutdownConfig{Logger: logger})
	shutdown.Register(server.TemporalWorkerShutdownHook(w.Stop))
	shutdown.Register(server.CloserShutdownHook("temporal-client", func() error {
		c.Close()
		return nil
	}))
	a.RegisterShutdown(shutdown)
	shutdown.Start()
	shutdown.Wait()

	logger.Info("worker stopped")
}
