package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/efebarandurmaz/sportsqa/internal/app"
	"github.com/efebarandurmaz/sportsqa/internal/config"
	"github.com/efebarandurmaz/sportsqa/internal/observability"
	"github.com/efebarandurmaz/sportsqa/internal/server"
	temporalmod "github.com/efebarandurmaz/sportsqa/internal/temporal"
)

func main() {
	configPath := "configs/sportsqa.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := observability.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("building service: %v", err)
	}

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		a.Close()
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue, a.Activities())
	if err != nil {
		a.Close()
		log.Fatalf("worker: %v", err)
	}
	logger.Info("Worker started", "task_queue", cfg.Temporal.TaskQueue)

	shutdown := server.NewShutdown(0, logger)
	shutdown.Register(server.TemporalWorkerShutdownHook(w.Stop))
	shutdown.Register(server.VectorStoreShutdownHook(a.Close))
	if err := shutdown.Wait(ctx); err != nil {
		log.Fatalf("shutdown: %v", err)
	}
}
