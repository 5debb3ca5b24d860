package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/templui/filesmanager/internal/app"
	"github.com/templui/filesmanager/internal/config"
	"github.com/templui/filesmanager/internal/logger"
	"github.com/templui/filesmanager/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Init(logger.Options{
		Component:   "worker",
		Level:       cfg.LogLevel,
		JSON:        cfg.IsProduction(),
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.AppEnv,
	})
	defer logger.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg)
	if err != nil {
		slog.Error("worker failed", "error", err)
		logger.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	app, err := app.NewWorker(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := app.Close()
		if closeErr != nil {
			slog.Error("failed to close app", "error", closeErr)
		}
	}()

	slog.Info("worker starting", "queue", cfg.QueueName, "driver", cfg.QueueDriver, "concurrency", cfg.WorkerConcurrency)

	// Run returns once ctx is done and in-flight jobs have settled
	return worker.New(app.Queue, app.Processor, cfg.WorkerConcurrency).Run(ctx)
}
