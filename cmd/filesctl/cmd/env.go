package cmd

import (
	"context"
	"fmt"

	"github.com/templui/filesmanager/internal/app"
	"github.com/templui/filesmanager/internal/config"
	"github.com/templui/filesmanager/internal/logger"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(logger.Options{
		Component:   "filesctl",
		Level:       cfg.LogLevel,
		SentryDSN:   cfg.SentryDSN,
		Environment: cfg.AppEnv,
	})
	return cfg, nil
}

// withApp opens metadata, storage and the queue, runs fn, then closes them.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Flush()

	a, err := app.NewWorker(ctx, cfg)
	if err != nil {
		return err
	}

	err = fn(a)
	closeErr := a.Close()
	if err != nil {
		return err
	}
	return closeErr
}
