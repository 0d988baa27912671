package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/GolangDeveloperAlmir/sales-service/internal/app"
	"github.com/GolangDeveloperAlmir/sales-service/internal/config"
	"github.com/GolangDeveloperAlmir/sales-service/internal/platform/log"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := log.New(cfg.AppEnv)
	defer func() { _ = logger.Sync() }()

	if err := app.Run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped", log.Err(err))
		return err
	}
	return nil
}
