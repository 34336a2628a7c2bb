package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/voicebot-billing/internal/app/retrier"
	"github.com/magabrotheeeer/voicebot-billing/internal/config"
	"github.com/magabrotheeeer/voicebot-billing/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	logger := sl.New(cfg.Env, os.Stdout)

	logger.Info("starting billing retrier", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := retrier.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize retrier app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("retrier app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	logger.Info("retrier app stopped gracefully")
}
