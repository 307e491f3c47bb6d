package main

import (
	"context"
	"log"

	"indian-airlines-ivr/internal/bootstrap"
	"indian-airlines-ivr/internal/config"
	"indian-airlines-ivr/internal/observability"
	"indian-airlines-ivr/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := observability.NewLoggerWithLevel(cfg.LogLevel)
	defer logger.Sync()

	ctx := context.Background()
	ctx = observability.WithFields(ctx, observability.Field{Key: "environment", Value: cfg.Environment})

	deps, err := bootstrap.Initialize(ctx, cfg, logger)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize dependencies", err)
	}

	srv := server.New(cfg, deps, logger)
	srv.Setup()
	if err := srv.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start server", err)
	}
	if err := srv.WaitForShutdown(ctx); err != nil {
		logger.Fatal(ctx, "server shutdown failed", err)
	}
}
