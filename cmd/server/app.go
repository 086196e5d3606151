package main

import (
	"context"
	"fmt"

	"medievalrpg/internal/config"
	"medievalrpg/internal/debug"
	"medievalrpg/internal/llm"
	"medievalrpg/internal/logging"
	"medievalrpg/internal/observability"
	"medievalrpg/internal/server"
	"medievalrpg/internal/session"
	"medievalrpg/internal/storage"
)

type app struct {
	cfg     config.Config
	srv     *server.Server
	saves   *storage.Store
	dbg     *debug.Logger
	cleanup func()
}

func createApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("COMET_API_KEY is not set")
	}

	debugLogger := debug.NewLogger(cfg.Debug, cfg.DebugLog)

	ctx := context.Background()
	tracingConfig := observability.LoadConfigFromEnv()
	tracerProvider, err := observability.InitTracing(ctx, tracingConfig)
	if err != nil {
		debugLogger.Printf("Failed to initialize tracing: %v", err)
	} else if tracerProvider.IsEnabled() {
		debugLogger.Println("OpenTelemetry tracing initialized and enabled")
	} else {
		debugLogger.Println("OpenTelemetry tracing disabled (set OTEL_TRACES_ENABLED=true to enable)")
	}

	audit, err := logging.NewAuditLogger(cfg.AuditDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit logger: %w", err)
	}

	saves, err := storage.NewStore(cfg.SavesDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize save store: %w", err)
	}

	generator := llm.NewService(llm.Config{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.APIBase,
		Model:     cfg.ModelID,
		MaxTokens: cfg.MaxTokens,
	}, debugLogger)

	sessions := session.NewStore()
	runner := session.NewRunner(generator, audit, debugLogger)
	srv := server.New(sessions, runner, saves, debugLogger, cfg.Timeout)

	cleanup := func() {
		audit.Close()
		saves.Close()
		if tracerProvider != nil {
			tracerProvider.Shutdown(context.Background())
		}
	}

	return &app{cfg: cfg, srv: srv, saves: saves, dbg: debugLogger, cleanup: cleanup}, nil
}
