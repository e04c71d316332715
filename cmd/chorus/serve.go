package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mosaicdev/chorus/internal/catalog"
	"github.com/mosaicdev/chorus/internal/config"
	"github.com/mosaicdev/chorus/internal/orchestrator"
	"github.com/mosaicdev/chorus/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestration HTTP server",
	Long: `Run the Chorus HTTP server.

Endpoints:
  POST /api/sessions   create a session and stream its events (SSE or NDJSON)
  GET  /api/roles      list registered roles
  GET  /api/providers  list registered providers
  GET  /healthz        liveness check

Streaming format follows the Accept header: text/event-stream selects SSE,
anything else receives newline-delimited JSON.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := catalog.SeedRoles(cmd.Context(), db); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	logger, err := orchestrator.NewDebugLogger(cfg.Debug.LogPath)
	if err != nil {
		return fmt.Errorf("open debug log: %w", err)
	}
	defer logger.Close()

	sink := catalog.NewTaskLogSink(db, cfg.Session.EventBuffer)
	defer sink.Close()

	srv := server.New(cfg, db, newRunnerFactory(cfg, db, sink, logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("chorus listening on %s (catalog: %s)\n", cfg.Server.Addr, db.Path())
	return srv.ListenAndServe(ctx)
}
