package main

import (
	"fmt"

	"github.com/mosaicdev/chorus/internal/catalog"
	"github.com/mosaicdev/chorus/internal/config"
	"github.com/mosaicdev/chorus/internal/orchestrator"
	"github.com/mosaicdev/chorus/internal/server"
)

// openCatalog opens the catalog database at the configured path and applies
// pending migrations.
func openCatalog(cfg *config.Config) (*catalog.DB, error) {
	db, err := catalog.Open(cfg.Catalog.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog at %s: %w", cfg.Catalog.DBPath, err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return db, nil
}

// taskLogAdapter bridges the catalog sink into the orchestrator's TaskLogger.
type taskLogAdapter struct {
	sink *catalog.TaskLogSink
}

func (a *taskLogAdapter) LogCompletedTask(entry orchestrator.TaskLogEntry) {
	a.sink.LogCompletedTask(catalog.TaskLogEntry{
		ProjectID:    entry.ProjectID,
		RoleSlug:     entry.RoleSlug,
		ProviderSlug: entry.ProviderSlug,
		Input:        entry.Input,
		Output:       entry.Output,
		Status:       entry.Status,
		DurationMs:   entry.DurationMs,
	})
}

// newRunnerFactory builds per-request orchestrators sharing the catalog
// resolver, the task log sink, and the debug logger.
func newRunnerFactory(cfg *config.Config, db *catalog.DB, sink *catalog.TaskLogSink, logger *orchestrator.DebugLogger) server.RunnerFactory {
	resolver := catalog.NewResolver(db)
	return func() server.SessionRunner {
		opts := []orchestrator.Option{
			orchestrator.WithEmitterBuffer(cfg.Session.EventBuffer),
			orchestrator.WithHeartbeatInterval(cfg.Session.HeartbeatInterval),
			orchestrator.WithMaxTokens(cfg.Session.MaxTokens),
			orchestrator.WithCallTimeout(cfg.Session.CallTimeout),
			orchestrator.WithLogger(logger),
		}
		if sink != nil {
			opts = append(opts, orchestrator.WithTaskLogger(&taskLogAdapter{sink: sink}))
		}
		return orchestrator.New(resolver, opts...)
	}
}
