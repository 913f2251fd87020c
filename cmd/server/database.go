package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scribe-api/internal/config"
	"github.com/phrazzld/scribe-api/internal/platform/sqldb"
	"github.com/phrazzld/scribe-api/internal/redact"
	"github.com/phrazzld/scribe-api/internal/store"
)

// setupBlogStore opens the configured blog store. The memory driver needs no
// database, so the returned *sql.DB is nil for it.
func setupBlogStore(
	ctx context.Context,
	cfg config.DatabaseConfig,
	logger *slog.Logger,
) (store.BlogStore, *sql.DB, error) {
	if cfg.Driver == "memory" {
		logger.Info("Storing blogs in memory")
		return store.NewMemoryBlogStore(), nil, nil
	}

	db, err := sqldb.Open(ctx, cfg.Driver, cfg.URL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %s", redact.Error(err))
	}

	blogs, err := sqldb.NewBlogStore(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to create blog store: %w", err)
	}

	logger.Info("Database connection established", slog.String("driver", cfg.Driver))
	return blogs, db, nil
}
