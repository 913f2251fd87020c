package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Supported drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Open connects to the database described by driver and dsn, verifies the
// connection and applies pending migrations.
func Open(ctx context.Context, driver, dsn string, log *slog.Logger) (*sql.DB, error) {
	if log == nil {
		log = slog.Default()
	}
	if _, err := gooseDialect(driver); err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	switch driver {
	case DriverSQLite:
		// SQLite allows a single writer; one connection also keeps an
		// in-memory database alive for the life of the pool.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	default:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := Migrate(ctx, db, driver, log); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("database connection established", slog.String("driver", driver))
	return db, nil
}
