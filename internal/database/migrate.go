package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// gooseUp is swapped in tests that only check wiring.
var gooseUp = func(ctx context.Context, db *DB) error {
	// The *sql.DB borrows connections from the pool and is not closed here:
	// the pool stays owned by DB.
	return goose.UpContext(ctx, stdlib.OpenDBFromPool(db.Pool), "migrations")
}

// EnsureSchema applies every embedded migration not yet recorded in
// goose_db_version. Already migrated databases are left untouched.
func (db *DB) EnsureSchema(ctx context.Context) error {
	if db == nil || db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	goose.SetLogger(gooseLogger{})

	if err := gooseUp(ctx, db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	slog.Info("database schema ensured")
	return nil
}

// gooseLogger routes goose progress output through slog.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	slog.Info("migration", "detail", fmt.Sprintf(format, v...))
}

func (gooseLogger) Fatalf(format string, v ...any) {
	slog.Error("migration failed", "detail", fmt.Sprintf(format, v...))
}
