package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending SQL migrations.
//
// goose drives a database/sql connection, so we open one through the
// pgx stdlib adapter using the same pool config the service pool was
// built from. It is closed as soon as migrations finish; the service
// keeps using the native pgx pool.
func Migrate(ctx context.Context, database *DB, logger *zap.Logger) error {
	sqlDB := stdlib.OpenDBFromPool(database.Pool())
	defer sqlDB.Close()

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, sub)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("migration applied",
			zap.String("source", r.Source.Path),
			zap.Duration("took", r.Duration),
		)
	}
	return nil
}
