package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// NewPostgresStore connects to PostgreSQL through pgx and applies migrations
func NewPostgresStore(ctx context.Context, dsn string, maxOpenConns int, logger *zap.Logger) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	s, err := newSQLStore(ctx, db, postgresDialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to PostgreSQL store")
	return s, nil
}
