package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// NewMySQLStore connects to MySQL and applies migrations
func NewMySQLStore(ctx context.Context, dsn string, maxOpenConns int, logger *zap.Logger) (*SQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse MySQL DSN: %w", err)
	}
	// goose migrations carry several statements per file
	cfg.MultiStatements = true

	db, err := sql.Open(mysqlDialect.driver, cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	s, err := newSQLStore(ctx, db, mysqlDialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to MySQL store", zap.String("addr", cfg.Addr), zap.String("database", cfg.DBName))
	return s, nil
}
