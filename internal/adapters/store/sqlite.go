package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// sqliteReadConns bounds the read pool
const sqliteReadConns = 4

// sqliteDSN opens every transaction with BEGIN IMMEDIATE so a drain holds the
// write lock from its first read until commit.
func sqliteDSN(path string) string {
	return fmt.Sprintf("file:%s?_txlock=immediate&_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
}

// sqliteReadDSN is for the query-only pool. WAL mode is persistent in the
// file, so readers see the last committed state while a writer holds its lock.
func sqliteReadDSN(path string) string {
	return fmt.Sprintf("file:%s?_txlock=deferred&_query_only=true&_busy_timeout=5000&_foreign_keys=on", path)
}

// NewSQLiteStore opens (creating if needed) a SQLite store at path
func NewSQLiteStore(ctx context.Context, path string, logger *zap.Logger) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
	}

	db, err := sql.Open(sqliteDialect.driver, sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// SQLite allows a single writer; a second write connection would only
	// spin on SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s, err := newSQLStore(ctx, db, sqliteDialect, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	// lookups go through their own pool so that a drain transaction on one
	// tenant does not hold up reads for every other tenant
	rdb, err := sql.Open(sqliteDialect.driver, sqliteReadDSN(path))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite read pool: %w", err)
	}
	rdb.SetMaxOpenConns(sqliteReadConns)
	if err := rdb.PingContext(ctx); err != nil {
		rdb.Close()
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite read pool: %w", err)
	}
	s.reader = sqlx.NewDb(rdb, sqliteDialect.driver)

	logger.Info("Opened SQLite store", zap.String("path", path), zap.Int("read_conns", sqliteReadConns))
	return s, nil
}
