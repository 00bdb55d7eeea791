package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-dm-relay/internal/adapters/store"
	"github.com/mikey/llm-dm-relay/internal/config"
	"github.com/mikey/llm-dm-relay/internal/core"
	"go.uber.org/zap"
)

// StoreFactory creates the storage backend based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore opens the configured store and applies its migrations
func (f *StoreFactory) CreateStore(ctx context.Context) (core.Store, error) {
	storeCfg := f.cfg.GetStore()

	switch storeCfg.Type {
	case "memory":
		f.logger.Warn("Using in-memory store, buffered messages will not survive a restart")
		return store.NewMemoryStore(f.logger), nil
	case "sqlite":
		return store.NewSQLiteStore(ctx, storeCfg.SQLitePath, f.logger)
	case "mysql":
		if storeCfg.MySQLDSN == "" {
			return nil, fmt.Errorf("store.mysql_dsn is required for the mysql store")
		}
		return store.NewMySQLStore(ctx, storeCfg.MySQLDSN, storeCfg.MaxOpenConns, f.logger)
	case "postgres":
		if storeCfg.PostgresDSN == "" {
			return nil, fmt.Errorf("store.postgres_dsn is required for the postgres store")
		}
		return store.NewPostgresStore(ctx, storeCfg.PostgresDSN, storeCfg.MaxOpenConns, f.logger)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", storeCfg.Type)
	}
}
