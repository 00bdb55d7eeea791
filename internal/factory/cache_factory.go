package factory

import (
	"fmt"

	"github.com/mikey/llm-dm-relay/internal/adapters/cache"
	"github.com/mikey/llm-dm-relay/internal/config"
	"go.uber.org/zap"
)

// CacheFactory creates the classification label cache
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateLabelCache creates the label cache, or nil when caching is disabled
func (f *CacheFactory) CreateLabelCache() (*cache.MemoryCache, error) {
	classifierCfg, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, fmt.Errorf("invalid classifier configuration: %w", err)
	}
	if !classifierCfg.CacheEnabled {
		f.logger.Info("Classification cache disabled")
		return nil, nil
	}
	return cache.NewMemoryCache(f.logger, classifierCfg.CacheCleanupFrequency), nil
}
