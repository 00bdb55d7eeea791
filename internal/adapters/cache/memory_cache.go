package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mikey/llm-dm-relay/internal/core"
	"go.uber.org/zap"
)

type entry struct {
	label     core.Label
	expiresAt time.Time
}

// MemoryCache is an in-memory core.LabelCache keyed by text digest
type MemoryCache struct {
	entries     map[string]entry
	mu          sync.RWMutex
	logger      *zap.Logger
	cleanupFreq time.Duration
	now         func() time.Time
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryCache creates a new in-memory cache. A cleanupFreq <= 0 disables
// the background sweep; expired entries are still ignored on read.
func NewMemoryCache(logger *zap.Logger, cleanupFreq time.Duration) *MemoryCache {
	cache := &MemoryCache{
		entries:     make(map[string]entry),
		logger:      logger,
		cleanupFreq: cleanupFreq,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 {
		go cache.startCleanupTask()
	}

	return cache
}

// Get retrieves a cached label
func (c *MemoryCache) Get(_ context.Context, digest string) (core.Label, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[digest]
	if !ok || c.now().After(e.expiresAt) {
		return "", false
	}
	return e.label, true
}

// Set stores a label for ttl
func (c *MemoryCache) Set(_ context.Context, digest string, label core.Label, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[digest] = entry{label: label, expiresAt: c.now().Add(ttl)}
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expiredCount := 0

	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired label cache entries",
		zap.Int("expired_count", expiredCount),
		zap.Int("remaining", len(c.entries)))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up label cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
