package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DrainCoordinator serialises snapshot-and-clear per tenant.
// At most one drain per tenant is in flight; drains of different tenants
// proceed independently.
type DrainCoordinator struct {
	store  MailboxStore
	clock  Clock
	logger *zap.Logger

	mu       sync.Mutex
	draining map[string]struct{}
}

// NewDrainCoordinator creates a new drain coordinator
func NewDrainCoordinator(store MailboxStore, clock Clock, logger *zap.Logger) *DrainCoordinator {
	return &DrainCoordinator{
		store:    store,
		clock:    clock,
		logger:   logger,
		draining: make(map[string]struct{}),
	}
}

// begin moves a tenant from Idle to Draining
func (c *DrainCoordinator) begin(tenantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.draining[tenantID]; busy {
		return false
	}
	c.draining[tenantID] = struct{}{}
	return true
}

// end moves a tenant back to Idle
func (c *DrainCoordinator) end(tenantID string) {
	c.mu.Lock()
	delete(c.draining, tenantID)
	c.mu.Unlock()
}

// Drain returns and clears the tenant's buffered records.
//
// The drain time is taken when processing begins. If the tenant's cursor is
// already at or past that instant the store is not read and an empty,
// UpToDate result is returned.
func (c *DrainCoordinator) Drain(ctx context.Context, tenantID string) (*DrainResult, error) {
	if !c.begin(tenantID) {
		c.logger.Warn("Rejected concurrent drain", zap.String("tenant_id", tenantID))
		return nil, fmt.Errorf("tenant %q: %w", tenantID, ErrDrainInProgress)
	}
	defer c.end(tenantID)

	now := ToMillis(c.clock.Now())

	last, drained, err := c.store.LastDrain(ctx, tenantID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if drained && !now.After(last) {
		c.logger.Debug("Drain is up to date",
			zap.String("tenant_id", tenantID),
			zap.Time("last_drain", last))
		return &DrainResult{TenantID: tenantID, Records: []MailboxRecord{}, DrainedAt: last, UpToDate: true}, nil
	}

	start := time.Now()
	records, err := c.store.SnapshotAndClear(ctx, tenantID, now)
	if err != nil {
		c.logger.Error("Drain failed",
			zap.Error(err),
			zap.String("tenant_id", tenantID))
		return nil, wrapStoreErr(err)
	}
	if records == nil {
		records = []MailboxRecord{}
	}

	c.logger.Info("Drained mailbox",
		zap.String("tenant_id", tenantID),
		zap.Int("records", len(records)),
		zap.Duration("duration", time.Since(start)))

	return &DrainResult{TenantID: tenantID, Records: records, DrainedAt: now}, nil
}

// wrapStoreErr tags untyped backend errors as store failures
func wrapStoreErr(err error) error {
	if errors.Is(err, ErrStore) || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStore, err)
}
