package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mikey/llm-dm-relay/internal/core"
	"go.uber.org/zap"
)

// mailbox is one tenant's buffer and cursor
type mailbox struct {
	mu        sync.Mutex
	records   []core.MailboxRecord
	lastDrain time.Time
	drained   bool
}

// MemoryStore is a non-durable core.Store for tests and local development.
// Contents are lost when the process exits.
type MemoryStore struct {
	mu        sync.RWMutex
	tenants   map[string]*core.Tenant
	mailboxes map[string]*mailbox
	nextID    atomic.Int64
	logger    *zap.Logger
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		tenants:   make(map[string]*core.Tenant),
		mailboxes: make(map[string]*mailbox),
		logger:    logger,
	}
}

func (s *MemoryStore) mailbox(tenantID string) (*mailbox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mb, ok := s.mailboxes[tenantID]
	return mb, ok
}

// CreateTenant registers a tenant and allocates its mailbox
func (s *MemoryStore) CreateTenant(_ context.Context, tenant *core.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[tenant.ID]; ok {
		return fmt.Errorf("tenant %q: %w", tenant.ID, core.ErrAlreadyExists)
	}
	t := *tenant
	s.tenants[tenant.ID] = &t
	s.mailboxes[tenant.ID] = &mailbox{}
	return nil
}

// GetTenant returns a copy of a registered tenant
func (s *MemoryStore) GetTenant(_ context.Context, tenantID string) (*core.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, core.ErrNotFound)
	}
	out := *t
	return &out, nil
}

// TenantExists reports whether a tenant is registered
func (s *MemoryStore) TenantExists(_ context.Context, tenantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tenants[tenantID]
	return ok, nil
}

// PublicKey returns the tenant's public key
func (s *MemoryStore) PublicKey(ctx context.Context, tenantID string) (string, error) {
	t, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if t.PublicKey == "" {
		return "", fmt.Errorf("tenant %q: %w", tenantID, core.ErrKeyNotFound)
	}
	return t.PublicKey, nil
}

// Append adds a record to the tenant's mailbox
func (s *MemoryStore) Append(_ context.Context, tenantID string, record *core.MailboxRecord) error {
	mb, ok := s.mailbox(tenantID)
	if !ok {
		return fmt.Errorf("tenant %q: %w", tenantID, core.ErrNotFound)
	}

	r := *record
	r.TenantID = tenantID

	mb.mu.Lock()
	r.ID = s.nextID.Add(1)
	mb.records = append(mb.records, r)
	mb.mu.Unlock()
	return nil
}

// SnapshotAndClear swaps out the tenant's records and advances the cursor
func (s *MemoryStore) SnapshotAndClear(_ context.Context, tenantID string, drainedAt time.Time) ([]core.MailboxRecord, error) {
	mb, ok := s.mailbox(tenantID)
	if !ok {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, core.ErrNotFound)
	}

	mb.mu.Lock()
	defer mb.mu.Unlock()

	records := mb.records
	mb.records = nil
	if !mb.drained || drainedAt.After(mb.lastDrain) {
		mb.lastDrain = drainedAt
	}
	mb.drained = true

	if records == nil {
		records = []core.MailboxRecord{}
	}

	s.logger.Debug("Snapshot and clear committed",
		zap.String("tenant_id", tenantID),
		zap.Int("records", len(records)),
		zap.String("store", "memory"))
	return records, nil
}

// LastDrain returns the tenant's drain cursor
func (s *MemoryStore) LastDrain(_ context.Context, tenantID string) (time.Time, bool, error) {
	mb, ok := s.mailbox(tenantID)
	if !ok {
		return time.Time{}, false, nil
	}
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.lastDrain, mb.drained, nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
