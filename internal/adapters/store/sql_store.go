package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// deleteBatchSize bounds the number of ids in one DELETE ... IN (...)
const deleteBatchSize = 500

type tenantRow struct {
	TenantID     string `db:"tenant_id"`
	ClientName   string `db:"client_name"`
	BusinessName string `db:"business_name"`
	PublicKey    string `db:"public_key"`
	CreatedAtMS  int64  `db:"created_at_ms"`
}

func (r tenantRow) toTenant() *core.Tenant {
	return &core.Tenant{
		ID:           r.TenantID,
		ClientName:   r.ClientName,
		BusinessName: r.BusinessName,
		PublicKey:    r.PublicKey,
		CreatedAt:    time.UnixMilli(r.CreatedAtMS).UTC(),
	}
}

type recordRow struct {
	ID           int64  `db:"id"`
	TenantID     string `db:"tenant_id"`
	SenderID     string `db:"sender_id"`
	Message      string `db:"message"`
	Intent       string `db:"intent"`
	EnqueuedAtMS int64  `db:"enqueued_at_ms"`
}

func (r recordRow) toRecord() core.MailboxRecord {
	return core.MailboxRecord{
		ID:         r.ID,
		TenantID:   r.TenantID,
		SenderID:   r.SenderID,
		Message:    r.Message,
		Intent:     r.Intent,
		EnqueuedAt: time.UnixMilli(r.EnqueuedAtMS).UTC(),
	}
}

// SQLStore is a database/sql implementation of core.Store shared by the
// sqlite, mysql and postgres backends. All tenants live in one schema and
// every row is keyed by tenant_id.
type SQLStore struct {
	db *sqlx.DB
	// reader serves single-statement lookups; it is db unless the backend
	// opens a separate pool
	reader  *sqlx.DB
	dialect dialect
	logger  *zap.Logger

	insertTenant string
	selectTenant string
	tenantExists string
	appendRecord string
	snapshot     string
	deleteIDs    string
	upsertCursor string
	selectCursor string
}

// newSQLStore wraps an open database, runs migrations and prepares queries
func newSQLStore(ctx context.Context, db *sql.DB, d dialect, logger *zap.Logger) (*SQLStore, error) {
	if err := migrate(ctx, db, d); err != nil {
		return nil, err
	}
	return buildSQLStore(sqlx.NewDb(db, d.driver), d, logger), nil
}

func buildSQLStore(x *sqlx.DB, d dialect, logger *zap.Logger) *SQLStore {
	return &SQLStore{
		db:      x,
		reader:  x,
		dialect: d,
		logger:  logger,

		insertTenant: x.Rebind(`
			INSERT INTO tenants (tenant_id, client_name, business_name, public_key, created_at_ms)
			VALUES (?, ?, ?, ?, ?)`),
		selectTenant: x.Rebind(`
			SELECT tenant_id, client_name, business_name, public_key, created_at_ms
			FROM tenants
			WHERE tenant_id = ?`),
		tenantExists: x.Rebind(`SELECT COUNT(*) FROM tenants WHERE tenant_id = ?`),
		// the SELECT from tenants makes the append a no-op for unknown tenants
		appendRecord: x.Rebind(`
			INSERT INTO mailbox_records (tenant_id, sender_id, message, intent, enqueued_at_ms)
			SELECT ` + d.appendColumns + `
			FROM tenants
			WHERE tenant_id = ?`),
		snapshot: x.Rebind(`
			SELECT id, tenant_id, sender_id, message, intent, enqueued_at_ms
			FROM mailbox_records
			WHERE tenant_id = ?
			ORDER BY id` + d.lockSuffix),
		deleteIDs:    `DELETE FROM mailbox_records WHERE tenant_id = ? AND id IN (?)`,
		upsertCursor: x.Rebind(d.upsertCursor),
		selectCursor: x.Rebind(`SELECT last_drain_ms FROM drain_cursors WHERE tenant_id = ?`),
	}
}

// migrate applies the embedded migrations for the dialect
func migrate(ctx context.Context, db *sql.DB, d dialect) error {
	fsys, err := fs.Sub(migrations, d.migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to load %s migrations: %w", d.name, err)
	}
	provider, err := goose.NewProvider(d.goose, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create %s migration provider: %w", d.name, err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate %s store: %w", d.name, err)
	}
	return nil
}

// CreateTenant inserts the tenant row together with its key slot
func (s *SQLStore) CreateTenant(ctx context.Context, tenant *core.Tenant) error {
	_, err := s.db.ExecContext(ctx, s.insertTenant,
		tenant.ID, tenant.ClientName, tenant.BusinessName, tenant.PublicKey, tenant.CreatedAt.UnixMilli())
	if err != nil {
		if s.dialect.isUnique(err) {
			return fmt.Errorf("tenant %q: %w", tenant.ID, core.ErrAlreadyExists)
		}
		return fmt.Errorf("%w: failed to insert tenant: %v", core.ErrStore, err)
	}
	return nil
}

// GetTenant returns a registered tenant
func (s *SQLStore) GetTenant(ctx context.Context, tenantID string) (*core.Tenant, error) {
	var row tenantRow
	if err := s.reader.GetContext(ctx, &row, s.selectTenant, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("tenant %q: %w", tenantID, core.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to query tenant: %v", core.ErrStore, err)
	}
	return row.toTenant(), nil
}

// TenantExists reports whether a tenant is registered
func (s *SQLStore) TenantExists(ctx context.Context, tenantID string) (bool, error) {
	var n int
	if err := s.reader.GetContext(ctx, &n, s.tenantExists, tenantID); err != nil {
		return false, fmt.Errorf("%w: failed to query tenant: %v", core.ErrStore, err)
	}
	return n > 0, nil
}

// PublicKey returns the tenant's public key
func (s *SQLStore) PublicKey(ctx context.Context, tenantID string) (string, error) {
	t, err := s.GetTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if t.PublicKey == "" {
		return "", fmt.Errorf("tenant %q: %w", tenantID, core.ErrKeyNotFound)
	}
	return t.PublicKey, nil
}

// Append stores one record
func (s *SQLStore) Append(ctx context.Context, tenantID string, record *core.MailboxRecord) error {
	res, err := s.db.ExecContext(ctx, s.appendRecord,
		record.SenderID, record.Message, record.Intent, record.EnqueuedAt.UnixMilli(), tenantID)
	if err != nil {
		return fmt.Errorf("%w: failed to append record: %v", core.ErrStore, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get rows affected: %v", core.ErrStore, err)
	}
	if n == 0 {
		return fmt.Errorf("tenant %q: %w", tenantID, core.ErrNotFound)
	}
	return nil
}

// SnapshotAndClear returns the tenant's records and deletes exactly those
// records in the same transaction as the cursor update. Records committed
// after the snapshot are left for the next drain.
func (s *SQLStore) SnapshotAndClear(ctx context.Context, tenantID string, drainedAt time.Time) ([]core.MailboxRecord, error) {
	var records []core.MailboxRecord

	err := withTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		var rows []recordRow
		if err := tx.SelectContext(ctx, &rows, s.snapshot, tenantID); err != nil {
			return fmt.Errorf("failed to read mailbox: %w", err)
		}

		ids := make([]int64, 0, len(rows))
		records = make([]core.MailboxRecord, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
			records = append(records, r.toRecord())
		}

		for start := 0; start < len(ids); start += deleteBatchSize {
			end := min(start+deleteBatchSize, len(ids))
			query, args, err := sqlx.In(s.deleteIDs, tenantID, ids[start:end])
			if err != nil {
				return fmt.Errorf("failed to build delete: %w", err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				return fmt.Errorf("failed to clear mailbox: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, s.upsertCursor, tenantID, drainedAt.UnixMilli()); err != nil {
			return fmt.Errorf("failed to update drain cursor: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStore, err)
	}

	s.logger.Debug("Snapshot and clear committed",
		zap.String("tenant_id", tenantID),
		zap.Int("records", len(records)),
		zap.String("store", s.dialect.name))
	return records, nil
}

// LastDrain returns the tenant's drain cursor
func (s *SQLStore) LastDrain(ctx context.Context, tenantID string) (time.Time, bool, error) {
	var ms int64
	if err := s.reader.GetContext(ctx, &ms, s.selectCursor, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("%w: failed to query drain cursor: %v", core.ErrStore, err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Close closes the database connections
func (s *SQLStore) Close() error {
	if s.reader != s.db {
		if err := s.reader.Close(); err != nil {
			s.logger.Warn("Failed to close read pool", zap.Error(err), zap.String("store", s.dialect.name))
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.Error(err), zap.String("store", s.dialect.name))
		return err
	}
	return nil
}
