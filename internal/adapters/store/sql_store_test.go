package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var recordColumns = []string{"id", "tenant_id", "sender_id", "message", "intent", "enqueued_at_ms"}

func newMockStore(t *testing.T, driver string, d dialect) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return buildSQLStore(sqlx.NewDb(db, driver), d, zap.NewNop()), mock
}

func TestSQLStore_MySQLSnapshotAndClear(t *testing.T) {
	s, mock := newMockStore(t, "mysql", mysqlDialect)
	drainedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, tenant_id, sender_id, message, intent, enqueued_at_ms FROM mailbox_records WHERE tenant_id = \? ORDER BY id FOR UPDATE`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(1), "acme", "s1", "m1", "i1", drainedAt.Add(-time.Minute).UnixMilli()).
			AddRow(int64(2), "acme", "s2", "m2", "i2", drainedAt.UnixMilli()))
	mock.ExpectExec(`DELETE FROM mailbox_records WHERE tenant_id = \? AND id IN \(\?, \?\)`).
		WithArgs("acme", int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO drain_cursors .* ON DUPLICATE KEY UPDATE`).
		WithArgs("acme", drainedAt.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	records, err := s.SnapshotAndClear(context.Background(), "acme", drainedAt)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].ID)
	assert.Equal(t, "m1", records[0].Message)
	assert.True(t, drainedAt.Add(-time.Minute).Equal(records[0].EnqueuedAt))
	assert.Equal(t, "m2", records[1].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SnapshotEmptySkipsDelete(t *testing.T) {
	s, mock := newMockStore(t, "mysql", mysqlDialect)
	drainedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, tenant_id`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(recordColumns))
	mock.ExpectExec(`INSERT INTO drain_cursors`).
		WithArgs("acme", drainedAt.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	records, err := s.SnapshotAndClear(context.Background(), "acme", drainedAt)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_SnapshotRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t, "mysql", mysqlDialect)
	drainedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, tenant_id`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(recordColumns).
			AddRow(int64(7), "acme", "s", "m", "i", drainedAt.UnixMilli()))
	mock.ExpectExec(`DELETE FROM mailbox_records`).
		WithArgs("acme", int64(7)).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	records, err := s.SnapshotAndClear(context.Background(), "acme", drainedAt)
	assert.ErrorIs(t, err, core.ErrStore)
	assert.Nil(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_AppendUnknownTenant(t *testing.T) {
	s, mock := newMockStore(t, "mysql", mysqlDialect)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO mailbox_records .* SELECT tenant_id, \?, \?, \?, \? FROM tenants WHERE tenant_id = \?`).
		WithArgs("s", "m", "i", at.UnixMilli(), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Append(context.Background(), "ghost", &core.MailboxRecord{SenderID: "s", Message: "m", Intent: "i", EnqueuedAt: at})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_CreateTenantDuplicate(t *testing.T) {
	s, mock := newMockStore(t, "mysql", mysqlDialect)

	mock.ExpectExec(`INSERT INTO tenants`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'acme' for key 'PRIMARY'"})
	mock.ExpectExec(`INSERT INTO tenants`).
		WillReturnError(errors.New("connection reset"))

	tenant := &core.Tenant{ID: "acme", ClientName: "c", BusinessName: "b", PublicKey: "age1x", CreatedAt: time.Now()}

	err := s.CreateTenant(context.Background(), tenant)
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	err = s.CreateTenant(context.Background(), tenant)
	assert.ErrorIs(t, err, core.ErrStore)
	assert.NotErrorIs(t, err, core.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LastDrainMissing(t *testing.T) {
	s, mock := newMockStore(t, "mysql", mysqlDialect)

	mock.ExpectQuery(`SELECT last_drain_ms FROM drain_cursors`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"last_drain_ms"}))

	_, ok, err := s.LastDrain(context.Background(), "acme")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_PostgresBinding(t *testing.T) {
	s, _ := newMockStore(t, "pgx", postgresDialect)

	assert.Contains(t, s.appendRecord, "CAST($1 AS TEXT)")
	assert.Contains(t, s.appendRecord, "CAST($4 AS BIGINT)")
	assert.Contains(t, s.appendRecord, "WHERE tenant_id = $5")
	assert.Contains(t, s.snapshot, "FOR UPDATE")
	assert.Contains(t, s.upsertCursor, "GREATEST")
	assert.Contains(t, s.upsertCursor, "VALUES ($1, $2)")
}
