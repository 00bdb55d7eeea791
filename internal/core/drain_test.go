package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/llm-dm-relay/internal/adapters/store"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// blockingStore holds SnapshotAndClear until released
type blockingStore struct {
	core.MailboxStore
	entered chan struct{}
	release chan struct{}
	failErr error
}

func (b *blockingStore) SnapshotAndClear(ctx context.Context, tenantID string, drainedAt time.Time) ([]core.MailboxRecord, error) {
	if b.entered != nil {
		b.entered <- struct{}{}
		<-b.release
	}
	if b.failErr != nil {
		return nil, b.failErr
	}
	return b.MailboxStore.SnapshotAndClear(ctx, tenantID, drainedAt)
}

func seededStore(t *testing.T, tenants ...string) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore(zap.NewNop())
	for _, id := range tenants {
		require.NoError(t, st.CreateTenant(context.Background(), &core.Tenant{ID: id, PublicKey: "unused"}))
	}
	return st
}

func TestDrainCoordinator_ConcurrentDrainRejected(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t, "acme", "other")
	bs := &blockingStore{MailboxStore: st, entered: make(chan struct{}), release: make(chan struct{})}
	clock := newFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	c := core.NewDrainCoordinator(bs, clock, zap.NewNop())

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Drain(ctx, "acme")
		errCh <- err
	}()
	<-bs.entered

	_, err := c.Drain(ctx, "acme")
	require.ErrorIs(t, err, core.ErrDrainInProgress)
	assert.Equal(t, core.CodeDrainInProgress, core.ErrorCode(err))

	// another tenant is unaffected
	otherDone := make(chan error, 1)
	go func() {
		_, err := c.Drain(ctx, "other")
		otherDone <- err
	}()
	<-bs.entered

	bs.release <- struct{}{}
	bs.release <- struct{}{}
	require.NoError(t, <-otherDone)
	require.NoError(t, <-errCh)

	// the tenant is idle again
	bs.entered = nil
	clock.Advance(time.Second)
	_, err = c.Drain(ctx, "acme")
	require.NoError(t, err)
}

func TestDrainCoordinator_UpToDate(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t, "acme")
	clock := newFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	c := core.NewDrainCoordinator(st, clock, zap.NewNop())

	first, err := c.Drain(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, first.UpToDate)

	require.NoError(t, st.Append(ctx, "acme", &core.MailboxRecord{SenderID: "s", Message: "m", Intent: "i"}))

	// same millisecond: the store is not read
	second, err := c.Drain(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, second.UpToDate)
	assert.Empty(t, second.Records)
	assert.NotNil(t, second.Records)

	clock.Advance(time.Millisecond)
	third, err := c.Drain(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, third.UpToDate)
	assert.Len(t, third.Records, 1)

	last, ok, err := st.LastDrain(ctx, "acme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, third.DrainedAt, last)
}

func TestDrainCoordinator_FailureLeavesMailbox(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t, "acme")
	require.NoError(t, st.Append(ctx, "acme", &core.MailboxRecord{SenderID: "s", Message: "m", Intent: "i"}))

	bs := &blockingStore{MailboxStore: st, failErr: errors.New("disk full")}
	clock := newFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	c := core.NewDrainCoordinator(bs, clock, zap.NewNop())

	_, err := c.Drain(ctx, "acme")
	require.ErrorIs(t, err, core.ErrStore)
	assert.Equal(t, core.CodeStoreFailure, core.ErrorCode(err))

	_, ok, err := st.LastDrain(ctx, "acme")
	require.NoError(t, err)
	assert.False(t, ok, "no cursor is committed on failure")

	bs.failErr = nil
	result, err := c.Drain(ctx, "acme")
	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
}
