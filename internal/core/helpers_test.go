package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mikey/llm-dm-relay/internal/adapters/sealed"
	"github.com/mikey/llm-dm-relay/internal/adapters/store"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeClock is a settable clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// stubClassifier returns a fixed result or error and counts calls
type stubClassifier struct {
	mu    sync.Mutex
	label core.Label
	err   error
	delay time.Duration
	id    string
	calls int
}

func (s *stubClassifier) Classify(ctx context.Context, _ string) (*core.ClassificationResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &core.ClassificationResult{Label: s.label, ModelUsed: "stub", ProcessingID: s.id, ClassifiedAt: time.Now()}, nil
}

func (s *stubClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type relayFixture struct {
	store   *store.MemoryStore
	gateway *sealed.Gateway
	clock   *fakeClock
	service *core.RelayService
}

func newRelayFixture(t *testing.T, classifier core.IntentClassifier) *relayFixture {
	t.Helper()

	logger := zap.NewNop()
	st := store.NewMemoryStore(logger)
	gw := sealed.NewGateway(st, logger, 64*1024)
	clock := newFakeClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	registry := core.NewRegistry(st, gw, clock, logger)
	classification := core.NewClassificationService(classifier, nil, logger, time.Second, false, 0)
	drains := core.NewDrainCoordinator(st, clock, logger)

	return &relayFixture{
		store:   st,
		gateway: gw,
		clock:   clock,
		service: core.NewRelayService(registry, classification, gw, st, drains, clock, logger),
	}
}

// register registers a tenant with a generated key and returns its identity
func (f *relayFixture) register(t *testing.T, tenantID string) string {
	t.Helper()
	reg, err := f.service.Register(context.Background(), core.RegisterRequest{
		TenantID:     tenantID,
		ClientName:   "Client " + tenantID,
		BusinessName: "Business " + tenantID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, reg.PrivateKey)
	return reg.PrivateKey
}

func decrypt(t *testing.T, ciphertext, identity string) string {
	t.Helper()
	b, err := sealed.Decrypt(ciphertext, identity)
	require.NoError(t, err)
	return string(b)
}

func sealedDecrypt(ciphertext, identity string) ([]byte, error) {
	return sealed.Decrypt(ciphertext, identity)
}
