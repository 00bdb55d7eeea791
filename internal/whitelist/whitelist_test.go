package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChecker_IsAccepted(t *testing.T) {
	c := NewChecker([]string{" Relay.Example.com ", "dm.example.org", ""}, zap.NewNop())

	assert.True(t, c.IsAccepted("acme@relay.example.com"))
	assert.True(t, c.IsAccepted("<acme@RELAY.example.com>"))
	assert.True(t, c.IsAccepted("shop@dm.example.org"))
	assert.False(t, c.IsAccepted("acme@other.example.com"))
	assert.False(t, c.IsAccepted("not-an-address"))
	assert.False(t, c.IsAccepted("@relay.example.com"))
}

func TestChecker_EmptyAcceptsAll(t *testing.T) {
	c := NewChecker(nil, nil)

	assert.True(t, c.IsAccepted("acme@anything.test"))
	assert.False(t, c.IsAccepted("acme@"))
}

func TestSplitAddress(t *testing.T) {
	local, domain, ok := SplitAddress("Acme.Shop@Relay.Example.com")
	assert.True(t, ok)
	assert.Equal(t, "Acme.Shop", local)
	assert.Equal(t, "relay.example.com", domain)

	_, _, ok = SplitAddress("missing-at")
	assert.False(t, ok)
}
