package smtp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/mikey/llm-dm-relay/internal/config"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/mikey/llm-dm-relay/internal/whitelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRelay struct {
	mu        sync.Mutex
	tenants   map[string]bool
	existsErr error
	ingestErr error
	// failing fails ingest for single tenants
	failing  map[string]error
	ingested []core.InboundMessage
}

func (f *fakeRelay) Exists(_ context.Context, tenantID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.tenants[tenantID], nil
}

func (f *fakeRelay) Ingest(_ context.Context, msg core.InboundMessage) error {
	if f.ingestErr != nil {
		return f.ingestErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failing[msg.TenantID]; err != nil {
		return err
	}
	f.ingested = append(f.ingested, msg)
	return nil
}

func (f *fakeRelay) count(tenantID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, msg := range f.ingested {
		if msg.TenantID == tenantID {
			n++
		}
	}
	return n
}

func newSession(relay Relay, domains ...string) *session {
	logger := zap.NewNop()
	srv := NewServer(relay, whitelist.NewChecker(domains, logger), config.SMTPConfig{}, time.Second, logger)
	return &session{server: srv}
}

func smtpCode(t *testing.T, err error) int {
	t.Helper()
	var se *gosmtp.SMTPError
	require.True(t, errors.As(err, &se), "expected SMTP error, got %v", err)
	return se.Code
}

const plainMessage = "From: jane@example.com\r\n" +
	"To: acme@relay.example.com\r\n" +
	"Subject: Bulk order\r\n" +
	"\r\n" +
	"I want to buy 200 units.\r\n"

func TestSession_DeliversToEachTenant(t *testing.T) {
	relay := &fakeRelay{tenants: map[string]bool{"acme": true, "globex": true}}
	s := newSession(relay, "relay.example.com")

	require.NoError(t, s.Mail("jane@example.com", nil))
	require.NoError(t, s.Rcpt("acme@relay.example.com", nil))
	require.NoError(t, s.Rcpt("<globex@RELAY.example.com>", nil))
	require.NoError(t, s.Data(strings.NewReader(plainMessage)))

	require.Len(t, relay.ingested, 2)
	assert.Equal(t, "acme", relay.ingested[0].TenantID)
	assert.Equal(t, "globex", relay.ingested[1].TenantID)
	for _, msg := range relay.ingested {
		assert.Equal(t, "jane@example.com", msg.SenderID)
		assert.Equal(t, "Bulk order\n\nI want to buy 200 units.", msg.Message)
	}

	s.Reset()
	assert.Empty(t, s.sender)
	assert.Empty(t, s.tenants)
	assert.NoError(t, s.Logout())
}

func TestSession_RcptRejections(t *testing.T) {
	relay := &fakeRelay{tenants: map[string]bool{"acme": true}}

	s := newSession(relay, "relay.example.com")
	assert.Equal(t, 503, smtpCode(t, s.Rcpt("acme@relay.example.com", nil)))

	require.NoError(t, s.Mail("jane@example.com", nil))
	assert.Equal(t, 550, smtpCode(t, s.Rcpt("acme@elsewhere.example.com", nil)))

	err := s.Rcpt("ghost@relay.example.com", nil)
	assert.Equal(t, 550, smtpCode(t, err))
	assert.Contains(t, err.Error(), "Client Does not Exist")
	assert.Empty(t, s.tenants)

	relay.existsErr = errors.New("db down")
	assert.Equal(t, 451, smtpCode(t, s.Rcpt("acme@relay.example.com", nil)))
}

func TestSession_AnyDomainWhenUnrestricted(t *testing.T) {
	relay := &fakeRelay{tenants: map[string]bool{"acme": true}}
	s := newSession(relay)

	require.NoError(t, s.Mail("jane@example.com", nil))
	assert.NoError(t, s.Rcpt("acme@anything.example.org", nil))
}

func TestSession_DataFailures(t *testing.T) {
	tests := []struct {
		name      string
		ingestErr error
		body      string
		code      int
	}{
		{"empty body", nil, "Subject: \r\n\r\n   \r\n", 554},
		{"malformed", nil, "no headers here", 554},
		{"tenant vanished", fmt.Errorf("x: %w", core.ErrNotFound), plainMessage, 550},
		{"store failure", fmt.Errorf("%w: disk", core.ErrStore), plainMessage, 451},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := &fakeRelay{tenants: map[string]bool{"acme": true}, ingestErr: tt.ingestErr}
			s := newSession(relay)
			require.NoError(t, s.Mail("jane@example.com", nil))
			require.NoError(t, s.Rcpt("acme@relay.example.com", nil))

			assert.Equal(t, tt.code, smtpCode(t, s.Data(strings.NewReader(tt.body))))
			assert.Empty(t, relay.ingested)
		})
	}
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		id   string
	}{
		{
			name: "plain with subject",
			raw:  plainMessage,
			want: "Bulk order\n\nI want to buy 200 units.",
		},
		{
			name: "message id",
			raw:  "Message-ID: <abc@mail.example.com>\r\nSubject: hi\r\n\r\nthere\r\n",
			want: "hi\n\nthere",
			id:   "<abc@mail.example.com>",
		},
		{
			name: "no subject",
			raw:  "From: a@b.c\r\n\r\nhello there\r\n",
			want: "hello there",
		},
		{
			name: "subject only",
			raw:  "Subject: ping\r\n\r\n",
			want: "ping",
		},
		{
			name: "encoded subject",
			raw:  "Subject: =?UTF-8?B?Q2Fmw6k=?=\r\n\r\nbody\r\n",
			want: "Café\n\nbody",
		},
		{
			name: "multipart skips html and attachments",
			raw: "Subject: Partnership\r\n" +
				"MIME-Version: 1.0\r\n" +
				"Content-Type: multipart/mixed; boundary=outer\r\n" +
				"\r\n" +
				"--outer\r\n" +
				"Content-Type: multipart/alternative; boundary=inner\r\n" +
				"\r\n" +
				"--inner\r\n" +
				"Content-Type: text/plain; charset=utf-8\r\n" +
				"\r\n" +
				"Let's work together.\r\n" +
				"--inner\r\n" +
				"Content-Type: text/html\r\n" +
				"\r\n" +
				"<p>Let's work together.</p>\r\n" +
				"--inner--\r\n" +
				"--outer\r\n" +
				"Content-Type: text/plain\r\n" +
				"Content-Disposition: attachment; filename=\"notes.txt\"\r\n" +
				"\r\n" +
				"secret attachment\r\n" +
				"--outer--\r\n",
			want: "Partnership\n\nLet's work together.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMessage(strings.NewReader(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.text)
			assert.Equal(t, tt.id, got.messageID)
		})
	}
}

func TestServer_StopBeforeStart(t *testing.T) {
	s := NewServer(&fakeRelay{}, whitelist.NewChecker(nil, nil), config.SMTPConfig{}, 0, zap.NewNop())
	assert.Equal(t, "smtp", s.Name())
	assert.NoError(t, s.Stop(context.Background()))
}

const idMessage = "From: jane@example.com\r\n" +
	"Message-ID: <order-42@mail.example.com>\r\n" +
	"Subject: Bulk order\r\n" +
	"\r\n" +
	"I want to buy 200 units.\r\n"

func TestSession_DuplicateRcpt(t *testing.T) {
	relay := &fakeRelay{tenants: map[string]bool{"acme": true}}
	s := newSession(relay)

	require.NoError(t, s.Mail("jane@example.com", nil))
	require.NoError(t, s.Rcpt("acme@relay.example.com", nil))
	require.NoError(t, s.Rcpt("<acme@RELAY.example.com>", nil))
	assert.Equal(t, []string{"acme"}, s.tenants)

	require.NoError(t, s.Data(strings.NewReader(plainMessage)))
	assert.Equal(t, 1, relay.count("acme"))
}

func TestSession_RetryAfterPartialFailure(t *testing.T) {
	for name, raw := range map[string]string{"message id": idMessage, "no message id": plainMessage} {
		t.Run(name, func(t *testing.T) {
			relay := &fakeRelay{
				tenants: map[string]bool{"acme": true, "globex": true},
				failing: map[string]error{"globex": fmt.Errorf("%w: disk", core.ErrStore)},
			}
			logger := zap.NewNop()
			srv := NewServer(relay, whitelist.NewChecker(nil, logger), config.SMTPConfig{}, time.Second, logger)

			deliver := func() error {
				s := &session{server: srv}
				require.NoError(t, s.Mail("jane@example.com", nil))
				require.NoError(t, s.Rcpt("acme@relay.example.com", nil))
				require.NoError(t, s.Rcpt("globex@relay.example.com", nil))
				return s.Data(strings.NewReader(raw))
			}

			assert.Equal(t, 451, smtpCode(t, deliver()))
			assert.Equal(t, 1, relay.count("acme"))
			assert.Equal(t, 0, relay.count("globex"))

			relay.mu.Lock()
			relay.failing = nil
			relay.mu.Unlock()

			require.NoError(t, deliver())
			assert.Equal(t, 1, relay.count("acme"))
			assert.Equal(t, 1, relay.count("globex"))

			// a third transaction of the same message is a no-op
			require.NoError(t, deliver())
			assert.Equal(t, 1, relay.count("acme"))
			assert.Equal(t, 1, relay.count("globex"))
		})
	}
}

func TestSession_DistinctMessagesDelivered(t *testing.T) {
	relay := &fakeRelay{tenants: map[string]bool{"acme": true}}
	s := newSession(relay)

	for _, body := range []string{"first", "second"} {
		require.NoError(t, s.Mail("jane@example.com", nil))
		require.NoError(t, s.Rcpt("acme@relay.example.com", nil))
		require.NoError(t, s.Data(strings.NewReader("Subject: hi\r\n\r\n"+body+"\r\n")))
		s.Reset()
	}

	// same content from another sender is a different message
	require.NoError(t, s.Mail("bob@example.com", nil))
	require.NoError(t, s.Rcpt("acme@relay.example.com", nil))
	require.NoError(t, s.Data(strings.NewReader("Subject: hi\r\n\r\nfirst\r\n")))

	assert.Equal(t, 3, relay.count("acme"))
}

func TestDeliveryLedger(t *testing.T) {
	l := newDeliveryLedger(time.Hour)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.claim("k"))
	assert.False(t, l.claim("k"))

	l.forget("k")
	assert.True(t, l.claim("k"))

	now = now.Add(2 * time.Hour)
	assert.True(t, l.claim("k"))
}
