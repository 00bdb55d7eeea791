// Package smtp accepts direct messages over SMTP. Each recipient local part
// names a tenant; the envelope sender becomes the sender id and the subject
// plus text body becomes the message.
package smtp

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"strings"
	"sync"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/zeebo/blake3"
	"github.com/mikey/llm-dm-relay/internal/config"
	"github.com/mikey/llm-dm-relay/internal/core"
	"github.com/mikey/llm-dm-relay/internal/whitelist"
	"go.uber.org/zap"
)

// Relay is the part of core.RelayService used by the SMTP ingress
type Relay interface {
	Exists(ctx context.Context, tenantID string) (bool, error)
	Ingest(ctx context.Context, msg core.InboundMessage) error
}

var (
	errNoSender = &gosmtp.SMTPError{
		Code:         503,
		EnhancedCode: gosmtp.EnhancedCode{5, 5, 1},
		Message:      "MAIL FROM required",
	}
	errDomainNotAccepted = &gosmtp.SMTPError{
		Code:         550,
		EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
		Message:      "Relaying denied",
	}
	errUnknownTenant = &gosmtp.SMTPError{
		Code:         550,
		EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
		Message:      "Client Does not Exist",
	}
	errTemporary = &gosmtp.SMTPError{
		Code:         451,
		EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
		Message:      "Temporary failure, try again later",
	}
	errEmptyMessage = &gosmtp.SMTPError{
		Code:         554,
		EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
		Message:      "Message has no text content",
	}
)

// Server is the SMTP ingress listener
type Server struct {
	relay   Relay
	checker *whitelist.Checker
	logger  *zap.Logger
	cfg     config.SMTPConfig
	timeout time.Duration
	ledger  *deliveryLedger

	mu     sync.Mutex
	server *gosmtp.Server
}

// NewServer creates a new SMTP ingress. timeout bounds the processing of one message.
func NewServer(relay Relay, checker *whitelist.Checker, cfg config.SMTPConfig, timeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		relay:   relay,
		checker: checker,
		logger:  logger,
		cfg:     cfg,
		timeout: timeout,
		ledger:  newDeliveryLedger(deliveryWindow),
	}
}

// Name identifies the listener
func (s *Server) Name() string { return "smtp" }

// Start starts the SMTP server in the background
func (s *Server) Start() error {
	srv := gosmtp.NewServer(&backend{server: s})
	srv.Addr = s.cfg.ListenAddress
	srv.Domain = s.cfg.Domain
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxMessageBytes = s.cfg.MaxMessageBytes
	srv.MaxRecipients = s.cfg.MaxRecipients

	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	s.logger.Info("SMTP ingress starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
			s.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop closes the listener and all open sessions
func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("SMTP ingress stopping")
	return srv.Close()
}

// backend implements the go-smtp Backend interface
type backend struct {
	server *Server
}

// NewSession creates a new SMTP session
func (b *backend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{server: b.server}, nil
}

// session implements the go-smtp Session interface
type session struct {
	server  *Server
	sender  string
	tenants []string
}

// Reset resets the session state
func (s *session) Reset() {
	s.sender = ""
	s.tenants = nil
}

// Mail sets the sender address
func (s *session) Mail(from string, _ *gosmtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt resolves the recipient to a registered tenant
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	if s.sender == "" {
		return errNoSender
	}
	if !s.server.checker.IsAccepted(to) {
		return errDomainNotAccepted
	}
	tenantID, _, _ := whitelist.SplitAddress(to)

	ctx, cancel := s.server.context()
	defer cancel()

	exists, err := s.server.relay.Exists(ctx, tenantID)
	if err != nil {
		s.server.logger.Error("Failed to resolve recipient", zap.Error(err), zap.String("tenant_id", tenantID))
		return errTemporary
	}
	if !exists {
		s.server.logger.Info("Rejected recipient for unknown tenant", zap.String("tenant_id", tenantID))
		return errUnknownTenant
	}

	if slices.Contains(s.tenants, tenantID) {
		return nil
	}
	s.tenants = append(s.tenants, tenantID)
	return nil
}

// Data parses the message and buffers it for every accepted recipient that
// has not already received it
func (s *session) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.server.logger.Warn("Failed to read message", zap.Error(err), zap.String("sender", s.sender))
		return errTemporary
	}

	msg, err := parseMessage(bytes.NewReader(raw))
	if err != nil {
		s.server.logger.Warn("Failed to parse message", zap.Error(err), zap.String("sender", s.sender))
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
			Message:      "Malformed message",
		}
	}
	if strings.TrimSpace(msg.text) == "" {
		return errEmptyMessage
	}

	ctx, cancel := s.server.context()
	defer cancel()

	key := deliveryKey(s.sender, msg.messageID, raw)
	delivered := 0
	for _, tenantID := range s.tenants {
		claim := key + "\x00" + tenantID
		if !s.server.ledger.claim(claim) {
			s.server.logger.Debug("Skipping already delivered message",
				zap.String("tenant_id", tenantID),
				zap.String("message_id", msg.messageID))
			continue
		}

		err := s.server.relay.Ingest(ctx, core.InboundMessage{
			TenantID: tenantID,
			SenderID: s.sender,
			Message:  msg.text,
		})
		if err != nil {
			s.server.ledger.forget(claim)
		}
		switch {
		case err == nil:
			delivered++
		case core.ErrorCode(err) == core.CodeNotFound:
			return errUnknownTenant
		default:
			s.server.logger.Error("Failed to ingest message",
				zap.Error(err),
				zap.String("tenant_id", tenantID),
				zap.String("code", core.ErrorCode(err)))
			return errTemporary
		}
	}

	s.server.logger.Info("Accepted SMTP message",
		zap.String("sender", s.sender),
		zap.Int("recipients", len(s.tenants)),
		zap.Int("delivered", delivered))
	return nil
}

// deliveryKey identifies a message from one sender: its Message-ID when
// present, otherwise a digest of the raw bytes
func deliveryKey(sender, messageID string, raw []byte) string {
	if messageID != "" {
		return sender + "\x00" + messageID
	}
	sum := blake3.Sum256(raw)
	return sender + "\x00" + hex.EncodeToString(sum[:])
}

// Logout ends the session
func (s *session) Logout() error {
	return nil
}

func (s *Server) context() (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(context.Background(), s.timeout)
	}
	return context.WithCancel(context.Background())
}
