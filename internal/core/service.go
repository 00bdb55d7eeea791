package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RelayService is the core service behind every ingress surface
type RelayService struct {
	registry   *Registry
	classifier *ClassificationService
	encryptor  Encryptor
	mailbox    MailboxStore
	drains     *DrainCoordinator
	clock      Clock
	logger     *zap.Logger
}

// NewRelayService creates a new relay service
func NewRelayService(
	registry *Registry,
	classifier *ClassificationService,
	encryptor Encryptor,
	mailbox MailboxStore,
	drains *DrainCoordinator,
	clock Clock,
	logger *zap.Logger,
) *RelayService {
	return &RelayService{
		registry:   registry,
		classifier: classifier,
		encryptor:  encryptor,
		mailbox:    mailbox,
		drains:     drains,
		clock:      clock,
		logger:     logger,
	}
}

// Register registers a new tenant
func (s *RelayService) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	return s.registry.Register(ctx, req)
}

// Resolve returns a registered tenant
func (s *RelayService) Resolve(ctx context.Context, tenantID string) (*Tenant, error) {
	return s.registry.Resolve(ctx, tenantID)
}

// Exists reports whether a tenant is registered
func (s *RelayService) Exists(ctx context.Context, tenantID string) (bool, error) {
	ok, err := s.registry.Exists(ctx, tenantID)
	if err != nil {
		return false, wrapStoreErr(err)
	}
	return ok, nil
}

// Ingest classifies, encrypts and buffers one inbound message.
// Returns ErrNotFound when the tenant is unknown; nothing is stored in that case.
func (s *RelayService) Ingest(ctx context.Context, msg InboundMessage) error {
	if strings.TrimSpace(msg.SenderID) == "" || msg.Message == "" {
		return fmt.Errorf("%w: sender_id and message are required", ErrInvalidRequest)
	}

	exists, err := s.Exists(ctx, msg.TenantID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("tenant %q: %w", msg.TenantID, ErrNotFound)
	}

	label := s.classifier.Classify(ctx, msg.Message)

	record := &MailboxRecord{
		TenantID:   msg.TenantID,
		EnqueuedAt: ToMillis(s.clock.Now()),
	}
	fields := []struct {
		dst   *string
		value string
	}{
		{&record.SenderID, msg.SenderID},
		{&record.Message, msg.Message},
		{&record.Intent, string(label)},
	}
	for _, f := range fields {
		ciphertext, err := s.encryptor.Encrypt(ctx, msg.TenantID, []byte(f.value))
		if err != nil {
			return err
		}
		*f.dst = ciphertext
	}

	if err := s.mailbox.Append(ctx, msg.TenantID, record); err != nil {
		return wrapStoreErr(err)
	}

	s.logger.Info("Buffered message",
		zap.String("tenant_id", msg.TenantID),
		zap.String("label", string(label)),
		zap.Int("message_size", len(msg.Message)))
	return nil
}

// Drain returns and clears the tenant's mailbox. Records stay encrypted.
func (s *RelayService) Drain(ctx context.Context, tenantID string) (*DrainResult, error) {
	exists, err := s.Exists(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, ErrNotFound)
	}
	return s.drains.Drain(ctx, tenantID)
}
