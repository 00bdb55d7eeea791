package core

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateTenantID checks that id is a well-formed tenant identifier
func ValidateTenantID(id string) error {
	if !tenantIDPattern.MatchString(id) {
		return fmt.Errorf("%w: malformed tenant id %q", ErrInvalidRequest, id)
	}
	return nil
}

// Registry maps tenant identifiers to their configuration
type Registry struct {
	tenants TenantRepository
	keys    KeyManager
	clock   Clock
	logger  *zap.Logger
}

// NewRegistry creates a new tenant registry
func NewRegistry(tenants TenantRepository, keys KeyManager, clock Clock, logger *zap.Logger) *Registry {
	return &Registry{
		tenants: tenants,
		keys:    keys,
		clock:   clock,
		logger:  logger,
	}
}

// Register creates a tenant with its key slot. Registration is not idempotent:
// a second call with the same id fails with ErrAlreadyExists.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	if err := ValidateTenantID(req.TenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ClientName) == "" || strings.TrimSpace(req.BusinessName) == "" {
		return nil, fmt.Errorf("%w: client_name and business_name are required", ErrInvalidRequest)
	}

	reg := &Registration{}
	publicKey := strings.TrimSpace(req.PublicKey)
	if publicKey == "" {
		kp, err := r.keys.GenerateKeypair()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
		}
		publicKey = kp.PublicKey
		reg.PrivateKey = kp.PrivateKey
	} else if err := r.keys.ValidatePublicKey(publicKey); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	tenant := &Tenant{
		ID:           req.TenantID,
		ClientName:   req.ClientName,
		BusinessName: req.BusinessName,
		PublicKey:    publicKey,
		CreatedAt:    ToMillis(r.clock.Now()),
	}
	if err := r.tenants.CreateTenant(ctx, tenant); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			r.logger.Info("Rejected duplicate registration", zap.String("tenant_id", req.TenantID))
		}
		return nil, err
	}

	r.logger.Info("Registered tenant",
		zap.String("tenant_id", tenant.ID),
		zap.Bool("generated_key", reg.PrivateKey != ""))

	reg.Tenant = tenant
	return reg, nil
}

// Exists reports whether a tenant is registered
func (r *Registry) Exists(ctx context.Context, tenantID string) (bool, error) {
	if ValidateTenantID(tenantID) != nil {
		return false, nil
	}
	return r.tenants.TenantExists(ctx, tenantID)
}

// Resolve returns the tenant configuration or ErrNotFound
func (r *Registry) Resolve(ctx context.Context, tenantID string) (*Tenant, error) {
	if ValidateTenantID(tenantID) != nil {
		return nil, fmt.Errorf("tenant %q: %w", tenantID, ErrNotFound)
	}
	return r.tenants.GetTenant(ctx, tenantID)
}
