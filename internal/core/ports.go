package core

import (
	"context"
	"time"
)

// IntentClassifier assigns a label from the taxonomy to message text
type IntentClassifier interface {
	// Classify classifies the given message text
	Classify(ctx context.Context, text string) (*ClassificationResult, error)
}

// LabelCache caches classification results by a digest of the message text
type LabelCache interface {
	// Get retrieves a cached label for a text digest
	Get(ctx context.Context, digest string) (Label, bool)

	// Set stores a label for a text digest
	Set(ctx context.Context, digest string, label Label, ttl time.Duration)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// TenantRepository persists tenant registrations
type TenantRepository interface {
	// CreateTenant commits a tenant and its key slot as one unit.
	// Returns ErrAlreadyExists if the id is taken.
	CreateTenant(ctx context.Context, tenant *Tenant) error

	// GetTenant returns ErrNotFound for unknown ids
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)

	// TenantExists reports whether the id is registered
	TenantExists(ctx context.Context, tenantID string) (bool, error)
}

// KeySource loads the public key material of a tenant
type KeySource interface {
	// PublicKey returns ErrNotFound when the tenant has no key slot
	PublicKey(ctx context.Context, tenantID string) (string, error)
}

// MailboxStore is the durable per-tenant buffer of encrypted records
type MailboxStore interface {
	// Append stores one record durably. Returns ErrNotFound for unknown tenants.
	Append(ctx context.Context, tenantID string, record *MailboxRecord) error

	// SnapshotAndClear returns every record committed before the snapshot
	// and removes exactly those records, recording drainedAt as the tenant's
	// last drain time in the same transaction.
	SnapshotAndClear(ctx context.Context, tenantID string, drainedAt time.Time) ([]MailboxRecord, error)

	// LastDrain returns the tenant's cursor, or false if it never drained
	LastDrain(ctx context.Context, tenantID string) (time.Time, bool, error)
}

// Store is a storage backend serving every persistence port
type Store interface {
	TenantRepository
	KeySource
	MailboxStore

	// Close releases the backend's resources
	Close() error
}

// Encryptor encrypts plaintext for a single tenant
type Encryptor interface {
	// Encrypt returns base64 ciphertext decryptable only with the tenant's identity
	Encrypt(ctx context.Context, tenantID string, plaintext []byte) (string, error)
}

// KeyManager provisions and validates tenant key slots
type KeyManager interface {
	GenerateKeypair() (*Keypair, error)
	ValidatePublicKey(publicKey string) error
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now
func SystemClock() Clock { return systemClock{} }
