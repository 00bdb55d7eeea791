// Package sealed is the relay's encryption gateway. Every mailbox field is
// encrypted with age to a single X25519 recipient: the owning tenant's public
// key. Only the tenant holds the matching identity, so the relay can buffer
// messages it is unable to read back.
//
// Ciphertext is base64 (standard encoding) so it can travel in JSON responses
// and TEXT columns unchanged.
package sealed

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"

	"filippo.io/age"
	"github.com/mikey/llm-dm-relay/internal/core"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Gateway encrypts plaintext for tenants using their registered public keys.
// Parsed recipients are cached for the process lifetime.
type Gateway struct {
	keys             core.KeySource
	logger           *zap.Logger
	maxPlaintextSize int

	mu         sync.RWMutex
	recipients map[string]*age.X25519Recipient
	loads      singleflight.Group
}

// NewGateway creates a new encryption gateway. maxPlaintextSize <= 0 disables the limit.
func NewGateway(keys core.KeySource, logger *zap.Logger, maxPlaintextSize int) *Gateway {
	return &Gateway{
		keys:             keys,
		logger:           logger,
		maxPlaintextSize: maxPlaintextSize,
		recipients:       make(map[string]*age.X25519Recipient),
	}
}

// Encrypt encrypts plaintext to the tenant's public key and returns base64 ciphertext
func (g *Gateway) Encrypt(ctx context.Context, tenantID string, plaintext []byte) (string, error) {
	if g.maxPlaintextSize > 0 && len(plaintext) > g.maxPlaintextSize {
		return "", fmt.Errorf("%w: plaintext of %d bytes exceeds limit of %d", core.ErrEncryption, len(plaintext), g.maxPlaintextSize)
	}

	recipient, err := g.recipient(ctx, tenantID)
	if err != nil {
		return "", err
	}

	ciphertext, err := encrypt(plaintext, recipient)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrEncryption, err)
	}
	return ciphertext, nil
}

// recipient returns the cached recipient for a tenant, loading it on first use
func (g *Gateway) recipient(ctx context.Context, tenantID string) (*age.X25519Recipient, error) {
	g.mu.RLock()
	r, ok := g.recipients[tenantID]
	g.mu.RUnlock()
	if ok {
		return r, nil
	}

	// the load is shared by every waiter, so one caller's cancellation must not end it
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := g.loads.Do(tenantID, func() (any, error) {
		publicKey, err := g.keys.PublicKey(loadCtx, tenantID)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, fmt.Errorf("tenant %q: %w", tenantID, core.ErrKeyNotFound)
			}
			return nil, fmt.Errorf("%w: loading key for tenant %q: %v", core.ErrEncryption, tenantID, err)
		}
		parsed, err := age.ParseX25519Recipient(publicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed key for tenant %q: %v", core.ErrEncryption, tenantID, err)
		}

		g.mu.Lock()
		g.recipients[tenantID] = parsed
		g.mu.Unlock()

		g.logger.Debug("Loaded tenant key", zap.String("tenant_id", tenantID))
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*age.X25519Recipient), nil
}

// GenerateKeypair generates a new age X25519 keypair
func (g *Gateway) GenerateKeypair() (*core.Keypair, error) {
	return GenerateKeypair()
}

// ValidatePublicKey checks that publicKey is a valid age X25519 recipient
func (g *Gateway) ValidatePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

// GenerateKeypair generates a new age X25519 keypair
func GenerateKeypair() (*core.Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}
	return &core.Keypair{
		PublicKey:  identity.Recipient().String(),
		PrivateKey: identity.String(),
	}, nil
}

func encrypt(plaintext []byte, recipient age.Recipient) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipient)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decrypt decrypts base64 ciphertext with an AGE-SECRET-KEY-1... identity
func Decrypt(ciphertext string, privateKey string) ([]byte, error) {
	identity, err := age.ParseX25519Identity(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 ciphertext: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(raw), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	return plaintext, nil
}
