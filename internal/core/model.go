package core

import (
	"strings"
	"time"
)

// TimestampLayout is the wire format for record timestamps (UTC, millisecond precision)
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Label is a coarse intent category assigned to a message
type Label string

const (
	LabelCasual        Label = "Casual"
	LabelIntent        Label = "Intent"
	LabelDesire        Label = "Desire"
	LabelOrder         Label = "Order"
	LabelCollaboration Label = "Collaboration"
	// LabelNone is the sentinel used when a message could not be classified
	LabelNone Label = "None"
)

// Labels lists the classification taxonomy, sentinel excluded
var Labels = []Label{LabelCasual, LabelIntent, LabelDesire, LabelOrder, LabelCollaboration}

// ParseLabel maps free-form classifier output onto the taxonomy.
// It returns LabelNone and false when the text does not name a known label.
func ParseLabel(s string) (Label, bool) {
	s = strings.Trim(strings.TrimSpace(s), "\"'`.,:;!* ")
	if strings.EqualFold(s, string(LabelNone)) {
		return LabelNone, true
	}
	for _, l := range Labels {
		if strings.EqualFold(s, string(l)) {
			return l, true
		}
	}
	return LabelNone, false
}

// Tenant represents a registered client of the relay
type Tenant struct {
	ID           string
	ClientName   string
	BusinessName string
	// PublicKey is the tenant's key slot, an age X25519 recipient
	PublicKey string
	CreatedAt time.Time
}

// InboundMessage is a plaintext message addressed to a tenant
type InboundMessage struct {
	TenantID string
	SenderID string
	Message  string
}

// MailboxRecord is one buffered message. SenderID, Message and Intent
// hold base64 ciphertext produced with the owning tenant's key.
type MailboxRecord struct {
	ID         int64
	TenantID   string
	SenderID   string
	Message    string
	Intent     string
	EnqueuedAt time.Time
}

// DrainCursor tracks the last successful drain for a tenant
type DrainCursor struct {
	TenantID      string
	LastDrainTime time.Time
}

// DrainResult is the outcome of a drain request
type DrainResult struct {
	TenantID  string
	Records   []MailboxRecord
	DrainedAt time.Time
	// UpToDate is set when a drain already happened at or after this instant
	// and the store was not read
	UpToDate bool
}

// ClassificationResult represents the result of intent classification
type ClassificationResult struct {
	Label        Label
	ModelUsed    string
	ClassifiedAt time.Time
	ProcessingID string
}

// RegisterRequest carries the fields needed to register a tenant
type RegisterRequest struct {
	TenantID     string
	ClientName   string
	BusinessName string
	// PublicKey is optional; a keypair is generated when empty
	PublicKey string
}

// Registration is the result of a successful registration
type Registration struct {
	Tenant *Tenant
	// PrivateKey is only set when the relay generated the keypair.
	// It is never persisted.
	PrivateKey string
}

// Keypair is an asymmetric keypair in age string encoding
type Keypair struct {
	PublicKey  string
	PrivateKey string
}

// FormatTimestamp renders t in the wire format
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ToMillis truncates t to millisecond precision in UTC
func ToMillis(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
