package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a tenant does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when registering a tenant id twice
	ErrAlreadyExists = errors.New("already exists")
	// ErrKeyNotFound is returned when no key slot is provisioned for a tenant
	ErrKeyNotFound = fmt.Errorf("key %w", ErrNotFound)
	// ErrEncryption covers key parsing and cipher failures
	ErrEncryption = errors.New("encryption failure")
	// ErrStore covers durability layer failures
	ErrStore = errors.New("store failure")
	// ErrDrainInProgress is returned when a tenant is already being drained
	ErrDrainInProgress = errors.New("drain in progress")
	// ErrInvalidRequest is returned for malformed input
	ErrInvalidRequest = errors.New("invalid request")
	// ErrClassification tags logged classifier failures. It never reaches callers
	ErrClassification = errors.New("classification failure")
)

// Error codes exposed on the wire
const (
	CodeNotFound          = "not_found"
	CodeAlreadyExists     = "already_exists"
	CodeInvalidRequest    = "invalid_request"
	CodeEncryptionFailure = "encryption_failure"
	CodeStoreFailure      = "store_failure"
	CodeDrainInProgress   = "drain_in_progress"
	CodeInternal          = "internal"
)

// ErrorCode maps an error onto its wire code
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrDrainInProgress):
		return CodeDrainInProgress
	case errors.Is(err, ErrKeyNotFound):
		// a tenant without a key is an internal inconsistency, not an unknown tenant
		return CodeEncryptionFailure
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrEncryption):
		return CodeEncryptionFailure
	case errors.Is(err, ErrStore):
		return CodeStoreFailure
	default:
		return CodeInternal
	}
}
