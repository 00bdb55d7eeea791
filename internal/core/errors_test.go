package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("tenant %q: %w", "x", ErrNotFound), CodeNotFound},
		{fmt.Errorf("tenant %q: %w", "x", ErrKeyNotFound), CodeEncryptionFailure},
		{fmt.Errorf("%w: bad", ErrInvalidRequest), CodeInvalidRequest},
		{ErrAlreadyExists, CodeAlreadyExists},
		{ErrDrainInProgress, CodeDrainInProgress},
		{fmt.Errorf("%w: oversized", ErrEncryption), CodeEncryptionFailure},
		{fmt.Errorf("%w: locked", ErrStore), CodeStoreFailure},
		{errors.New("other"), CodeInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}

func TestParseLabel(t *testing.T) {
	for in, want := range map[string]Label{
		"Casual":            LabelCasual,
		"  intent ":         LabelIntent,
		"\"DESIRE\"":        LabelDesire,
		"Order.":            LabelOrder,
		"**Collaboration**": LabelCollaboration,
		"none":              LabelNone,
	} {
		got, ok := ParseLabel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	got, ok := ParseLabel("Complaint")
	assert.False(t, ok)
	assert.Equal(t, LabelNone, got)
}
