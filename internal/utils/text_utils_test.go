package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello   World", "hello world"},
		{"  leading and trailing\t\n", "leading and trailing"},
		{"STRASSE", "strasse"},
		// precomposed and combining forms normalize alike
		{"Cafe\u0301", "café"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeText(tt.in), "input %q", tt.in)
	}
}

func TestDigestText(t *testing.T) {
	a := DigestText("Where is my ORDER?")
	b := DigestText("  where is my   order?  ")
	c := DigestText("where is my order!")

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "short", tp.TruncateText("short", 10))
	assert.Equal(t, "anything", tp.TruncateText("anything", 0))

	out := tp.TruncateText(strings.Repeat("a", 20), 5)
	assert.True(t, strings.HasPrefix(out, "aaaaa\n"))
	assert.Contains(t, out, "truncated")

	// "é" is two bytes; cutting inside it drops the partial rune
	out = tp.TruncateText("aé", 2)
	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasPrefix(out, "a\n"))
}

func TestSanitizeUTF8(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())

	assert.Equal(t, "valid", tp.SanitizeUTF8("valid"))
	assert.Equal(t, "ab", tp.SanitizeUTF8("a\xffb"))
	assert.Equal(t, "ab", tp.ProcessText("a\xffb", 100))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"raw", `{"label":"Order"}`, "Order", false},
		{"fenced", "```json\n{\"label\": \"Casual\"}\n```", "Casual", false},
		{"prose", `Sure! Here you go: {"label":"Collaboration"} Hope that helps.`, "Collaboration", false},
		{"no object", "I think it's an order", "", true},
		{"broken", `{"label": }`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp IntentResponse
			err := ExtractJSON(tt.in, &resp)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Label)
		})
	}
}

func TestBuildIntentPrompt(t *testing.T) {
	p := BuildIntentPrompt("do you ship to Canada?")
	assert.Contains(t, p, "do you ship to Canada?")
	for _, label := range []string{"Casual", "Intent", "Desire", "Order", "Collaboration", "None"} {
		assert.Contains(t, p, label)
	}
}
