package logger

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		maxLength int
		expected  string
	}{
		{"empty", "", 10, ""},
		{"plain", "task created", 100, "task created"},
		{"strips newlines", "line1\nline2\r\n", 100, "line1line2"},
		{"strips escape sequences", "red\x1b[31m", 100, "red[31m"},
		{"truncates", "abcdefghij", 4, "abcd..."},
		{"default limit", "short", 0, "short"},
		{"invalid utf8", "ok\xffok", 100, "okok"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.maxLength); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSanitizeString_TruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	got := SanitizeString(strings.Repeat("é", 10), 5)
	if !utf8.ValidString(got) {
		t.Errorf("Expected valid UTF-8, got %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Expected truncation marker, got %q", got)
	}
}

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	long := "/api/tasks/" + strings.Repeat("a", MaxPathLength)
	got := SanitizePath(long)
	if len(got) != MaxPathLength+3 {
		t.Errorf("Expected length %d, got %d", MaxPathLength+3, len(got))
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("Expected empty string for nil error, got %q", got)
	}
	if got := SanitizeError(errors.New("bad\ninput")); got != "badinput" {
		t.Errorf("Expected %q, got %q", "badinput", got)
	}
}

func TestMaskEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected string
	}{
		{"alice@example.com", "a***@example.com"},
		{"not-an-email", "***"},
		{"@example.com", "***"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			if got := MaskEmail(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
