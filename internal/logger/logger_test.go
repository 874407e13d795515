package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLogger_WritesJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelInfo, "promptchain", func(context.Context) string { return "abc123" })

	log.Info(context.Background(), "wallet connected", "account", "0xabc", "error", errors.New("boom"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}

	checks := map[string]string{
		"msg":      "wallet connected",
		"service":  "promptchain",
		"trace_id": "abc123",
		"account":  "0xabc",
		"error":    "boom",
	}
	for k, want := range checks {
		if got, _ := entry[k].(string); got != want {
			t.Errorf("field %s: expected %q, got %q", k, want, got)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelWarn, "promptchain", nil)

	log.Debug(context.Background(), "hidden")
	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], "shown") {
		t.Errorf("expected warn entry, got %q", lines[0])
	}
}

func TestLogger_OddArgs(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, LevelDebug, "promptchain", nil)

	log.Debug(context.Background(), "odd", "dangling")

	if !strings.Contains(buf.String(), "!BADKEY") {
		t.Errorf("expected !BADKEY marker, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"info", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
