package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func parseEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug msg")
	logger.Info(ctx, "info msg")
	logger.Warn(ctx, "warn msg")
	logger.Error(ctx, "error msg")

	entries := parseEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["msg"] != "warn msg" || entries[1]["msg"] != "error msg" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestLogger_RedactsSecretFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "credentials loaded",
		F("api_key", "dev-key:dev-secret-change-me"),
		F("count", 1),
	)

	entries := parseEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v, want [REDACTED]", entries[0]["api_key"])
	}
	if entries[0]["count"] != float64(1) {
		t.Errorf("count = %v, want 1", entries[0]["count"])
	}
	if strings.Contains(buf.String(), "dev-secret-change-me") {
		t.Error("secret value leaked into log output")
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("component", "gate"))

	logger.Info(context.Background(), "request admitted")

	entries := parseEntries(t, &buf)
	if entries[0]["component"] != "gate" {
		t.Errorf("component = %v, want gate", entries[0]["component"])
	}
}

func TestLogger_WithRedactsSecretFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf).With(F("token", "eyJ..."))

	logger.Info(context.Background(), "token issued")

	entries := parseEntries(t, &buf)
	if entries[0]["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", entries[0]["token"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNopLogger(t *testing.T) {
	// Must not panic.
	logger := NopLogger()
	logger.Info(context.Background(), "ignored")
	logger.With(F("k", "v")).Error(context.Background(), "ignored")
}
