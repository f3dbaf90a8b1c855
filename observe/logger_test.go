package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("unexpected levels: %v, %v", entries[0]["level"], entries[1]["level"])
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "building client",
		F("model", "gpt-4"),
		F("api_key", "sk-secret-value"),
	)

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["api_key"] != "[REDACTED]" {
		t.Errorf("api_key = %v, want [REDACTED]", entries[0]["api_key"])
	}
	if entries[0]["model"] != "gpt-4" {
		t.Errorf("model = %v, want gpt-4", entries[0]["model"])
	}
	if strings.Contains(buf.String(), "sk-secret-value") {
		t.Error("secret value leaked into log output")
	}
}

func TestLogger_WithModel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	scoped := logger.WithModel(ModelMeta{Provider: "openai", Model: "gpt-4"})
	scoped.Info(context.Background(), "acquired")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["llm.provider"] != "openai" {
		t.Errorf("llm.provider = %v, want openai", entries[0]["llm.provider"])
	}
	if entries[0]["llm.model"] != "gpt-4" {
		t.Errorf("llm.model = %v, want gpt-4", entries[0]["llm.model"])
	}
}

func TestLogger_WithModelDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	_ = logger.WithModel(ModelMeta{Provider: "openai", Model: "gpt-4"})
	logger.Info(context.Background(), "plain")

	entries := decodeLines(t, &buf)
	if _, ok := entries[0]["llm.model"]; ok {
		t.Error("parent logger gained model attributes from WithModel")
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
	logger := NopLogger()
	// Must not panic, and WithModel must keep returning a usable logger.
	logger.WithModel(ModelMeta{Model: "gpt-4"}).Info(context.Background(), "ignored")
}
