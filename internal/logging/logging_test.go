package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
	}
	for raw, want := range cases {
		got, err := ParseLevel(raw)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}

	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("visible", "group_id", "g-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "visible" || entry["group_id"] != "g-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestContextRoundTrip(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("expected logger from context")
	}
	if FromContext(context.Background()) != nil {
		t.Fatal("expected nil logger for bare context")
	}
}

func TestComponentPrefersContextLogger(t *testing.T) {
	var fromCtx, fallback bytes.Buffer
	ctx := ContextWithLogger(context.Background(), New(&fromCtx, slog.LevelInfo))

	Component(ctx, New(&fallback, slog.LevelInfo), "service", "GroupService", "JoinGroup", "group_id", "g-1").Info("joined")

	if fallback.Len() != 0 {
		t.Fatalf("expected fallback to stay silent, got %q", fallback.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(fromCtx.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line %q: %v", fromCtx.String(), err)
	}
	if entry["service"] != "GroupService" || entry["operation"] != "JoinGroup" || entry["group_id"] != "g-1" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestComponentFallsBack(t *testing.T) {
	var fallback bytes.Buffer
	Component(context.Background(), New(&fallback, slog.LevelInfo), "handler", "CalendarHandler", "").Info("listed")

	var entry map[string]any
	if err := json.Unmarshal(fallback.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log line %q: %v", fallback.String(), err)
	}
	if entry["handler"] != "CalendarHandler" {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["operation"]; ok {
		t.Fatalf("expected no operation attribute, got %v", entry)
	}
	if OrDefault(nil) != slog.Default() {
		t.Fatal("expected slog.Default for nil logger")
	}
}
