package audit

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func TestLogEventAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.sqlite")
	logger := NewLogger(path)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	logger.now = func() time.Time { return fixed }

	if err := logger.LogEvent(ActorCLI, "generate_started", map[string]any{"subject": "breakfast"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if err := logger.LogEvent(ActorCLI, "generate_finished", map[string]any{"selection": "auto"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if err := logger.LogEvent(ActorHTTP, "draft_interpret", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	all, err := logger.Recent(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Type != "draft_interpret" || all[0].Actor != ActorHTTP {
		t.Fatalf("expected newest first, got %+v", all[0])
	}

	finished, err := logger.Recent(context.Background(), "generate_finished", 0)
	if err != nil {
		t.Fatalf("Recent filtered: %v", err)
	}
	if len(finished) != 1 {
		t.Fatalf("expected 1 finished event, got %d", len(finished))
	}
	var payload map[string]string
	if err := json.Unmarshal(finished[0].Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["selection"] != "auto" {
		t.Fatalf("payload = %v", payload)
	}
	if !finished[0].TS.Equal(fixed) {
		t.Fatalf("ts = %v, want %v", finished[0].TS, fixed)
	}
}

func TestLogEventUsesEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.sqlite")
	t.Setenv("GUESTMAIL_AUDIT_DB", path)

	if err := NewLogger("").LogEvent(ActorCLI, "init_started", nil); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	events, err := NewLogger(path).Recent(context.Background(), "", 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected env-routed event, got %d", len(events))
	}
}
