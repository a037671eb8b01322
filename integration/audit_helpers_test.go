package integration_test

import (
	"context"
	"encoding/json"
	"testing"

	"guestmail/internal/audit"
)

// auditEvents reads the workspace audit log back, newest first.
func auditEvents(t *testing.T, dbPath string) []audit.Event {
	t.Helper()
	events, err := audit.NewLogger(dbPath).Recent(context.Background(), "", 1000)
	if err != nil {
		t.Fatalf("read audit events from %s: %v", dbPath, err)
	}
	return events
}

// requireAuditEvents fails unless every wanted type was written by the CLI.
func requireAuditEvents(t *testing.T, dbPath string, want []string) {
	t.Helper()
	byType := make(map[string]audit.Event)
	for _, ev := range auditEvents(t, dbPath) {
		if ev.Actor != audit.ActorCLI {
			t.Fatalf("audit event %s has actor %q, want %q", ev.Type, ev.Actor, audit.ActorCLI)
		}
		if _, ok := byType[ev.Type]; !ok {
			byType[ev.Type] = ev
		}
	}
	for _, eventType := range want {
		if _, ok := byType[eventType]; !ok {
			t.Fatalf("missing audit event %s in %s", eventType, dbPath)
		}
	}
}

// lastAuditPayload decodes the payload of the newest event of eventType.
func lastAuditPayload(t *testing.T, dbPath, eventType string) map[string]any {
	t.Helper()
	events, err := audit.NewLogger(dbPath).Recent(context.Background(), eventType, 1)
	if err != nil {
		t.Fatalf("read %s audit events: %v", eventType, err)
	}
	if len(events) == 0 {
		t.Fatalf("no %s audit event in %s", eventType, dbPath)
	}
	var payload map[string]any
	if err := json.Unmarshal(events[0].Payload, &payload); err != nil {
		t.Fatalf("decode %s payload: %v", eventType, err)
	}
	return payload
}
