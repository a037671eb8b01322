package main

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"guestmail/internal/adapters"
	"guestmail/internal/generate"
	"guestmail/internal/interpret"
	"guestmail/internal/logging"
	"guestmail/internal/refine"
	"guestmail/internal/signals"
	"guestmail/internal/templates"
)

func TestExtractWorkspaceFlag(t *testing.T) {
	cases := []struct {
		args []string
		ws   string
		rest []string
	}{
		{[]string{"draft", "--workspace", "/tmp/ws", "--refine"}, "/tmp/ws", []string{"draft", "--refine"}},
		{[]string{"--workspace=/srv/ws", "signals", "report"}, "/srv/ws", []string{"signals", "report"}},
		{[]string{"interpret"}, "", []string{"interpret"}},
	}
	for _, tc := range cases {
		ws, rest, err := extractWorkspaceFlag(tc.args)
		if err != nil {
			t.Fatalf("extractWorkspaceFlag(%v): %v", tc.args, err)
		}
		if ws != tc.ws || len(rest) != len(tc.rest) {
			t.Fatalf("extractWorkspaceFlag(%v) = %q %v", tc.args, ws, rest)
		}
		for i := range rest {
			if rest[i] != tc.rest[i] {
				t.Fatalf("extractWorkspaceFlag(%v) rest = %v", tc.args, rest)
			}
		}
	}
	if _, _, err := extractWorkspaceFlag([]string{"init", "--workspace"}); err == nil {
		t.Fatalf("expected error for --workspace without value")
	}
}

func TestSeedTemplatesAreValid(t *testing.T) {
	if _, err := templates.Parse([]byte(seedTemplates), "seed"); err != nil {
		t.Fatalf("seed corpus invalid: %v", err)
	}
}

func TestCorpusLoaderLogsReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email-templates.json")
	if err := os.WriteFile(path, []byte(seedTemplates), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	now := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	cache := templates.NewCache(time.Minute).WithLoader(corpusLoader(logger)).WithClock(func() time.Time { return now })

	first, err := cache.Get(path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := cache.Get(path); err != nil {
		t.Fatalf("Get (cached): %v", err)
	}
	if got := strings.Count(logs.String(), "template corpus loaded"); got != 1 {
		t.Fatalf("loads logged = %d, want 1\n%s", got, logs.String())
	}
	if !strings.Contains(logs.String(), fmt.Sprintf("templates=%d", len(first))) {
		t.Fatalf("missing template count in log:\n%s", logs.String())
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.Get(path); err != nil {
		t.Fatalf("Get (expired): %v", err)
	}
	if got := strings.Count(logs.String(), "template corpus loaded"); got != 2 {
		t.Fatalf("loads logged after expiry = %d, want 2", got)
	}

	if _, err := corpusLoader(logger)(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for a missing corpus")
	}
}

func TestDraftPipeline(t *testing.T) {
	dir := t.TempDir()
	corpus := filepath.Join(dir, "email-templates.json")
	if err := os.WriteFile(corpus, []byte(seedTemplates), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
	sink := &signals.MemorySink{}
	gen := generate.New(generate.Options{CorpusPath: corpus, Sink: sink, Logger: logging.Discard()})
	r := refine.New(refine.Options{LLM: &adapters.MockAdapter{}, Sink: sink, Logger: logging.Discard()})

	out, err := draftPipeline(context.Background(), interpret.New(interpret.Options{}), gen, r,
		interpret.Input{Body: "Hi, what time is breakfast served?"}, "Anna")
	if err != nil {
		t.Fatalf("draftPipeline: %v", err)
	}
	if out.Generated == nil || !strings.Contains(out.Generated.Draft.BodyPlain, "Breakfast is served") {
		t.Fatalf("expected the breakfast template, got %+v", out.Generated)
	}
	if out.Refined == nil || !out.Refined.RefinementApplied {
		t.Fatalf("expected refinement, got %+v", out.Refined)
	}
	if len(sink.Selections()) != 1 || len(sink.Refinements()) != 1 {
		t.Fatalf("expected one selection and one refinement event, got %d and %d", len(sink.Selections()), len(sink.Refinements()))
	}

	if _, err := draftPipeline(context.Background(), interpret.New(interpret.Options{}), gen, nil, interpret.Input{Body: " "}, ""); err == nil {
		t.Fatalf("expected invalid input error")
	}
}
