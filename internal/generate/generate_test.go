package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestmail/internal/interpret"
	"guestmail/internal/knowledge"
	"guestmail/internal/ledger"
	"guestmail/internal/policy"
	"guestmail/internal/signals"
	"guestmail/internal/templates"
)

var fixedNow = time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

var faqCorpus = []templates.EmailTemplate{
	{
		Subject:    "Breakfast times",
		Body:       "Dear Guest,\n\nBreakfast is served on the terrace every morning from 8:00 to 10:30.\n\nBest regards,\nHostel Brikette",
		Category:   "faq",
		TemplateID: "faq-breakfast",
	},
	{
		Subject:    "Luggage storage",
		Body:       "Hello,\n\nYou can leave your luggage at reception before check-in and after check-out free of charge.\n\nKind regards",
		Category:   "faq",
		TemplateID: "faq-luggage",
	},
	{
		Subject:    "Wifi",
		Body:       "Free wifi is available in all rooms and in the common areas.",
		Category:   "faq",
		TemplateID: "faq-wifi",
	},
}

func writeCorpus(t *testing.T, corpus []templates.EmailTemplate) string {
	t.Helper()
	data, err := json.Marshal(corpus)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "email-templates.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func writeKnowledge(t *testing.T, dir, uri string, doc any) {
	t.Helper()
	store := knowledge.NewStore(dir)
	path, err := store.Path(uri)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func plan(t *testing.T, body string) *interpret.ActionPlan {
	t.Helper()
	p, err := interpret.Interpret(interpret.Input{Body: body})
	require.NoError(t, err)
	return p
}

type fixture struct {
	gen  *Generator
	sink *signals.MemorySink
	logs *bytes.Buffer
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	var logs bytes.Buffer
	sink := &signals.MemorySink{}
	if opts.Sink == nil {
		opts.Sink = sink
	}
	opts.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	opts.Clock = func() time.Time { return fixedNow }
	opts.NewID = func() string { return "draft-1" }
	return fixture{gen: New(opts), sink: sink, logs: &logs}
}

func TestGenerateComposesMultiQuestionDraft(t *testing.T) {
	f := newFixture(t, Options{CorpusPath: writeCorpus(t, faqCorpus)})
	p := plan(t, "Hello! What time is breakfast served? Can I leave my luggage after check-out? Is there wifi in the rooms? Thanks, Anna")
	require.Len(t, p.Intents.Questions, 3)

	res, err := f.gen.Generate(context.Background(), Request{Plan: p, RecipientName: "Anna"})
	require.NoError(t, err)

	assert.True(t, res.Composite)
	assert.Equal(t, templates.SelectionAuto, res.Selection)
	assert.Equal(t, []string{"faq-breakfast", "faq-luggage", "faq-wifi"}, res.CompositeTemplates)
	require.NotNil(t, res.TemplateUsed)
	assert.Equal(t, "faq-breakfast", res.TemplateUsed.TemplateID)

	plain := res.Draft.BodyPlain
	assert.True(t, strings.HasPrefix(plain, "Dear Anna,\n\n"))
	assert.Equal(t, 1, strings.Count(plain, "Dear "))
	assert.NotContains(t, plain, "Hello,")
	assert.Equal(t, 1, strings.Count(plain, "regards"))
	assert.True(t, strings.HasSuffix(plain, "Best regards,\n\n"+DefaultSignature))
	assert.NotContains(t, plain, "\n\n\n")
	for _, want := range []string{"Breakfast is served", "leave your luggage", "Free wifi"} {
		assert.Contains(t, plain, want)
	}
	assert.Contains(t, res.Draft.BodyHTML, "Dear Anna,")
	assert.NotContains(t, res.Quality.FailedChecks, "unanswered_questions")
	assert.Nil(t, res.LearningLedger)

	events := f.sink.Selections()
	require.Len(t, events, 1)
	assert.Equal(t, "draft-1", events[0].DraftID)
	assert.True(t, events[0].Composite)
	assert.Equal(t, 3, events[0].QuestionCount)
	assert.Equal(t, fixedNow, events[0].TS)
}

func TestGenerateSingleQuestionUsesWholeMessageRank(t *testing.T) {
	f := newFixture(t, Options{CorpusPath: writeCorpus(t, faqCorpus)})
	res, err := f.gen.Generate(context.Background(), Request{Plan: plan(t, "Hi, what time is breakfast served?")})
	require.NoError(t, err)

	assert.False(t, res.Composite)
	assert.Empty(t, res.CompositeTemplates)
	assert.Equal(t, templates.SelectionAuto, res.Selection)
	require.NotNil(t, res.TemplateUsed)
	assert.Equal(t, "faq-breakfast", res.TemplateUsed.TemplateID)
	assert.True(t, strings.HasPrefix(res.Draft.BodyPlain, "Dear Guest,"))
	assert.NotContains(t, res.Draft.BodyPlain, GenericFallback)
	assert.NotEmpty(t, res.Candidates)

	ev := f.sink.Selections()[0]
	assert.Equal(t, "faq-breakfast", ev.TemplateID)
	assert.Equal(t, res.TemplateUsed.Confidence, ev.Confidence)
}

func TestGenerateFallsBackAndCapturesUnknownQuestions(t *testing.T) {
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := newFixture(t, Options{CorpusPath: writeCorpus(t, faqCorpus), Ledger: store})
	p := plan(t, "Do you allow pets?")

	res, err := f.gen.Generate(context.Background(), Request{Plan: p, Subject: "Pets"})
	require.NoError(t, err)
	assert.Equal(t, templates.SelectionNone, res.Selection)
	assert.Nil(t, res.TemplateUsed)
	assert.Contains(t, res.Draft.BodyPlain, GenericFallback)
	require.NotNil(t, res.LearningLedger)
	assert.Equal(t, 1, res.LearningLedger.Captured)

	again, err := f.gen.Generate(context.Background(), Request{Plan: p, Subject: "Pets"})
	require.NoError(t, err)
	require.NotNil(t, again.LearningLedger)
	assert.Equal(t, 0, again.LearningLedger.Captured)
	assert.Equal(t, 1, again.LearningLedger.Duplicates)

	records, err := store.List(context.Background(), ledger.StatusNew)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].SeenCount)
	assert.Equal(t, "draft-1", records[0].DraftID)
}

func TestGenerateMissingCorpusDegradesToFallback(t *testing.T) {
	f := newFixture(t, Options{CorpusPath: filepath.Join(t.TempDir(), "missing.json")})
	res, err := f.gen.Generate(context.Background(), Request{Plan: plan(t, "What time is breakfast?")})
	require.NoError(t, err)
	assert.Contains(t, res.Draft.BodyPlain, GenericFallback)
	assert.Contains(t, f.logs.String(), "template corpus unavailable")
}

func TestGenerateAppliesPolicy(t *testing.T) {
	corpus := append([]templates.EmailTemplate{{
		Subject:    "Cancellation request",
		Body:       "Thank you for letting us know about your cancellation. We will refund you in full within 5 days.",
		Category:   "cancellation",
		TemplateID: "cancel-ack",
	}}, faqCorpus...)
	f := newFixture(t, Options{
		CorpusPath: writeCorpus(t, corpus),
		Thresholds: templates.Thresholds{Auto: 0.3, Floor: 0.1, Margin: 0},
	})
	p := plan(t, "I have a non-refundable booking and need to cancel. Can I get my money back?")
	require.Equal(t, "cancellation", p.Scenario.Category)

	res, err := f.gen.Generate(context.Background(), Request{Plan: p})
	require.NoError(t, err)
	require.NotNil(t, res.TemplateUsed)
	assert.Equal(t, "cancel-ack", res.TemplateUsed.TemplateID)
	for _, c := range res.Candidates {
		assert.True(t, res.Policy.Allows(c.Template.Category), c.Template.Key())
	}

	plain := res.Draft.BodyPlain
	assert.Contains(t, plain, "Thank you for letting us know about your cancellation.")
	assert.NotContains(t, plain, "We will refund you")
	assert.Contains(t, plain, policy.NonRefundableLine)
	assert.NotContains(t, res.Quality.FailedChecks, "missing_policy_mandatory_content")
	assert.NotContains(t, res.Quality.FailedChecks, "policy_prohibited_content")
}

func TestGenerateGapFillsFromKnowledge(t *testing.T) {
	dir := t.TempDir()
	writeKnowledge(t, dir, knowledge.URIFAQ, map[string]any{
		"laundry":   "Our laundry service is open every day on the ground floor.",
		"reception": "Reception is open from 7:30 until midnight.",
	})
	writeKnowledge(t, dir, knowledge.URIPricingMenu, map[string]any{
		"laundry": "Laundry service costs 5 euros per load.",
	})

	f := newFixture(t, Options{CorpusPath: writeCorpus(t, faqCorpus), Knowledge: knowledge.NewStore(dir)})
	res, err := f.gen.Generate(context.Background(), Request{
		Plan: plan(t, "Hi, what time is breakfast served? Is there a laundry service?"),
	})
	require.NoError(t, err)

	require.Len(t, res.SourcesUsed, 1)
	assert.Equal(t, knowledge.URIFAQ, res.SourcesUsed[0].URI)
	assert.Contains(t, res.Draft.BodyPlain, "Our laundry service is open every day on the ground floor. [source: brikette://faq]")
	assert.NotContains(t, res.Draft.BodyPlain, "5 euros")
	assert.NotContains(t, res.Quality.FailedChecks, "unanswered_questions")
	assert.Contains(t, f.logs.String(), "questions_covered=2")
	assert.Contains(t, f.logs.String(), "questions_missing=0")

	uris := make(map[string]KnowledgeSource)
	for _, s := range res.KnowledgeSources {
		uris[s.URI] = s
	}
	require.Contains(t, uris, knowledge.URIPricingMenu)
	assert.Equal(t, knowledge.ExcludedSummary, uris[knowledge.URIPricingMenu].Summary)
	assert.False(t, uris[knowledge.URIPricingMenu].Injectable)
	assert.LessOrEqual(t, len([]rune(uris[knowledge.URIFAQ].Summary)), knowledge.MaxSummaryChars)
	assert.NotContains(t, uris, knowledge.URIRooms)
}

func TestGenerateGapFillSkipsProhibitedSnippets(t *testing.T) {
	dir := t.TempDir()
	writeKnowledge(t, dir, knowledge.URIFAQ, map[string]any{
		"shuttle":  "Our airport shuttle leaves early every morning and tickets come with free cancellation.",
		"schedule": "The airport shuttle leaves from the main square at 6:00.",
	})

	f := newFixture(t, Options{CorpusPath: writeCorpus(t, faqCorpus), Knowledge: knowledge.NewStore(dir)})
	p := plan(t, "I want to cancel my non-refundable booking. Does the airport shuttle leave early?")
	require.Equal(t, "cancellation", p.Scenario.Category)

	res, err := f.gen.Generate(context.Background(), Request{Plan: p})
	require.NoError(t, err)
	require.Contains(t, res.Policy.ProhibitedContent, "free cancellation")

	require.Len(t, res.SourcesUsed, 1)
	assert.Equal(t, "The airport shuttle leaves from the main square at 6:00.", res.SourcesUsed[0].Snippet)
	assert.NotContains(t, res.Draft.BodyPlain, "free cancellation")
	assert.Contains(t, res.Draft.BodyPlain, policy.NonRefundableLine)
	assert.NotContains(t, res.Quality.FailedChecks, "policy_prohibited_content")
}

func TestGenerateSinkFailureIsOnlyLogged(t *testing.T) {
	f := newFixture(t, Options{
		CorpusPath: writeCorpus(t, faqCorpus),
		Sink:       &signals.MemorySink{Err: errors.New("disk full")},
	})
	res, err := f.gen.Generate(context.Background(), Request{Plan: plan(t, "What time is breakfast served?")})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Draft.BodyPlain)
	assert.Contains(t, f.logs.String(), "selection signal not recorded")
}

func TestGenerateWritesValidSignalLine(t *testing.T) {
	store := signals.NewStore(t.TempDir())
	f := newFixture(t, Options{CorpusPath: writeCorpus(t, faqCorpus), Sink: store})
	_, err := f.gen.Generate(context.Background(), Request{Plan: plan(t, "What time is breakfast served?")})
	require.NoError(t, err)

	read, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Zero(t, read.Skipped)
	require.Len(t, read.Selections, 1)
	assert.Equal(t, "draft-1", read.Selections[0].DraftID)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	g := New(Options{})
	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, interpret.ErrInvalidInput)

	_, err = g.Generate(context.Background(), Request{Plan: &interpret.ActionPlan{NormalizedText: "  "}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGenerateUsesThreadGuestName(t *testing.T) {
	f := newFixture(t, Options{CorpusPath: writeCorpus(t, faqCorpus), SignatureImageURL: "https://example.com/sig.png"})
	p := plan(t, "What time is breakfast served?")
	p.ThreadSummary = &interpret.ThreadSummary{GuestName: "Marco"}

	res, err := f.gen.Generate(context.Background(), Request{Plan: p})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Draft.BodyPlain, "Dear Marco,"))
	assert.Contains(t, res.Draft.BodyHTML, `class="signature-image"`)
	assert.NotContains(t, res.Quality.FailedChecks, "missing_signature")
}
