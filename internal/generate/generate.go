// Package generate assembles a reply draft from an ActionPlan: it ranks the
// template corpus, applies the policy decision, fills coverage gaps from the
// knowledge base and runs the quality gate on the result.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"guestmail/internal/coverage"
	"guestmail/internal/draft"
	"guestmail/internal/interpret"
	"guestmail/internal/knowledge"
	"guestmail/internal/ledger"
	"guestmail/internal/logging"
	"guestmail/internal/policy"
	"guestmail/internal/quality"
	"guestmail/internal/signals"
	"guestmail/internal/templates"
)

// ErrInvalidInput is returned for a request without a usable plan.
var ErrInvalidInput = interpret.ErrInvalidInput

// DefaultSignature closes every draft when Options.Signature is empty.
const DefaultSignature = "Hostel Brikette Reception"

const defaultGuestName = "Guest"

// LedgerWriter captures questions no template could answer.
type LedgerWriter interface {
	Capture(ctx context.Context, entries []ledger.Entry) (ledger.CaptureResult, error)
}

type Options struct {
	CorpusPath        string
	Cache             *templates.Cache
	Thresholds        templates.Thresholds
	Knowledge         *knowledge.Store
	Ledger            LedgerWriter
	Sink              signals.Sink
	Renderer          Renderer
	Signature         string
	SignatureImageURL string
	Logger            *slog.Logger
	Clock             func() time.Time
	NewID             func() string
}

// Request is the draft_generate input.
type Request struct {
	Plan               *interpret.ActionPlan `json:"actionPlan"`
	Subject            string                `json:"subject,omitempty"`
	RecipientName      string                `json:"recipientName,omitempty"`
	PrepaymentStep     string                `json:"prepaymentStep,omitempty"`
	PrepaymentProvider string                `json:"prepaymentProvider,omitempty"`
}

// TemplateUsed describes the template a draft was built from.
type TemplateUsed struct {
	Subject    string  `json:"subject"`
	Category   string  `json:"category"`
	TemplateID string  `json:"template_id,omitempty"`
	Confidence float64 `json:"confidence"`
}

// SourceUsed is a knowledge snippet injected into the draft.
type SourceUsed struct {
	URI      string `json:"uri"`
	Question string `json:"question"`
	Snippet  string `json:"snippet"`
}

type Result struct {
	DraftID            string                `json:"draft_id"`
	Draft              draft.Candidate       `json:"draft"`
	Quality            quality.Result        `json:"quality"`
	Policy             policy.Decision       `json:"policy"`
	TemplateUsed       *TemplateUsed         `json:"template_used"`
	Selection          templates.Selection   `json:"selection"`
	Composite          bool                  `json:"composite"`
	CompositeTemplates []string              `json:"composite_templates,omitempty"`
	Candidates         []templates.Candidate `json:"candidates"`
	KnowledgeSources   []KnowledgeSource     `json:"knowledge_sources"`
	SourcesUsed        []SourceUsed          `json:"sources_used"`
	LearningLedger     *ledger.CaptureResult `json:"learning_ledger,omitempty"`
}

type Generator struct {
	corpusPath string
	cache      *templates.Cache
	thresholds templates.Thresholds
	knowledge  *knowledge.Store
	ledger     LedgerWriter
	sink       signals.Sink
	renderer   Renderer
	signature  string
	imageURL   string
	logger     *slog.Logger
	clock      func() time.Time
	newID      func() string
}

func New(opts Options) *Generator {
	g := &Generator{
		corpusPath: opts.CorpusPath,
		cache:      opts.Cache,
		thresholds: opts.Thresholds,
		knowledge:  opts.Knowledge,
		ledger:     opts.Ledger,
		sink:       opts.Sink,
		renderer:   opts.Renderer,
		signature:  strings.TrimSpace(opts.Signature),
		imageURL:   opts.SignatureImageURL,
		logger:     logging.OrDefault(opts.Logger),
		clock:      opts.Clock,
		newID:      opts.NewID,
	}
	if g.cache == nil {
		g.cache = templates.NewCache(templates.DefaultCacheTTL)
	}
	if g.thresholds == (templates.Thresholds{}) {
		g.thresholds = templates.DefaultThresholds()
	}
	if g.renderer == nil {
		g.renderer = NewHTMLRenderer()
	}
	if g.signature == "" {
		g.signature = DefaultSignature
	}
	if g.clock == nil {
		g.clock = time.Now
	}
	if g.newID == nil {
		g.newID = uuid.NewString
	}
	return g
}

// selection is the outcome of ranking the whole message and, for
// multi-question messages, each question on its own.
type selection struct {
	whole     templates.RankResult
	used      []templates.Candidate
	composite bool
}

func (s selection) effective() templates.Selection {
	if s.composite {
		return templates.SelectionAuto
	}
	return s.whole.Selection
}

// Generate builds one draft. Only an unusable request is an error; corpus,
// knowledge, ledger and sink problems degrade the result and are logged.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	plan := req.Plan
	if plan == nil {
		return nil, fmt.Errorf("%w: actionPlan is required", ErrInvalidInput)
	}
	if strings.TrimSpace(plan.NormalizedText) == "" {
		return nil, fmt.Errorf("%w: actionPlan.normalized_text is required", ErrInvalidInput)
	}

	draftID := g.newID()
	logger := g.logger.With("draft_id", draftID, "category", plan.Scenario.Category)
	decision := policy.Decide(policy.InputFromPlan(plan))

	corpus := g.corpus(logger, &decision)
	sel := g.selectTemplates(corpus, req, plan)

	res := &Result{
		DraftID:     draftID,
		Policy:      decision,
		Selection:   sel.effective(),
		Composite:   sel.composite,
		Candidates:  sel.whole.Candidates,
		SourcesUsed: []SourceUsed{},
	}
	if res.Candidates == nil {
		res.Candidates = []templates.Candidate{}
	}

	var paragraphs []string
	for _, c := range sel.used {
		paragraphs = append(paragraphs, templateParagraphs(c.Template.Body)...)
	}
	if len(sel.used) > 0 {
		top := sel.used[0]
		res.TemplateUsed = &TemplateUsed{
			Subject:    top.Template.Subject,
			Category:   top.Template.Category,
			TemplateID: top.Template.TemplateID,
			Confidence: top.Confidence,
		}
	}
	if sel.composite {
		for _, c := range sel.used {
			res.CompositeTemplates = append(res.CompositeTemplates, c.Template.Key())
		}
	}
	if len(paragraphs) == 0 {
		paragraphs = []string{GenericFallback}
	}
	paragraphs = applyPolicy(dedupeParagraphs(paragraphs), decision)

	if sel.whole.Selection == templates.SelectionNone && !sel.composite {
		res.LearningLedger = g.captureUnknown(ctx, logger, plan, req.Subject, draftID)
	}

	var loaded []loadedSource
	res.KnowledgeSources, loaded = resolveSources(g.knowledge, plan.Scenario.Category, logger)
	for _, fill := range fillGaps(strings.Join(paragraphs, "\n\n"), plan.CoverageTargets(), loaded, decision.ProhibitedContent) {
		paragraphs = append(paragraphs, fmt.Sprintf("%s [source: %s]", fill.snippet, fill.uri))
		res.SourcesUsed = append(res.SourcesUsed, SourceUsed{URI: fill.uri, Question: fill.question, Snippet: fill.snippet})
	}

	email := Email{
		Greeting:          "Dear " + recipient(req, plan) + ",",
		Paragraphs:        paragraphs,
		SignOff:           signOff,
		Signature:         g.signature,
		SignatureImageURL: g.imageURL,
	}
	html, err := g.renderer.Render(email)
	if err != nil {
		logger.Warn("html rendering failed", "error", err.Error())
	}
	res.Draft = draft.Candidate{BodyPlain: email.Plain(), BodyHTML: html}
	res.Quality = quality.Check(quality.Input{Plan: plan, Draft: res.Draft, Policy: &decision})

	g.emit(ctx, logger, res, plan)
	covered, partial, missing := coverage.Summary(res.Quality.QuestionCoverage)
	logger.Info("draft generated",
		"selection", string(res.Selection),
		"composite", res.Composite,
		"quality_passed", res.Quality.Passed,
		"questions_covered", covered,
		"questions_partial", partial,
		"questions_missing", missing,
	)
	return res, nil
}

// corpus loads the template corpus and narrows it to the categories the
// policy allows. A restriction that would leave nothing keeps the full corpus.
func (g *Generator) corpus(logger *slog.Logger, decision *policy.Decision) []templates.EmailTemplate {
	if g.corpusPath == "" {
		return nil
	}
	all, err := g.cache.Get(g.corpusPath)
	if err != nil {
		logger.Warn("template corpus unavailable, using generic reply", "path", g.corpusPath, "error", err.Error())
		return nil
	}
	if len(decision.TemplateConstraints.AllowedCategories) == 0 {
		return all
	}
	allowed := make([]templates.EmailTemplate, 0, len(all))
	for _, t := range all {
		if decision.Allows(t.Category) {
			allowed = append(allowed, t)
		}
	}
	if len(allowed) == 0 {
		return all
	}
	return allowed
}

func (g *Generator) selectTemplates(corpus []templates.EmailTemplate, req Request, plan *interpret.ActionPlan) selection {
	sel := selection{
		whole: templates.Rank(corpus, templates.Query{
			Subject:            req.Subject,
			Body:               plan.NormalizedText,
			CategoryHint:       plan.Scenario.Category,
			PrepaymentStep:     req.PrepaymentStep,
			PrepaymentProvider: req.PrepaymentProvider,
		}, g.thresholds),
	}

	if questions := plan.Intents.Questions; len(questions) >= 2 {
		seen := map[string]struct{}{}
		var picked []templates.Candidate
		for _, q := range questions {
			r := templates.Rank(corpus, templates.Query{
				Body:               q.Text,
				CategoryHint:       plan.Scenario.Category,
				PrepaymentStep:     req.PrepaymentStep,
				PrepaymentProvider: req.PrepaymentProvider,
			}, g.thresholds)
			top, ok := r.Top()
			if r.Selection != templates.SelectionAuto || !ok {
				continue
			}
			if _, dup := seen[top.Template.Key()]; dup {
				continue
			}
			seen[top.Template.Key()] = struct{}{}
			picked = append(picked, top)
		}
		if len(picked) >= 2 {
			sel.used = picked
			sel.composite = true
			return sel
		}
	}

	if top, ok := sel.whole.Top(); ok && sel.whole.Selection == templates.SelectionAuto {
		sel.used = []templates.Candidate{top}
	}
	return sel
}

func (g *Generator) captureUnknown(ctx context.Context, logger *slog.Logger, plan *interpret.ActionPlan, subject, draftID string) *ledger.CaptureResult {
	if g.ledger == nil || len(plan.Intents.Questions) == 0 {
		return nil
	}
	entries := make([]ledger.Entry, 0, len(plan.Intents.Questions))
	for _, q := range plan.Intents.Questions {
		entries = append(entries, ledger.Entry{
			Question: q.Text,
			Category: plan.Scenario.Category,
			Subject:  subject,
			DraftID:  draftID,
		})
	}
	captured, err := g.ledger.Capture(ctx, entries)
	if err != nil {
		logger.Warn("learning ledger capture failed", "error", err.Error())
		return nil
	}
	return &captured
}

func (g *Generator) emit(ctx context.Context, logger *slog.Logger, res *Result, plan *interpret.ActionPlan) {
	if g.sink == nil {
		return
	}
	ev := signals.SelectionEvent{
		TS:            g.clock().UTC(),
		DraftID:       res.DraftID,
		Category:      plan.Scenario.Category,
		Language:      string(plan.Language),
		Selection:     string(res.Selection),
		Confidence:    res.candidateConfidence(),
		Composite:     res.Composite,
		QuestionCount: len(plan.Intents.Questions),
		QualityPassed: res.Quality.Passed,
		FailedChecks:  res.Quality.FailedChecks,
		ReviewTier:    string(res.Policy.ReviewTier),
	}
	if res.TemplateUsed != nil {
		ev.TemplateID = res.TemplateUsed.TemplateID
		if ev.TemplateID == "" {
			ev.TemplateID = res.TemplateUsed.Subject
		}
	}
	for _, c := range res.Candidates {
		ev.Candidates = append(ev.Candidates, signals.CandidateSignal{TemplateKey: c.Template.Key(), Confidence: c.Confidence})
	}
	if err := g.sink.Emit(ctx, ev); err != nil {
		logger.Warn("selection signal not recorded", "error", err.Error())
	}
}

func (r *Result) candidateConfidence() float64 {
	if r.TemplateUsed != nil {
		return r.TemplateUsed.Confidence
	}
	if len(r.Candidates) > 0 {
		return r.Candidates[0].Confidence
	}
	return 0
}

func recipient(req Request, plan *interpret.ActionPlan) string {
	if name := strings.TrimSpace(req.RecipientName); name != "" {
		return name
	}
	if plan.ThreadSummary != nil {
		if name := strings.TrimSpace(plan.ThreadSummary.GuestName); name != "" {
			return name
		}
	}
	return defaultGuestName
}
