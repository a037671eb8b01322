// Package refine asks an LLM to polish a draft and falls back to the
// original draft whenever that fails.
package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"guestmail/internal/adapters"
	"guestmail/internal/draft"
	"guestmail/internal/interpret"
	"guestmail/internal/logging"
	"guestmail/internal/signals"
)

// SourceNone marks a result where no refinement was applied.
const SourceNone = "none"

// DefaultTimeout bounds the LLM call when Options.Timeout is zero.
const DefaultTimeout = 60 * time.Second

type Request struct {
	DraftID string                `json:"draft_id,omitempty"`
	Plan    *interpret.ActionPlan `json:"actionPlan"`
	Draft   draft.Candidate       `json:"draft"`
	Context string                `json:"context,omitempty"`
}

type Result struct {
	Draft             draft.Candidate `json:"draft"`
	RefinementApplied bool            `json:"refinement_applied"`
	RefinementSource  string          `json:"refinement_source"`
}

type Options struct {
	LLM     adapters.LLM
	Model   string
	Timeout time.Duration
	Sink    signals.Sink
	Logger  *slog.Logger
	Clock   func() time.Time
}

type Refiner struct {
	llm     adapters.LLM
	model   string
	timeout time.Duration
	sink    signals.Sink
	logger  *slog.Logger
	clock   func() time.Time
}

func New(opts Options) *Refiner {
	r := &Refiner{
		llm:     opts.LLM,
		model:   opts.Model,
		timeout: opts.Timeout,
		sink:    opts.Sink,
		logger:  logging.OrDefault(opts.Logger),
		clock:   opts.Clock,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	return r
}

// Refine makes one LLM call. On success the plain body is replaced and the
// HTML body is kept as it was. Any failure returns the original draft with
// RefinementApplied false; Refine itself never fails.
func (r *Refiner) Refine(ctx context.Context, req Request) Result {
	res := r.refine(ctx, req)
	if req.DraftID != "" && r.sink != nil {
		ev := signals.RefinementEvent{
			TS:                r.clock().UTC(),
			DraftID:           req.DraftID,
			RefinementApplied: res.RefinementApplied,
			RefinementSource:  res.RefinementSource,
			OriginalBodyPlain: req.Draft.BodyPlain,
			RefinedBodyPlain:  res.Draft.BodyPlain,
			EditDistancePct:   signals.EditDistancePct(req.Draft.BodyPlain, res.Draft.BodyPlain),
		}
		if err := r.sink.Emit(ctx, ev); err != nil {
			r.logger.Warn("refinement signal not recorded", "draft_id", req.DraftID, "error", err.Error())
		}
	}
	return res
}

func (r *Refiner) refine(ctx context.Context, req Request) Result {
	fallback := Result{Draft: req.Draft, RefinementApplied: false, RefinementSource: SourceNone}
	if req.Draft.Empty() {
		r.logger.Warn("refinement skipped", "draft_id", req.DraftID, "reason", "empty draft")
		return fallback
	}
	if r.llm == nil {
		r.logger.Warn("refinement skipped", "draft_id", req.DraftID, "reason", "no llm configured")
		return fallback
	}

	resp, err := r.llm.Complete(ctx, adapters.Request{
		Prompt:  BuildPrompt(req.Plan, req.Draft, req.Context),
		Model:   r.model,
		Timeout: r.timeout,
	})
	if err == nil && (resp == nil || strings.TrimSpace(resp.Text) == "") {
		err = adapters.ErrEmptyResponse
	}
	if err != nil {
		reason := "llm error"
		switch {
		case errors.Is(err, adapters.ErrEmptyResponse):
			reason = "empty text"
		case errors.Is(err, adapters.ErrNonTextResponse):
			reason = "non-text response"
		}
		r.logger.Warn("refinement failed, keeping original draft",
			"draft_id", req.DraftID,
			"adapter", r.llm.Name(),
			"reason", reason,
			"error", err.Error(),
		)
		return fallback
	}

	return Result{
		Draft: draft.Candidate{
			BodyPlain: strings.TrimSpace(resp.Text),
			BodyHTML:  req.Draft.BodyHTML,
		},
		RefinementApplied: true,
		RefinementSource:  r.llm.Name(),
	}
}

// BuildPrompt embeds the guest's questions, the thread commitments and the
// current draft in a single instruction.
func BuildPrompt(plan *interpret.ActionPlan, d draft.Candidate, extra string) string {
	var b strings.Builder
	b.WriteString("You are the reception team of Hostel Brikette in Positano, replying to a guest email.\n")
	b.WriteString("Improve the draft reply below: keep every fact, link and policy sentence, answer each guest question, ")
	b.WriteString("keep the greeting and the signature, and do not promise availability, refunds or charges that the draft does not state.\n")
	b.WriteString("Return only the revised plain-text email, with no commentary.\n\n")

	if plan != nil {
		if plan.Language != "" && plan.Language != interpret.LanguageUnknown {
			fmt.Fprintf(&b, "Reply language: %s\n", plan.Language)
		}
		if plan.Scenario.Category != "" {
			fmt.Fprintf(&b, "Scenario: %s\n", plan.Scenario.Category)
		}
		writeList(&b, "Guest questions", intentTexts(plan.Intents.Questions))
		writeList(&b, "Guest requests", intentTexts(plan.Intents.Requests))
		if ts := plan.ThreadSummary; ts != nil {
			writeList(&b, "Commitments already made in this thread", ts.PriorCommitments)
			if ts.ToneHistory != "" {
				fmt.Fprintf(&b, "Tone so far: %s\n", ts.ToneHistory)
			}
		}
	}
	if extra = strings.TrimSpace(extra); extra != "" {
		fmt.Fprintf(&b, "\nAdditional context from staff:\n%s\n", extra)
	}

	b.WriteString("\n<draft>\n")
	b.WriteString(strings.TrimSpace(d.BodyPlain))
	b.WriteString("\n</draft>\n")
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func intentTexts(intents []interpret.Intent) []string {
	out := make([]string, 0, len(intents))
	for _, i := range intents {
		out = append(out, i.Text)
	}
	return out
}
