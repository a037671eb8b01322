// Package interpret turns a raw guest email into an ActionPlan.
package interpret

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput marks a request that breaks the input contract. Nothing is
// interpreted when it is returned.
var ErrInvalidInput = errors.New("invalid input")

// Options configures an Interpreter.
type Options struct {
	// StaffMarkers are lowercase substrings of a sender that identify staff.
	StaffMarkers []string
}

type Interpreter struct {
	staffMarkers []string
}

func New(opts Options) *Interpreter {
	markers := opts.StaffMarkers
	if len(markers) == 0 {
		markers = DefaultStaffMarkers
	}
	return &Interpreter{staffMarkers: markers}
}

// Interpret builds the ActionPlan for one inbound message.
func Interpret(in Input) (*ActionPlan, error) {
	return New(Options{}).Interpret(in)
}

func (i *Interpreter) Interpret(in Input) (*ActionPlan, error) {
	if strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if in.ThreadContext != nil {
		for idx, msg := range in.ThreadContext.Messages {
			if strings.TrimSpace(msg.From) == "" {
				return nil, fmt.Errorf("%w: threadContext.messages[%d].from is required", ErrInvalidInput, idx)
			}
		}
	}

	normalized := NormalizeThread(in.Body)
	if normalized == "" {
		return nil, fmt.Errorf("%w: body has no content outside quoted text", ErrInvalidInput)
	}
	classified := normalized
	if subject := strings.TrimSpace(in.Subject); subject != "" {
		classified = subject + "\n" + normalized
	}

	lang := DetectLanguage(normalized)
	agreement := DetectAgreement(normalized, lang)
	plan := &ActionPlan{
		NormalizedText:   normalized,
		Language:         lang,
		Intents:          extractIntents(normalized),
		Agreement:        agreement,
		WorkflowTriggers: detectTriggers(classified, agreement),
		Scenario:         ClassifyScenario(classified),
		Escalation:       DetectEscalation(classified),
	}
	if in.ThreadContext != nil && len(in.ThreadContext.Messages) > 0 {
		plan.ThreadSummary = summarizeThread(in.ThreadContext, i.staffMarkers)
	}
	return plan, nil
}

// CoverageTargets returns the question and request texts a reply has to
// answer, questions first.
func (p *ActionPlan) CoverageTargets() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Intents.Questions)+len(p.Intents.Requests))
	for _, q := range p.Intents.Questions {
		out = append(out, q.Text)
	}
	for _, r := range p.Intents.Requests {
		out = append(out, r.Text)
	}
	return out
}
