// Package quality gates a draft reply before it is shown to staff.
package quality

import (
	"math"
	"regexp"
	"strings"

	"guestmail/internal/coverage"
	"guestmail/internal/draft"
	"guestmail/internal/interpret"
	"guestmail/internal/policy"
)

// Failure and warning codes.
const (
	CodeUnansweredQuestions     = "unanswered_questions"
	CodePartialQuestionCoverage = "partial_question_coverage"
	CodeProhibitedClaims        = "prohibited_claims"
	CodeMissingPlaintext        = "missing_plaintext"
	CodeMissingHTML             = "missing_html"
	CodeMissingSignature        = "missing_signature"
	CodeMissingRequiredLink     = "missing_required_link"
	CodeContradictsThread       = "contradicts_thread"
	CodeMissingPolicyMandatory  = "missing_policy_mandatory_content"
	CodePolicyProhibitedContent = "policy_prohibited_content"
	CodeLanguageMismatch        = "language_mismatch"
	CodeLengthOutOfRange        = "length_out_of_range"
)

const (
	baseChecks   = 6
	policyChecks = 2
)

// Result is the gate's verdict. Passed is true exactly when FailedChecks is
// empty.
type Result struct {
	Passed           bool                        `json:"passed"`
	FailedChecks     []string                    `json:"failed_checks"`
	Warnings         []string                    `json:"warnings"`
	Confidence       float64                     `json:"confidence"`
	QuestionCoverage []coverage.QuestionCoverage `json:"question_coverage"`
}

// Input is the draft_quality_check request.
type Input struct {
	Plan   *interpret.ActionPlan `json:"actionPlan"`
	Draft  draft.Candidate       `json:"draft"`
	Policy *policy.Decision      `json:"policyDecision,omitempty"`
}

type checker struct {
	failed   []string
	warnings []string
}

func (c *checker) fail(code string) {
	for _, f := range c.failed {
		if f == code {
			return
		}
	}
	c.failed = append(c.failed, code)
}

func (c *checker) warn(code string) {
	for _, w := range c.warnings {
		if w == code {
			return
		}
	}
	c.warnings = append(c.warnings, code)
}

// Check runs every check against the draft. The checks are independent and
// their order does not affect the result.
func Check(in Input) Result {
	plan := in.Plan
	if plan == nil {
		plan = &interpret.ActionPlan{Language: interpret.LanguageUnknown}
	}
	plain := in.Draft.BodyPlain
	html := in.Draft.BodyHTML
	c := &checker{}

	entries := coverage.Evaluate(plain, coverage.Questions(plan.CoverageTargets()...))
	for _, e := range entries {
		switch e.Status {
		case coverage.StatusMissing:
			c.fail(CodeUnansweredQuestions)
		case coverage.StatusPartial:
			c.warn(CodePartialQuestionCoverage)
		}
	}

	if containsAny(plain, ProhibitedClaims) {
		c.fail(CodeProhibitedClaims)
	}
	if strings.TrimSpace(plain) == "" {
		c.fail(CodeMissingPlaintext)
	}
	if strings.TrimSpace(html) == "" {
		c.fail(CodeMissingHTML)
	}
	if !HasSignature(plain, html) {
		c.fail(CodeMissingSignature)
	}
	if plan.WorkflowTriggers.BookingMonitor && !urlPattern.MatchString(plain+"\n"+html) {
		c.fail(CodeMissingRequiredLink)
	}
	if plan.ThreadSummary != nil && contradictsCommitments(plain, plan.ThreadSummary.PriorCommitments) {
		c.fail(CodeContradictsThread)
	}

	total := baseChecks
	if in.Policy.HasRules() {
		total += policyChecks
		body := normalizeSpace(plain)
		for _, line := range in.Policy.MandatoryContent {
			if !strings.Contains(body, normalizeSpace(line)) {
				c.fail(CodeMissingPolicyMandatory)
				break
			}
		}
		for _, line := range in.Policy.ProhibitedContent {
			if n := normalizeSpace(line); n != "" && strings.Contains(body, n) {
				c.fail(CodePolicyProhibitedContent)
				break
			}
		}
	}

	if plan.Language != "" && plan.Language != interpret.LanguageUnknown && strings.TrimSpace(plain) != "" {
		if interpret.DetectLanguage(plain) != plan.Language {
			c.warn(CodeLanguageMismatch)
		}
	}
	if outOfRange(plain, plan.Scenario.Category) {
		c.warn(CodeLengthOutOfRange)
	}

	res := Result{
		FailedChecks:     c.failed,
		Warnings:         c.warnings,
		QuestionCoverage: entries,
	}
	if res.FailedChecks == nil {
		res.FailedChecks = []string{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}
	res.Passed = len(res.FailedChecks) == 0
	res.Confidence = math.Max(0, float64(total-len(res.FailedChecks))/float64(total))
	res.Confidence = math.Round(res.Confidence*1000) / 1000
	return res
}

func normalizeSpace(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func containsAny(body string, phrases []string) bool {
	n := normalizeSpace(body)
	for _, p := range phrases {
		if strings.Contains(n, normalizeSpace(p)) {
			return true
		}
	}
	return false
}

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)
