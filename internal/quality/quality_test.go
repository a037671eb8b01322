package quality

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestmail/internal/coverage"
	"guestmail/internal/draft"
	"guestmail/internal/interpret"
	"guestmail/internal/policy"
)

const signature = "Best regards,\nHostel Brikette Reception"

func faqPlan(t *testing.T, body string) *interpret.ActionPlan {
	t.Helper()
	plan, err := interpret.Interpret(interpret.Input{Body: body})
	require.NoError(t, err)
	return plan
}

func htmlFor(plain string) string {
	return "<p>" + plain + `</p><img class="signature" src="https://example.com/sig.png">`
}

func TestCheckPassesGoodDraft(t *testing.T) {
	plan := faqPlan(t, "Hi, what time is breakfast served?")
	plain := "Dear Guest,\n\nBreakfast is served on the terrace every morning from 8:00 to 10:30.\n\n" + signature
	res := Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: plain, BodyHTML: htmlFor(plain)}})

	assert.True(t, res.Passed)
	assert.Empty(t, res.FailedChecks)
	assert.Equal(t, 1.0, res.Confidence)
	require.Len(t, res.QuestionCoverage, 1)
	assert.Equal(t, coverage.StatusCovered, res.QuestionCoverage[0].Status)
	assert.Contains(t, res.Warnings, CodeLengthOutOfRange)
}

func TestCheckReportsHardFailures(t *testing.T) {
	plan := faqPlan(t, "Is there parking? Can you check my booking status?")
	plain := "Availability is confirmed for your dates."
	res := Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: plain}})

	assert.False(t, res.Passed)
	for _, code := range []string{
		CodeUnansweredQuestions,
		CodeProhibitedClaims,
		CodeMissingHTML,
		CodeMissingSignature,
		CodeMissingRequiredLink,
	} {
		assert.Contains(t, res.FailedChecks, code)
	}
	assert.NotContains(t, res.FailedChecks, CodeMissingPlaintext)
	assert.InDelta(t, 1.0/6.0, res.Confidence, 0.001)
}

func TestCheckEmptyDraft(t *testing.T) {
	res := Check(Input{Plan: faqPlan(t, "Hello there")})
	assert.Contains(t, res.FailedChecks, CodeMissingPlaintext)
	assert.Contains(t, res.FailedChecks, CodeMissingHTML)
	assert.Contains(t, res.FailedChecks, CodeMissingSignature)
	assert.False(t, res.Passed)
}

func TestCheckHTMLSignatureImageCounts(t *testing.T) {
	assert.True(t, HasSignature("no sign-off here", `<div><img alt="x" src="/img/signature.png"></div>`))
	assert.False(t, HasSignature("no sign-off here", "<p>hello</p>"))
	assert.True(t, HasSignature("Kind  Regards, Anna", ""))
}

func TestCheckContradictsThread(t *testing.T) {
	plan := faqPlan(t, "Thanks, see you on Friday!")
	plan.ThreadSummary = &interpret.ThreadSummary{
		PriorCommitments: []string{"We will keep your luggage at reception after check-out."},
	}
	bad := "Dear Guest,\n\nUnfortunately luggage storage is not available on Fridays.\n\n" + signature
	res := Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: bad, BodyHTML: htmlFor(bad)}})
	assert.Contains(t, res.FailedChecks, CodeContradictsThread)

	ok := "Dear Guest,\n\nYour luggage will be waiting at reception. The kitchen is not available at night.\n\n" + signature
	res = Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: ok, BodyHTML: htmlFor(ok)}})
	assert.NotContains(t, res.FailedChecks, CodeContradictsThread)

	phrase := "Dear Guest,\n\nReception is not available at night.\n\n" + signature
	res = Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: phrase, BodyHTML: htmlFor(phrase)}})
	assert.Contains(t, res.FailedChecks, CodeContradictsThread)
}

func TestCheckPolicyRules(t *testing.T) {
	plan := faqPlan(t, "I have a non-refundable booking and need to cancel. Can I get my money back?")
	decision := policy.Decide(policy.InputFromPlan(plan))
	require.True(t, decision.HasRules())

	plain := "Dear Guest,\n\nWe will refund you in full, and a full refund will reach you soon.\n\n" + signature
	res := Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: plain, BodyHTML: htmlFor(plain)}, Policy: &decision})
	assert.Contains(t, res.FailedChecks, CodeMissingPolicyMandatory)
	assert.Contains(t, res.FailedChecks, CodePolicyProhibitedContent)

	plain = "Dear Guest,\n\nWe are sorry to hear you need to cancel your booking and get your money back.\n" +
		policy.NonRefundableLine + "\n\n" + signature
	res = Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: plain, BodyHTML: htmlFor(plain)}, Policy: &decision})
	assert.NotContains(t, res.FailedChecks, CodeMissingPolicyMandatory)
	assert.NotContains(t, res.FailedChecks, CodePolicyProhibitedContent)
}

func TestCheckLanguageMismatchIsWarning(t *testing.T) {
	plan := faqPlan(t, "Ciao, vorrei sapere quando è la colazione, grazie")
	require.Equal(t, interpret.LanguageIT, plan.Language)
	plain := "Dear Guest,\n\nBreakfast is served from 8:00 and we look forward to seeing you.\n\n" + signature
	res := Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: plain, BodyHTML: htmlFor(plain)}})
	assert.Contains(t, res.Warnings, CodeLanguageMismatch)
	assert.NotContains(t, res.FailedChecks, CodeLanguageMismatch)
}

func TestCheckLengthBands(t *testing.T) {
	assert.True(t, outOfRange(strings.Repeat("word ", 39), "faq"))
	assert.False(t, outOfRange(strings.Repeat("word ", 40), "faq"))
	assert.False(t, outOfRange(strings.Repeat("word ", 120), "FAQ"))
	assert.True(t, outOfRange(strings.Repeat("word ", 121), "faq"))
	assert.False(t, outOfRange(strings.Repeat("word ", 80), "payment"))
	assert.True(t, outOfRange(strings.Repeat("word ", 79), "payment"))
}

func TestCheckPassedMatchesFailedChecks(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)

	properties.Property("passed iff no failed checks, confidence within bounds", prop.ForAll(
		func(bodyWords []string, withHTML bool, monitor bool) bool {
			plain := strings.Join(bodyWords, " ")
			html := ""
			if withHTML {
				html = "<p>" + plain + "</p>"
			}
			plan := &interpret.ActionPlan{
				Language: interpret.LanguageEN,
				Intents: interpret.Intents{Questions: []interpret.Intent{
					{Text: "What time is breakfast?"},
				}},
				WorkflowTriggers: interpret.WorkflowTriggers{BookingMonitor: monitor},
				Scenario:         interpret.Scenario{Category: "faq"},
			}
			res := Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: plain, BodyHTML: html}})
			return res.Passed == (len(res.FailedChecks) == 0) &&
				res.Confidence >= 0 && res.Confidence <= 1
		},
		gen.SliceOf(oneOf("breakfast", "time", "served", "best regards", "https://x.io", "availability confirmed", "the")),
		gen.Bool(),
		gen.Bool(),
	))

	properties.Property("coverage via the gate equals direct evaluation", prop.ForAll(
		func(bodyWords []string, question string) bool {
			plain := strings.Join(bodyWords, " ")
			plan := &interpret.ActionPlan{Intents: interpret.Intents{Questions: []interpret.Intent{{Text: question}}}}
			viaGate := Check(Input{Plan: plan, Draft: draft.Candidate{BodyPlain: plain}}).QuestionCoverage
			direct := coverage.Evaluate(plain, coverage.Questions(question))
			if len(viaGate) != len(direct) {
				return false
			}
			for i := range direct {
				if viaGate[i].CoverageScore != direct[i].CoverageScore || viaGate[i].Status != direct[i].Status {
					return false
				}
			}
			return true
		},
		gen.SliceOf(oneOf("breakfast", "towels", "luggage", "wifi", "internet", "kitchen", "at")),
		oneOf("Is breakfast included?", "Do you have towels and wifi?", "Can I leave my bags?", "Ok?"),
	))

	properties.TestingRun(t)
}

// oneOf generates one of words as a string.
func oneOf(words ...string) gopter.Gen {
	return gen.IntRange(0, len(words)-1).Map(func(i int) string { return words[i] })
}
