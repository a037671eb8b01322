package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guestmail/internal/interpret"
)

func TestDecideNonRefundableCancellation(t *testing.T) {
	plan, err := interpret.Interpret(interpret.Input{
		Body: "Hello, I have a non-refundable booking for next week and I need to cancel it. Can I get my money back?",
	})
	require.NoError(t, err)
	require.Equal(t, "cancellation", plan.Scenario.Category)

	d := Decide(InputFromPlan(plan))
	assert.Equal(t, []string{NonRefundableLine}, d.MandatoryContent)
	assert.Equal(t, RefundOfferPhrases, d.ProhibitedContent)
	assert.Equal(t, ReviewStandard, d.ReviewTier)
	assert.True(t, d.HasRules())
	assert.True(t, d.Allows("Cancellation"))
	assert.False(t, d.Allows("breakfast"))
}

func TestDecideRefundableCancellation(t *testing.T) {
	d := Decide(Input{NormalizedText: "Can I cancel and get a refund?", Category: "cancellation"})
	assert.Equal(t, []string{RefundableLine}, d.MandatoryContent)
	assert.Empty(t, d.ProhibitedContent)
}

func TestDecidePaymentAlwaysAddsSecureChannel(t *testing.T) {
	for _, cat := range []string{"payment", "prepayment", "Deposit"} {
		d := Decide(Input{NormalizedText: "hello", Category: cat})
		assert.Equal(t, []string{SecurePaymentLine}, d.MandatoryContent, cat)
	}
}

func TestDecideReviewTierIsHighestTrigger(t *testing.T) {
	cases := []struct {
		name string
		in   Input
		want ReviewTier
	}{
		{"standard", Input{NormalizedText: "What time is breakfast?", Category: "faq"}, ReviewStandard},
		{"high escalation", Input{Category: "faq", EscalationTier: interpret.EscalationHigh}, ReviewMandatory},
		{"dispute keyword", Input{NormalizedText: "I want to dispute this", Category: "payment"}, ReviewMandatory},
		{"critical beats dispute", Input{NormalizedText: "chargeback", Category: "payment", EscalationTier: interpret.EscalationCritical}, ReviewOwner},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Decide(tc.in)
			assert.Equal(t, tc.want, d.ReviewTier)
			if tc.want != ReviewStandard {
				assert.Contains(t, d.MandatoryContent, PriorityReviewLine)
			}
		})
	}
}

func TestDecideDedupesAndFallsBackToIntents(t *testing.T) {
	d := Decide(Input{
		Category: "cancellation",
		Intents: &interpret.Intents{
			Questions: []interpret.Intent{{Text: "It was non-refundable, right?"}},
			Requests:  []interpret.Intent{{Text: "please confirm the non-refundable terms"}},
		},
	})
	assert.Equal(t, []string{NonRefundableLine}, d.MandatoryContent)

	general := Decide(Input{NormalizedText: "hi", Category: "whatever"})
	assert.Empty(t, general.TemplateConstraints.AllowedCategories)
	assert.True(t, general.Allows("anything"))
	assert.False(t, general.HasRules())
	assert.Equal(t, []string{"friendly", "professional"}, general.ToneConstraints)
}
