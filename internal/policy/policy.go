// Package policy derives the content rules and review tier for a reply.
package policy

import (
	"regexp"
	"strings"

	"guestmail/internal/category"
	"guestmail/internal/interpret"
)

// ReviewTier controls how much human oversight a draft needs.
type ReviewTier string

const (
	ReviewStandard  ReviewTier = "standard"
	ReviewMandatory ReviewTier = "mandatory-review"
	ReviewOwner     ReviewTier = "owner-alert"
)

var tierRank = map[ReviewTier]int{
	ReviewStandard:  0,
	ReviewMandatory: 1,
	ReviewOwner:     2,
}

type TemplateConstraints struct {
	AllowedCategories []string `json:"allowedCategories"`
}

// Decision is the rule set a draft must satisfy.
type Decision struct {
	MandatoryContent    []string            `json:"mandatoryContent"`
	ProhibitedContent   []string            `json:"prohibitedContent"`
	ToneConstraints     []string            `json:"toneConstraints"`
	ReviewTier          ReviewTier          `json:"reviewTier"`
	TemplateConstraints TemplateConstraints `json:"templateConstraints"`
}

// HasRules reports whether the decision carries content rules to check.
func (d *Decision) HasRules() bool {
	return d != nil && len(d.MandatoryContent)+len(d.ProhibitedContent) > 0
}

// Allows reports whether a template category may be used under this decision.
// An empty allow-list permits everything.
func (d *Decision) Allows(raw string) bool {
	if d == nil || len(d.TemplateConstraints.AllowedCategories) == 0 {
		return true
	}
	c := string(category.Normalize(raw))
	for _, allowed := range d.TemplateConstraints.AllowedCategories {
		if allowed == c {
			return true
		}
	}
	return false
}

// Input is everything the engine looks at.
type Input struct {
	NormalizedText string
	Category       string
	EscalationTier interpret.EscalationTier
	Intents        *interpret.Intents
}

// InputFromPlan projects an ActionPlan onto the engine's input.
func InputFromPlan(plan *interpret.ActionPlan) Input {
	if plan == nil {
		return Input{}
	}
	intents := plan.Intents
	return Input{
		NormalizedText: plan.NormalizedText,
		Category:       plan.Scenario.Category,
		EscalationTier: plan.Escalation.Tier,
		Intents:        &intents,
	}
}

const (
	NonRefundableLine  = "Please note that your booking was made at a non-refundable rate, so the amount paid cannot be refunded if the booking is cancelled."
	RefundableLine     = "If your rate is refundable, cancellations made within the free cancellation period are refunded to the original payment method."
	SecurePaymentLine  = "For your security, please only pay through our secure payment link or at reception. We never ask for card details by email."
	PriorityReviewLine = "Your message has been flagged for priority review and a manager will follow up with you personally."
)

// RefundOfferPhrases may not appear in a reply about a non-refundable booking.
var RefundOfferPhrases = []string{
	"full refund",
	"we will refund",
	"you will be refunded",
	"refund will be issued",
	"free cancellation",
}

var (
	nonRefundablePattern = regexp.MustCompile(`(?i)\b(?:non[-\s]?refundable|not\s+refundable|no\s+refunds?|non\s+rimborsabile|no\s+reembolsable)\b`)
	refundablePattern    = regexp.MustCompile(`(?i)\b(?:refundable|refunds?|free\s+cancellation|money\s+back|rimborso|reembolso)\b`)
	disputePattern       = regexp.MustCompile(`(?i)\b(?:dispute|disputed|chargeback|complaint|unacceptable|overcharged|double\s+charged|contest(?:ing)?\s+the\s+charge)\b`)
)

// Decide applies every rule independently and merges the results. The review
// tier is the highest one any trigger asks for.
func Decide(in Input) Decision {
	cat := category.Normalize(in.Category)
	text := in.NormalizedText
	if strings.TrimSpace(text) == "" && in.Intents != nil {
		text = intentText(in.Intents)
	}

	d := Decision{
		MandatoryContent:  []string{},
		ProhibitedContent: []string{},
		ToneConstraints:   append([]string{}, toneTable[cat]...),
		ReviewTier:        ReviewStandard,
		TemplateConstraints: TemplateConstraints{
			AllowedCategories: append([]string{}, allowedTable[cat]...),
		},
	}

	if cat == category.Cancellation {
		switch {
		case nonRefundablePattern.MatchString(text):
			d.MandatoryContent = append(d.MandatoryContent, NonRefundableLine)
			d.ProhibitedContent = append(d.ProhibitedContent, RefundOfferPhrases...)
		case refundablePattern.MatchString(text):
			d.MandatoryContent = append(d.MandatoryContent, RefundableLine)
		}
	}
	if cat == category.Payment || cat == category.Prepayment {
		d.MandatoryContent = append(d.MandatoryContent, SecurePaymentLine)
	}

	tier := ReviewStandard
	switch in.EscalationTier {
	case interpret.EscalationCritical:
		tier = maxTier(tier, ReviewOwner)
	case interpret.EscalationHigh:
		tier = maxTier(tier, ReviewMandatory)
	}
	if disputePattern.MatchString(text) {
		tier = maxTier(tier, ReviewMandatory)
	}
	if tier != ReviewStandard {
		d.MandatoryContent = append(d.MandatoryContent, PriorityReviewLine)
		d.ToneConstraints = append(d.ToneConstraints, "calm and de-escalating", "no admission of liability")
	}
	d.ReviewTier = tier

	d.MandatoryContent = dedupe(d.MandatoryContent)
	d.ProhibitedContent = dedupe(d.ProhibitedContent)
	d.ToneConstraints = dedupe(d.ToneConstraints)
	return d
}

func intentText(in *interpret.Intents) string {
	var parts []string
	for _, group := range [][]interpret.Intent{in.Questions, in.Requests, in.Confirmations} {
		for _, i := range group {
			parts = append(parts, i.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func maxTier(a, b ReviewTier) ReviewTier {
	if tierRank[b] > tierRank[a] {
		return b
	}
	return a
}

func dedupe(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key := strings.ToLower(strings.Join(strings.Fields(line), " "))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, line)
	}
	return out
}
