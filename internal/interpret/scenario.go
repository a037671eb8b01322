package interpret

import (
	"regexp"
	"strings"
)

type scenarioRule struct {
	category   string
	confidence float64
	re         *regexp.Regexp
}

// Order matters: the first rule that matches decides the category.
var scenarioRules = []scenarioRule{
	{"payment", 0.8, regexp.MustCompile(`(?i)\b(?:payment|pay|paid|paying|credit\s+card|debit\s+card|card|deposit|prepayment|pre-payment|charged?|invoice|receipt|bank\s+transfer|pagamento|pagare|pago|tarjeta|carta\s+di\s+credito)\b`)},
	{"cancellation", 0.8, regexp.MustCompile(`(?i)\b(?:cancel|cancell?ation|cancell?ed|refunds?|refundable|non-refundable|annullare|annullamento|cancelar|cancelacion|rimborso|reembolso)\b`)},
	{"policy", 0.75, regexp.MustCompile(`(?i)\b(?:policy|policies|rules|terms|conditions|age\s+limit|pets?|smoking|quiet\s+hours|curfew|id\s+card|passport|regolamento|normas)\b`)},
	{"faq", 0.7, regexp.MustCompile(`(?i)\b(?:breakfast|wi-?fi|internet|check-?in|check\s+in|check-?out|check\s+out|luggage|baggage|parking|towels?|kitchen|laundry|bus|ferry|airport|transfer|directions|beach|terrace|bar|lockers?|colazione|desayuno)\b`)},
}

const (
	defaultScenario           = "general"
	defaultScenarioConfidence = 0.6
)

// ClassifyScenario returns the first matching scenario with its fixed score.
func ClassifyScenario(text string) Scenario {
	for _, rule := range scenarioRules {
		if rule.re.MatchString(text) {
			return Scenario{Category: rule.category, Confidence: rule.confidence}
		}
	}
	return Scenario{Category: defaultScenario, Confidence: defaultScenarioConfidence}
}

var (
	prepaymentPattern     = regexp.MustCompile(`(?i)\b(?:prepayment|pre-payment|deposit|payment\s+link|pay\s+now|advance\s+payment|caparra|anticipo|pago\s+por\s+adelantado)\b`)
	termsPattern          = regexp.MustCompile(`(?i)\b(?:terms|conditions|termini|condizioni|terminos|condiciones)\b`)
	bookingMonitorPattern = regexp.MustCompile(`(?i)\b(?:(?:booking|reservation)\s+status|(?:modify|change|check|update)\s+(?:my|the|our)\s+(?:booking|reservation|dates)|booking\s+reference|confirmation\s+number)\b`)
)

func detectTriggers(text string, agreement Agreement) WorkflowTriggers {
	return WorkflowTriggers{
		Prepayment:         prepaymentPattern.MatchString(text),
		TermsAndConditions: agreement.Status != AgreementNone || termsPattern.MatchString(text),
		BookingMonitor:     bookingMonitorPattern.MatchString(text),
	}
}

var (
	criticalPattern = regexp.MustCompile(`(?i)\b(?:legal\s+action|lawyer|attorney|sue|police|chargeback|injur(?:y|ed|ies)|theft|stolen|emergency|assault(?:ed)?|avvocato|polizia|abogado|policia|denuncia)\b`)
	highPattern     = regexp.MustCompile(`(?i)\b(?:complaint|complain(?:ing)?|dispute|unacceptable|overcharged|double\s+charged|manager|bad\s+review|refund\s+immediately|terrible|disgusting|dirty|reclamo|lamentela|inaccettabile|inaceptable)\b`)
)

// DetectEscalation collects escalation triggers. Any critical trigger makes
// the tier CRITICAL, otherwise any high trigger makes it HIGH.
func DetectEscalation(text string) Escalation {
	esc := Escalation{Tier: EscalationNone, Triggers: []string{}}
	critical := uniqueLower(criticalPattern.FindAllString(text, -1))
	high := uniqueLower(highPattern.FindAllString(text, -1))
	switch {
	case len(critical) > 0:
		esc.Tier = EscalationCritical
		esc.Confidence = 0.9
	case len(high) > 0:
		esc.Tier = EscalationHigh
		esc.Confidence = 0.75
	default:
		esc.Confidence = 1
	}
	esc.Triggers = append(esc.Triggers, critical...)
	esc.Triggers = append(esc.Triggers, high...)
	return esc
}

func uniqueLower(matches []string) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.ToLower(strings.Join(strings.Fields(m), " "))
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
