package interpret

import (
	"regexp"
	"unicode"
)

var negationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi\s+(?:do\s+not|don['’]?t|cannot|can['’]?t)\s+(?:agree|accept)\b`),
	regexp.MustCompile(`(?i)\bi\s+disagree\b`),
	regexp.MustCompile(`(?i)\bi\s+refuse\b`),
	regexp.MustCompile(`(?i)\bnot\s+agreed?\b`),
	regexp.MustCompile(`(?i)\bnon\s+(?:sono\s+)?d['’]accordo\b`),
	regexp.MustCompile(`(?i)\bnon\s+accetto\b`),
	regexp.MustCompile(`(?i)\bno\s+estoy\s+de\s+acuerdo\b`),
	regexp.MustCompile(`(?i)\bno\s+acepto\b`),
}

var explicitAgreementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi\s+confirm\s+(?:that\s+)?(?:i\s+)?(?:agree|accept)\b`),
	regexp.MustCompile(`(?i)\bi\s+(?:fully\s+)?agree\b(?:\s+(?:to|with)\s+the\s+(?:terms|conditions|policy)(?:\s+and\s+conditions)?)?`),
	regexp.MustCompile(`(?i)\bi\s+accept\b(?:\s+the\s+(?:terms|conditions|policy)(?:\s+and\s+conditions)?)?`),
	regexp.MustCompile(`(?i)\bagreed\b`),
	regexp.MustCompile(`(?i)\b(?:sono\s+)?d['’]accordo\b`),
	regexp.MustCompile(`(?i)\baccetto\b(?:\s+i\s+termini)?`),
	regexp.MustCompile(`(?i)\bestoy\s+de\s+acuerdo\b`),
	regexp.MustCompile(`(?i)\bacepto\b(?:\s+los\s+terminos)?`),
}

var contrastPattern = regexp.MustCompile(`(?i)\b(?:but|however|ma|pero)\b|\bperò`)

var standalonePattern = regexp.MustCompile(`(?i)^\s*(yes|ok|okay)[\s.!,]*$`)

// DetectAgreement resolves agreement in four steps: any negation wins, then
// explicit agreement with or without a contrast word, then a bare yes/ok.
func DetectAgreement(text string, lang Language) Agreement {
	result := Agreement{
		Status:           AgreementNone,
		EvidenceSpans:    []EvidenceSpan{},
		DetectedLanguage: lang,
	}

	if spans := findSpans(negationPatterns, text, true); len(spans) > 0 {
		result.EvidenceSpans = spans
		result.AdditionalContent = hasAdditionalContent(text, spans)
		return result
	}

	if spans := findSpans(explicitAgreementPatterns, text, false); len(spans) > 0 {
		result.EvidenceSpans = spans
		result.AdditionalContent = hasAdditionalContent(text, spans)
		if contrastPattern.MatchString(text) {
			result.Status = AgreementLikely
			result.Confidence = 60
			result.RequiresHumanConfirmation = true
			return result
		}
		result.Status = AgreementConfirmed
		result.Confidence = 90
		return result
	}

	if m := standalonePattern.FindStringSubmatchIndex(text); m != nil {
		span := EvidenceSpan{Text: text[m[2]:m[3]], Position: m[2]}
		result.Status = AgreementUnclear
		result.Confidence = 40
		result.RequiresHumanConfirmation = true
		result.EvidenceSpans = []EvidenceSpan{span}
		result.AdditionalContent = hasAdditionalContent(text, result.EvidenceSpans)
	}
	return result
}

func findSpans(patterns []*regexp.Regexp, text string, negated bool) []EvidenceSpan {
	var spans []EvidenceSpan
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if overlaps(spans, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, EvidenceSpan{
				Text:      text[loc[0]:loc[1]],
				Position:  loc[0],
				IsNegated: negated,
			})
		}
	}
	return spans
}

func overlaps(spans []EvidenceSpan, start, end int) bool {
	for _, s := range spans {
		if start < s.Position+len(s.Text) && s.Position < end {
			return true
		}
	}
	return false
}

// hasAdditionalContent reports whether anything but punctuation and space is
// left once the matched phrases are cut out.
func hasAdditionalContent(text string, spans []EvidenceSpan) bool {
	remaining := []byte(text)
	for _, s := range spans {
		for i := s.Position; i < s.Position+len(s.Text) && i < len(remaining); i++ {
			remaining[i] = ' '
		}
	}
	for _, r := range string(remaining) {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			continue
		}
		return true
	}
	return false
}
