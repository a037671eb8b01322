package quality

import (
	"regexp"
	"strings"

	"guestmail/internal/category"
	"guestmail/internal/textmatch"
)

// ProhibitedClaims are promises a draft must never make on its own.
var ProhibitedClaims = []string{
	"availability is confirmed",
	"availability confirmed",
	"we guarantee availability",
	"guaranteed availability",
	"will be charged immediately",
	"charged immediately",
	"we have charged your card",
	"immediate charge",
}

// SignatureMarkers identify a plain-text sign-off.
var SignatureMarkers = []string{
	"best regards",
	"kind regards",
	"warm regards",
	"hostel brikette",
	"brikette team",
}

var signatureImagePattern = regexp.MustCompile(`(?is)<img[^>]*signature[^>]*>`)

// HasSignature reports whether either body carries a signature.
func HasSignature(plain, html string) bool {
	if containsAny(plain, SignatureMarkers) {
		return true
	}
	return signatureImagePattern.MatchString(html)
}

var contradictionCues = []string{
	"cannot provide",
	"can't provide",
	"can not provide",
	"not available",
	"unavailable",
	"no longer available",
	"unable to",
	"cannot offer",
	"not possible",
	"not included",
	"we do not offer",
	"we don't offer",
}

// cueVocabulary words belong to the cues themselves and never identify what
// was promised.
var cueVocabulary = map[string]struct{}{
	"available": {}, "included": {}, "include": {}, "provide": {}, "offer": {},
	"possible": {}, "unable": {}, "guaranteed": {}, "guarantee": {}, "free": {},
	"charge": {}, "complimentary": {},
}

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

// contradictsCommitments flags a sentence that pairs a contradiction cue with
// a keyword from something staff already promised, or a
// "<keyword> is/are/was not available" statement.
func contradictsCommitments(body string, commitments []string) bool {
	if len(commitments) == 0 {
		return false
	}
	var keywords []string
	for _, c := range commitments {
		for _, kw := range textmatch.ExtractKeywords(c, 8) {
			if _, ok := cueVocabulary[kw]; !ok {
				keywords = append(keywords, kw)
			}
		}
	}
	if len(keywords) == 0 {
		return false
	}

	for _, sentence := range sentenceSplit.Split(body, -1) {
		lower := normalizeSpace(sentence)
		if lower == "" || !containsCue(lower) {
			continue
		}
		idx := textmatch.NewIndex(lower)
		for _, kw := range keywords {
			if idx.Match(kw) {
				return true
			}
		}
	}

	folded := textmatch.Fold(body)
	for _, kw := range keywords {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(kw) + `\s+(?:is|are|was)\s+not\s+available\b`)
		if err == nil && re.MatchString(folded) {
			return true
		}
	}
	return false
}

func containsCue(lower string) bool {
	for _, cue := range contradictionCues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

type lengthBand struct {
	min, max int
}

var lengthBands = map[category.Category]lengthBand{
	category.FAQ:            {50, 100},
	category.CheckIn:        {50, 100},
	category.Transportation: {50, 100},
	category.Policy:         {100, 150},
	category.Payment:        {100, 150},
	category.Prepayment:     {100, 150},
	category.Cancellation:   {80, 140},
	category.BookingChanges: {80, 140},
	category.BookingIssues:  {80, 140},
	category.General:        {50, 140},
}

// outOfRange reports a word count outside the category band widened by 20%
// on each side.
func outOfRange(body, rawCategory string) bool {
	band, ok := lengthBands[category.Normalize(rawCategory)]
	if !ok {
		return false
	}
	words := len(strings.Fields(body))
	return float64(words) < float64(band.min)*0.8 || float64(words) > float64(band.max)*1.2
}
