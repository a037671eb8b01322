package interpret

import (
	"regexp"
	"strings"
)

var sentenceBreak = regexp.MustCompile(`[.!\n]+`)

var requestPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bplease\s+[^.!?\n]+`),
	regexp.MustCompile(`(?i)\b(?:can|could|would)\s+you\s+[^.!?\n]+`),
	regexp.MustCompile(`(?i)\bi\s+would\s+like\s+[^.!?\n]+`),
}

var confirmationPatterns = []struct {
	keyword string
	re      *regexp.Regexp
}{
	{"confirmed", regexp.MustCompile(`(?i)\bconfirmed\b`)},
	{"i confirm", regexp.MustCompile(`(?i)\bi\s+confirm\b`)},
	{"yes", regexp.MustCompile(`(?i)\byes\b`)},
	{"okay", regexp.MustCompile(`(?i)\bokay\b`)},
	{"ok", regexp.MustCompile(`(?i)\bok\b`)},
}

// ExtractQuestions returns every "?"-terminated segment, cut back to its last
// sentence fragment and re-suffixed with "?".
func ExtractQuestions(text string) []Intent {
	segments := strings.Split(text, "?")
	if len(segments) < 2 {
		return []Intent{}
	}
	questions := make([]Intent, 0, len(segments)-1)
	for _, seg := range segments[:len(segments)-1] {
		parts := sentenceBreak.Split(seg, -1)
		fragment := strings.TrimSpace(parts[len(parts)-1])
		if fragment == "" {
			continue
		}
		questions = append(questions, Intent{Text: fragment + "?"})
	}
	return questions
}

func extractIntents(text string) Intents {
	intents := Intents{
		Questions:     ExtractQuestions(text),
		Requests:      []Intent{},
		Confirmations: []Intent{},
	}
	for _, re := range requestPatterns {
		if m := re.FindString(text); m != "" {
			intents.Requests = append(intents.Requests, Intent{Text: strings.TrimSpace(m)})
			break
		}
	}
	for _, cp := range confirmationPatterns {
		if cp.re.MatchString(text) {
			intents.Confirmations = append(intents.Confirmations, Intent{Text: cp.keyword})
		}
	}
	return intents
}
