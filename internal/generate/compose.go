package generate

import (
	"regexp"
	"strings"
	"unicode"

	"guestmail/internal/policy"
)

// GenericFallback is the body used when no template can be selected.
const GenericFallback = "Thank you for your email. We have received your message and a member of our team will reply with the details shortly."

const signOff = "Best regards,"

var (
	greetingLine = regexp.MustCompile(`(?i)^(?:dear|hi|hello|hey|good\s+(?:morning|afternoon|evening)|gentile|caro|cara|ciao|buongiorno|estimad[oa]|hola)\b[^\n]{0,60}[,!:]?$`)
	signOffLine  = regexp.MustCompile(`(?i)^(?:best|kind|warm|warmest)\s+regards\b|^regards\b|^(?:many\s+)?thanks(?:\s+again)?\s*[,!.]?$|^thank\s+you\s*[,!.]?$|^sincerely\b|^cheers\b|^cordiali\s+saluti\b|^saludos\b`)
	blankRun     = regexp.MustCompile(`\n{3,}`)
)

// templateParagraphs strips a template's own greeting and sign-off and splits
// what is left into paragraphs.
func templateParagraphs(body string) []string {
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start < len(lines) && greetingLine.MatchString(strings.TrimSpace(lines[start])) {
		start++
	}
	end := len(lines)
	for i := start; i < len(lines); i++ {
		if signOffLine.MatchString(strings.TrimSpace(lines[i])) {
			end = i
			break
		}
	}
	return splitParagraphs(strings.Join(lines[start:end], "\n"))
}

func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		var kept []string
		for _, line := range strings.Split(block, "\n") {
			if line = strings.TrimRightFunc(line, unicode.IsSpace); strings.TrimSpace(line) != "" {
				kept = append(kept, line)
			}
		}
		if len(kept) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(kept, "\n")))
		}
	}
	return out
}

// dedupeParagraphs keeps the first occurrence of each paragraph, comparing
// case- and whitespace-insensitively.
func dedupeParagraphs(paragraphs []string) []string {
	seen := make(map[string]struct{}, len(paragraphs))
	out := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		key := normalize(p)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// applyPolicy drops sentences that carry a prohibited phrase and appends the
// mandatory lines that are not already present.
func applyPolicy(paragraphs []string, d policy.Decision) []string {
	out := make([]string, 0, len(paragraphs)+len(d.MandatoryContent))
	for _, p := range paragraphs {
		if len(d.ProhibitedContent) > 0 {
			p = dropProhibited(p, d.ProhibitedContent)
		}
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	body := normalize(strings.Join(out, "\n"))
	for _, line := range d.MandatoryContent {
		if !strings.Contains(body, normalize(line)) {
			out = append(out, line)
			body += " " + normalize(line)
		}
	}
	return out
}

func dropProhibited(paragraph string, prohibited []string) string {
	var kept []string
	for _, sentence := range splitSentences(paragraph) {
		if !containsProhibited(sentence, prohibited) {
			kept = append(kept, sentence)
		}
	}
	return strings.Join(kept, " ")
}

func containsProhibited(text string, prohibited []string) bool {
	n := normalize(text)
	for _, phrase := range prohibited {
		if p := normalize(phrase); p != "" && strings.Contains(n, p) {
			return true
		}
	}
	return false
}

// splitSentences splits after ., ! or ? when followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return strings.TrimSpace(blankRun.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
