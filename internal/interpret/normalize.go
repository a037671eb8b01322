package interpret

import (
	"regexp"
	"strings"
	"unicode"

	"guestmail/internal/textmatch"
)

var (
	wroteLinePattern       = regexp.MustCompile(`(?i)^on\s.+wrote:?$`)
	headerLinePattern      = regexp.MustCompile(`(?i)^(from|sent|to):\s*\S`)
	originalMessagePattern = regexp.MustCompile(`(?i)^-{2,}\s*original message\s*-{2,}`)
)

// NormalizeThread drops quoted lines and cuts the body at the first marker of
// a forwarded or replied-to message.
func NormalizeThread(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		if wroteLinePattern.MatchString(trimmed) ||
			headerLinePattern.MatchString(trimmed) ||
			originalMessagePattern.MatchString(trimmed) {
			break
		}
		kept = append(kept, strings.TrimRightFunc(line, unicode.IsSpace))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

var languageTriggers = []struct {
	lang  Language
	words map[string]struct{}
}{
	{LanguageEN, wordSet("the", "and", "you", "please", "thank", "thanks", "hello", "would", "could",
		"what", "when", "where", "how", "booking", "room", "arrive", "arrival", "is", "are", "we", "our")},
	{LanguageIT, wordSet("ciao", "grazie", "buongiorno", "buonasera", "prenotazione", "camera", "vorrei",
		"per", "favore", "quando", "dove", "siamo", "arrivo", "colazione", "salve", "della", "sono", "il", "che")},
	{LanguageES, wordSet("hola", "gracias", "reserva", "habitacion", "quiero", "por", "favor", "cuando",
		"donde", "como", "llegada", "desayuno", "somos", "estamos", "tengo", "puedo", "buenos", "el", "que")},
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// DetectLanguage counts trigger words per language. The highest count wins,
// ties go to EN, then IT, then ES. Text with no triggers is EN when it holds
// any Latin letter, otherwise UNKNOWN.
func DetectLanguage(text string) Language {
	counts := make([]int, len(languageTriggers))
	for _, w := range textmatch.Words(text) {
		for i, lt := range languageTriggers {
			if _, ok := lt.words[w]; ok {
				counts[i]++
			}
		}
	}
	best := -1
	for i, c := range counts {
		if c > 0 && (best < 0 || c > counts[best]) {
			best = i
		}
	}
	if best >= 0 {
		return languageTriggers[best].lang
	}
	for _, r := range text {
		if unicode.In(r, unicode.Latin) {
			return LanguageEN
		}
	}
	return LanguageUnknown
}
