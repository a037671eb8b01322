// Package textmatch holds the keyword vocabulary shared by ranking, coverage
// evaluation and quality checks. Every consumer matches through this package
// so that a keyword counts the same way everywhere.
package textmatch

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases text and strips diacritics ("Città" -> "citta").
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		folded = text
	}
	folded = strings.ReplaceAll(folded, "’", "'")
	return strings.ToLower(folded)
}

// Words splits folded text into letter/digit runs. Hyphens and apostrophes
// inside a word are kept ("check-in", "don't").
func Words(text string) []string {
	folded := Fold(text)
	var words []string
	var b strings.Builder
	flush := func() {
		w := strings.Trim(b.String(), "-'")
		if w != "" {
			words = append(words, w)
		}
		b.Reset()
	}
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case (r == '-' || r == '\'') && b.Len() > 0:
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}

// Tokenize returns the match tokens for text: every word plus the parts of
// hyphenated words, so "check-in" yields "check-in", "check" and "in".
func Tokenize(text string) []string {
	words := Words(text)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		tokens = append(tokens, w)
		if strings.Contains(w, "-") {
			for _, part := range strings.Split(w, "-") {
				if part != "" {
					tokens = append(tokens, part)
				}
			}
		}
	}
	return tokens
}

// Stem reduces a token to its English stem. Tokens the stemmer rejects are
// returned unchanged.
func Stem(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return ""
	}
	stemmed, err := snowball.Stem(token, "english", true)
	if err != nil || stemmed == "" {
		return token
	}
	return stemmed
}

// ExtractKeywords returns up to max distinct keywords from text, in order of
// first appearance. Keywords are lowercase, longer than two characters and not
// stop words.
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var keywords []string
	for _, w := range Words(text) {
		w = strings.Trim(w, "'")
		if len([]rune(w)) <= 2 || IsStopWord(w) {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
		if len(keywords) == max {
			break
		}
	}
	return keywords
}
