package textmatch

import "strings"

// Index is a pre-tokenized body that keywords are matched against.
type Index struct {
	tokens map[string]struct{}
	stems  map[string]struct{}
	// padded holds the space-joined tokens with a leading and trailing space
	// so phrases match on word boundaries.
	padded string
}

// NewIndex tokenizes and stems text once for repeated matching.
func NewIndex(text string) *Index {
	tokens := Tokenize(text)
	idx := &Index{
		tokens: make(map[string]struct{}, len(tokens)),
		stems:  make(map[string]struct{}, len(tokens)),
	}
	for _, tok := range tokens {
		idx.tokens[tok] = struct{}{}
		idx.stems[Stem(tok)] = struct{}{}
	}
	idx.padded = " " + strings.Join(Words(text), " ") + " "
	return idx
}

// Empty reports whether the indexed text had no tokens.
func (idx *Index) Empty() bool {
	return idx == nil || len(idx.tokens) == 0
}

// Match is shorthand for MatchKeyword(idx, keyword).
func (idx *Index) Match(keyword string) bool {
	return MatchKeyword(idx, keyword)
}

// MatchKeyword reports whether the indexed text contains the keyword, one of
// its stems, or one of its declared synonyms.
func MatchKeyword(idx *Index, keyword string) bool {
	if idx.Empty() {
		return false
	}
	for _, candidate := range ExpandSynonyms(keyword) {
		if idx.matchTerm(candidate) {
			return true
		}
	}
	return false
}

func (idx *Index) matchTerm(term string) bool {
	words := Words(term)
	switch len(words) {
	case 0:
		return false
	case 1:
		w := words[0]
		if _, ok := idx.tokens[w]; ok {
			return true
		}
		_, ok := idx.stems[Stem(w)]
		return ok
	default:
		return strings.Contains(idx.padded, " "+strings.Join(words, " ")+" ")
	}
}

// MatchedKeywords splits keywords into those matched by the index and those not.
func MatchedKeywords(idx *Index, keywords []string) (matched, missing []string) {
	for _, kw := range keywords {
		if MatchKeyword(idx, kw) {
			matched = append(matched, kw)
		} else {
			missing = append(missing, kw)
		}
	}
	return matched, missing
}
