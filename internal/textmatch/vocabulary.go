package textmatch

import "sort"

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"the", "and", "are", "for", "you", "your", "yours", "with", "this", "that",
		"these", "those", "there", "their", "they", "them", "what", "when", "where",
		"which", "who", "whom", "why", "how", "can", "could", "would", "should",
		"will", "shall", "may", "might", "must", "does", "did", "doing", "done",
		"have", "has", "had", "having", "was", "were", "been", "being", "not",
		"but", "from", "into", "onto", "about", "any", "all", "some", "our", "ours",
		"out", "off", "over", "under", "again", "then", "than", "too", "very",
		"just", "also", "only", "own", "same", "such", "more", "most", "other",
		"each", "few", "both", "here", "hello", "dear", "thanks", "thank", "please",
		"regards", "best", "kind", "hi", "hey", "get", "got", "let", "know",
		"like", "want", "need", "much", "many", "yes", "okay", "its", "it's",
		"i'm", "i'd", "we're", "you're", "don't", "doesn't", "isn't", "aren't",
		"there's", "what's", "is", "it", "we", "us", "me", "my", "mine", "he",
		"she", "his", "her", "him", "an", "a", "of", "to", "in", "on", "at", "by",
		"or", "if", "so", "do", "be", "am", "as", "no", "up", "still",
		// Italian / Spanish fillers that would otherwise become keywords.
		"per", "con", "che", "una", "del", "della", "delle", "sono", "grazie",
		"buongiorno", "ciao", "por", "para", "los", "las", "una", "que", "como",
		"gracias", "hola", "favor", "favore",
	} {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether the folded word is in the fixed stop-word set.
func IsStopWord(word string) bool {
	_, ok := stopWords[Fold(word)]
	return ok
}

// synonymGroups lists words and phrases that answer for each other. Matching
// is symmetric: any member of a group satisfies any other member.
var synonymGroups = [][]string{
	{"check-in", "checkin", "arrival", "arrive", "arriving"},
	{"check-out", "checkout", "departure", "leave", "leaving"},
	{"breakfast", "morning meal", "colazione", "desayuno"},
	{"wifi", "wi-fi", "internet", "wireless"},
	{"luggage", "baggage", "bags", "suitcase", "suitcases", "backpack"},
	{"storage", "store", "deposit room", "left luggage"},
	{"parking", "car park", "park"},
	{"refund", "reimbursement", "money back", "rimborso", "reembolso"},
	{"cancel", "cancellation", "cancelled", "canceled", "annullare", "cancelar"},
	{"price", "cost", "rate", "fee", "charge", "prezzo", "precio"},
	{"payment", "pay", "paid", "prepayment", "pagamento", "pago"},
	{"booking", "reservation", "reserve", "prenotazione", "reserva"},
	{"towel", "towels", "linen", "sheets"},
	{"kitchen", "cooking", "cook"},
	{"transport", "transportation", "bus", "shuttle", "ferry", "taxi", "transfer"},
	{"airport", "naples airport", "aeroporto"},
	{"room", "dorm", "dormitory", "bed", "camera", "habitacion"},
	{"time", "hour", "hours", "schedule", "times"},
	{"late", "after hours"},
	{"key", "keycard", "code"},
	{"terrace", "rooftop"},
	{"laundry", "washing"},
}

// Synonyms maps each vocabulary entry to every other entry of its group.
var Synonyms = buildSynonyms(synonymGroups)

var synonymKeys = sortedKeys(Synonyms)

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func buildSynonyms(groups [][]string) map[string][]string {
	out := make(map[string][]string)
	for _, group := range groups {
		for _, word := range group {
			key := Fold(word)
			for _, other := range group {
				o := Fold(other)
				if o == key || containsString(out[key], o) {
					continue
				}
				out[key] = append(out[key], o)
			}
		}
	}
	for key := range out {
		sort.Strings(out[key])
	}
	return out
}

// ExpandSynonyms returns the keyword followed by its declared synonyms.
func ExpandSynonyms(keyword string) []string {
	key := Fold(keyword)
	if key == "" {
		return nil
	}
	expanded := []string{key}
	if syns, ok := Synonyms[key]; ok {
		expanded = append(expanded, syns...)
		return expanded
	}
	// An inflected keyword ("towels", "arrived") picks up the group of any
	// vocabulary entry sharing its stem.
	stem := Stem(key)
	for _, entry := range synonymKeys {
		if Stem(entry) != stem {
			continue
		}
		for _, s := range append([]string{entry}, Synonyms[entry]...) {
			if !containsString(expanded, s) {
				expanded = append(expanded, s)
			}
		}
	}
	return expanded
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
