package signals

import "strings"

// JoinedEvent pairs a selection with the refinement of the same draft.
type JoinedEvent struct {
	DraftID    string          `json:"draft_id"`
	Selection  SelectionEvent  `json:"selection"`
	Refinement RefinementEvent `json:"refinement"`
}

// JoinEvents pairs selections and refinements by draft id, in selection
// order. Drafts missing either side are dropped. Only the first selection and
// the first refinement seen for a draft id are used.
func JoinEvents(selections []SelectionEvent, refinements []RefinementEvent) []JoinedEvent {
	firstRefinement := make(map[string]RefinementEvent, len(refinements))
	for _, r := range refinements {
		if _, ok := firstRefinement[r.DraftID]; !ok {
			firstRefinement[r.DraftID] = r
		}
	}
	joined := make([]JoinedEvent, 0, len(selections))
	seen := make(map[string]struct{}, len(selections))
	for _, sel := range selections {
		if _, ok := seen[sel.DraftID]; ok {
			continue
		}
		ref, ok := firstRefinement[sel.DraftID]
		if !ok {
			continue
		}
		seen[sel.DraftID] = struct{}{}
		joined = append(joined, JoinedEvent{DraftID: sel.DraftID, Selection: sel, Refinement: ref})
	}
	return joined
}

// EditDistancePct is the word-level Levenshtein distance between a and b
// divided by the longer word count. Two empty texts are identical; an empty
// text against a non-empty one is fully different.
func EditDistancePct(a, b string) float64 {
	ta := strings.Fields(a)
	tb := strings.Fields(b)
	longest := max(len(ta), len(tb))
	if longest == 0 {
		return 0
	}
	if len(ta) == 0 || len(tb) == 0 {
		return 1
	}
	return float64(levenshtein(ta, tb)) / float64(longest)
}

func levenshtein(a, b []string) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
