package templates

import (
	"math"
	"sort"
	"strings"

	"guestmail/internal/category"
	"guestmail/internal/textmatch"
)

const (
	maxQueryKeywords = 10
	maxCandidates    = 5

	keywordWeight    = 0.7
	categoryWeight   = 0.3
	prepaymentWeight = 0.2
)

// Rank scores every template against the query and decides whether the best
// one can be used without review. Candidates keep corpus order on ties.
func Rank(corpus []EmailTemplate, q Query, th Thresholds) RankResult {
	keywords := textmatch.ExtractKeywords(strings.TrimSpace(q.Subject+"\n"+q.Body), maxQueryKeywords)
	hint := category.Normalize(q.CategoryHint)

	candidates := make([]Candidate, 0, len(corpus))
	for _, t := range corpus {
		idx := textmatch.NewIndex(t.Subject + "\n" + t.Body)
		matched, _ := textmatch.MatchedKeywords(idx, keywords)

		score := 0.0
		if len(keywords) > 0 {
			score += keywordWeight * float64(len(matched)) / float64(len(keywords))
		}
		tc := category.Normalize(t.Category)
		evidence := append([]string{}, matched...)
		if strings.TrimSpace(q.CategoryHint) != "" && tc == hint {
			score += categoryWeight
			evidence = append(evidence, "category:"+string(tc))
		}
		if tc == category.Prepayment && prepaymentMatch(idx, t, q) {
			score += prepaymentWeight
			evidence = append(evidence, "prepayment")
		}
		score = round3(math.Min(score, 1))
		if score <= 0 {
			continue
		}
		candidates = append(candidates, Candidate{Template: t, Confidence: score, Evidence: evidence})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > maxCandidates {
		candidates = candidates[:maxCandidates]
	}

	result := RankResult{Selection: SelectionNone, Candidates: candidates}
	if len(candidates) == 0 {
		return result
	}
	top := candidates[0].Confidence
	result.Confidence = top
	lead := top
	if len(candidates) > 1 {
		lead = top - candidates[1].Confidence
	}
	switch {
	case top >= th.Auto && lead >= th.Margin-1e-9:
		result.Selection = SelectionAuto
	case top >= th.Floor:
		result.Selection = SelectionManual
	}
	return result
}

// prepaymentMatch reports whether a prepayment template speaks to the
// requested step or payment provider.
func prepaymentMatch(idx *textmatch.Index, t EmailTemplate, q Query) bool {
	for _, want := range []string{q.PrepaymentStep, q.PrepaymentProvider} {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		if strings.Contains(strings.ToLower(t.TemplateID), strings.ToLower(want)) || idx.Match(want) {
			return true
		}
	}
	return false
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
