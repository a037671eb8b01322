// Package coverage measures how well a draft body answers each guest question.
package coverage

import (
	"math"

	"guestmail/internal/textmatch"
)

// MaxKeywords caps the keywords extracted per question.
const MaxKeywords = 5

type Status string

const (
	StatusCovered Status = "covered"
	StatusPartial Status = "partial"
	StatusMissing Status = "missing"
)

type Question struct {
	Text string `json:"text"`
}

// QuestionCoverage is the verdict for one question.
type QuestionCoverage struct {
	Question        string   `json:"question"`
	MatchedKeywords []string `json:"matched_keywords"`
	MissingKeywords []string `json:"missing_keywords"`
	CoverageScore   float64  `json:"coverage_score"`
	Status          Status   `json:"status"`
	RequiredMatches int      `json:"required_matches"`
}

// Questions wraps plain texts as Questions.
func Questions(texts ...string) []Question {
	out := make([]Question, 0, len(texts))
	for _, t := range texts {
		out = append(out, Question{Text: t})
	}
	return out
}

// Evaluate scores every question against body. A question with at least two
// keywords needs two matches to count as covered, otherwise one. A question
// with no usable keywords is covered.
func Evaluate(body string, questions []Question) []QuestionCoverage {
	idx := textmatch.NewIndex(body)
	out := make([]QuestionCoverage, 0, len(questions))
	for _, q := range questions {
		out = append(out, evaluateOne(idx, q))
	}
	return out
}

func evaluateOne(idx *textmatch.Index, q Question) QuestionCoverage {
	keywords := textmatch.ExtractKeywords(q.Text, MaxKeywords)
	qc := QuestionCoverage{
		Question:        q.Text,
		MatchedKeywords: []string{},
		MissingKeywords: []string{},
	}
	if len(keywords) == 0 {
		qc.CoverageScore = 1
		qc.Status = StatusCovered
		qc.RequiredMatches = 1
		return qc
	}

	matched, missing := textmatch.MatchedKeywords(idx, keywords)
	qc.MatchedKeywords = append(qc.MatchedKeywords, matched...)
	qc.MissingKeywords = append(qc.MissingKeywords, missing...)
	qc.RequiredMatches = 1
	if len(keywords) >= 2 {
		qc.RequiredMatches = 2
	}
	qc.CoverageScore = math.Round(float64(len(matched))/float64(len(keywords))*1000) / 1000
	switch {
	case len(matched) >= qc.RequiredMatches:
		qc.Status = StatusCovered
	case len(matched) > 0:
		qc.Status = StatusPartial
	default:
		qc.Status = StatusMissing
	}
	return qc
}

// Summary counts entries per status.
func Summary(entries []QuestionCoverage) (covered, partial, missing int) {
	for _, e := range entries {
		switch e.Status {
		case StatusCovered:
			covered++
		case StatusPartial:
			partial++
		case StatusMissing:
			missing++
		}
	}
	return covered, partial, missing
}
