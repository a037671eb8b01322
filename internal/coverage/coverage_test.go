package coverage

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateStatuses(t *testing.T) {
	body := "Breakfast is served on the terrace from 8:00. Luggage can be stored at reception."
	got := Evaluate(body, Questions(
		"What time is breakfast served?",
		"Can we store our bags after checkout?",
		"Do you have parking for a camper?",
		"Is it ok?",
	))
	require.Len(t, got, 4)

	assert.Equal(t, StatusCovered, got[0].Status)
	assert.Equal(t, 2, got[0].RequiredMatches)
	assert.Equal(t, []string{"breakfast", "served"}, got[0].MatchedKeywords)
	assert.Equal(t, []string{"time"}, got[0].MissingKeywords)
	assert.InDelta(t, 0.667, got[0].CoverageScore, 1e-9)

	assert.Equal(t, StatusCovered, got[1].Status)
	assert.ElementsMatch(t, []string{"store", "bags"}, got[1].MatchedKeywords)

	assert.Equal(t, StatusMissing, got[2].Status)
	assert.Zero(t, got[2].CoverageScore)

	assert.Equal(t, StatusCovered, got[3].Status)
	assert.Equal(t, 1.0, got[3].CoverageScore)
	assert.Empty(t, got[3].MatchedKeywords)
}

func TestEvaluatePartial(t *testing.T) {
	got := Evaluate("We have a shared kitchen.", Questions("Is there a kitchen and laundry?"))
	require.Len(t, got, 1)
	assert.Equal(t, StatusPartial, got[0].Status)
	assert.Equal(t, 0.5, got[0].CoverageScore)

	single := Evaluate("There is a laundry room.", Questions("Laundry?"))
	assert.Equal(t, 1, single[0].RequiredMatches)
	assert.Equal(t, StatusCovered, single[0].Status)

	c, p, m := Summary(append(got, single...))
	assert.Equal(t, []int{1, 1, 0}, []int{c, p, m})
}

func TestEvaluateStatusAgreesWithCounts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("status follows matched count and required matches", prop.ForAll(
		func(bodyWords []string, questionWords []string) bool {
			body := strings.Join(bodyWords, " ")
			question := strings.Join(questionWords, " ") + "?"
			qc := Evaluate(body, Questions(question))[0]
			if qc.CoverageScore < 0 || qc.CoverageScore > 1 {
				return false
			}
			total := len(qc.MatchedKeywords) + len(qc.MissingKeywords)
			if total > MaxKeywords {
				return false
			}
			if total == 0 {
				return qc.Status == StatusCovered && qc.CoverageScore == 1
			}
			switch {
			case len(qc.MatchedKeywords) >= qc.RequiredMatches:
				return qc.Status == StatusCovered
			case len(qc.MatchedKeywords) > 0:
				return qc.Status == StatusPartial
			default:
				return qc.Status == StatusMissing
			}
		},
		gen.SliceOf(oneOf("breakfast", "terrace", "luggage", "wifi", "parking", "towels", "the", "at")),
		gen.SliceOf(oneOf("breakfast", "internet", "bags", "parking", "kitchen", "what", "is", "towel")),
	))

	properties.TestingRun(t)
}

// oneOf generates one of words as a string.
func oneOf(words ...string) gopter.Gen {
	return gen.IntRange(0, len(words)-1).Map(func(i int) string { return words[i] })
}
