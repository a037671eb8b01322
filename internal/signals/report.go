package signals

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// NoTemplateKey groups selections that used no template.
const NoTemplateKey = "(none)"

// TemplateStats summarizes how drafts built from one template fared.
type TemplateStats struct {
	TemplateID          string  `json:"template_id"`
	Selections          int     `json:"selections"`
	Refined             int     `json:"refined"`
	RefinementRate      float64 `json:"refinement_rate"`
	MeanEditDistancePct float64 `json:"mean_edit_distance_pct"`
}

// Report is the calibration summary over a read of the signal log.
type Report struct {
	Selections  int             `json:"selections"`
	Refinements int             `json:"refinements"`
	Joined      int             `json:"joined"`
	Skipped     int             `json:"skipped"`
	BySelection map[string]int  `json:"by_selection"`
	Templates   []TemplateStats `json:"templates"`
}

// BuildReport counts selections per template and measures how much staff
// refinement changed those drafts.
func BuildReport(rr *ReadResult) Report {
	rep := Report{BySelection: map[string]int{}, Templates: []TemplateStats{}}
	if rr == nil {
		return rep
	}
	rep.Selections = len(rr.Selections)
	rep.Refinements = len(rr.Refinements)
	rep.Skipped = rr.Skipped

	stats := map[string]*TemplateStats{}
	distance := map[string]float64{}
	key := func(sel SelectionEvent) string {
		if sel.TemplateID == "" {
			return NoTemplateKey
		}
		return sel.TemplateID
	}
	for _, sel := range rr.Selections {
		rep.BySelection[sel.Selection]++
		k := key(sel)
		if stats[k] == nil {
			stats[k] = &TemplateStats{TemplateID: k}
		}
		stats[k].Selections++
	}

	joined := JoinEvents(rr.Selections, rr.Refinements)
	rep.Joined = len(joined)
	for _, j := range joined {
		if !j.Refinement.RefinementApplied {
			continue
		}
		k := key(j.Selection)
		stats[k].Refined++
		distance[k] += j.Refinement.EditDistancePct
	}

	for k, st := range stats {
		if st.Selections > 0 {
			st.RefinementRate = round3(float64(st.Refined) / float64(st.Selections))
		}
		if st.Refined > 0 {
			st.MeanEditDistancePct = round3(distance[k] / float64(st.Refined))
		}
		rep.Templates = append(rep.Templates, *st)
	}
	sort.Slice(rep.Templates, func(i, j int) bool {
		a, b := rep.Templates[i], rep.Templates[j]
		if a.Selections != b.Selections {
			return a.Selections > b.Selections
		}
		return a.TemplateID < b.TemplateID
	})
	return rep
}

// RenderDiff renders a unified diff between the original and refined bodies.
func RenderDiff(ev RefinementEvent) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(ensureNewline(ev.OriginalBodyPlain)),
		B:        difflib.SplitLines(ensureNewline(ev.RefinedBodyPlain)),
		FromFile: fmt.Sprintf("%s/original", ev.DraftID),
		ToFile:   fmt.Sprintf("%s/refined", ev.DraftID),
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff draft %s: %w", ev.DraftID, err)
	}
	return text, nil
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
