// Package signals records selection and refinement outcomes as JSON lines
// and turns them into calibration data for the template ranker.
package signals

import (
	"encoding/json"
	"time"
)

// Event kinds, carried in the "event" field of every line.
const (
	KindSelection  = "selection"
	KindRefinement = "refinement"
)

// Event is anything that can be appended to the signal log.
type Event interface {
	Kind() string
	DraftKey() string
	Timestamp() time.Time
}

// CandidateSignal is a ranked template as recorded at selection time.
type CandidateSignal struct {
	TemplateKey string  `json:"template_key"`
	Confidence  float64 `json:"confidence"`
}

// SelectionEvent is written once per generation call.
type SelectionEvent struct {
	TS            time.Time         `json:"ts"`
	DraftID       string            `json:"draft_id"`
	Category      string            `json:"category"`
	Language      string            `json:"language"`
	Selection     string            `json:"selection"`
	TemplateID    string            `json:"template_id,omitempty"`
	Confidence    float64           `json:"confidence"`
	Candidates    []CandidateSignal `json:"candidates"`
	Composite     bool              `json:"composite"`
	QuestionCount int               `json:"question_count"`
	QualityPassed bool              `json:"quality_passed"`
	FailedChecks  []string          `json:"failed_checks"`
	ReviewTier    string            `json:"review_tier,omitempty"`
}

func (e SelectionEvent) Kind() string         { return KindSelection }
func (e SelectionEvent) DraftKey() string     { return e.DraftID }
func (e SelectionEvent) Timestamp() time.Time { return e.TS }

func (e SelectionEvent) MarshalJSON() ([]byte, error) {
	type alias SelectionEvent
	a := alias(e)
	if a.Candidates == nil {
		a.Candidates = []CandidateSignal{}
	}
	if a.FailedChecks == nil {
		a.FailedChecks = []string{}
	}
	return json.Marshal(struct {
		Event string `json:"event"`
		alias
	}{KindSelection, a})
}

// RefinementEvent is written once per refinement call that carries a draft id.
type RefinementEvent struct {
	TS                time.Time `json:"ts"`
	DraftID           string    `json:"draft_id"`
	RefinementApplied bool      `json:"refinement_applied"`
	RefinementSource  string    `json:"refinement_source"`
	OriginalBodyPlain string    `json:"original_body_plain"`
	RefinedBodyPlain  string    `json:"refined_body_plain"`
	EditDistancePct   float64   `json:"edit_distance_pct"`
}

func (e RefinementEvent) Kind() string         { return KindRefinement }
func (e RefinementEvent) DraftKey() string     { return e.DraftID }
func (e RefinementEvent) Timestamp() time.Time { return e.TS }

func (e RefinementEvent) MarshalJSON() ([]byte, error) {
	type alias RefinementEvent
	return json.Marshal(struct {
		Event string `json:"event"`
		alias
	}{KindRefinement, alias(e)})
}
