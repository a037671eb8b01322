package templates

// ReferenceRequired marks templates that must quote their canonical URL.
const ReferenceRequired = "reference_required"

// EmailTemplate is one entry of the reply corpus.
type EmailTemplate struct {
	Subject               string `json:"subject"`
	Body                  string `json:"body"`
	Category              string `json:"category"`
	TemplateID            string `json:"template_id,omitempty"`
	ReferenceScope        string `json:"reference_scope,omitempty"`
	CanonicalReferenceURL string `json:"canonical_reference_url,omitempty"`
	NormalizationBatch    string `json:"normalization_batch,omitempty"`
}

// Key identifies a template: its ID when set, otherwise its subject.
func (t EmailTemplate) Key() string {
	if t.TemplateID != "" {
		return t.TemplateID
	}
	return t.Subject
}

// Selection is the ranker's verdict on the top candidate.
type Selection string

const (
	SelectionAuto   Selection = "auto"
	SelectionManual Selection = "manual"
	SelectionNone   Selection = "none"
)

type Candidate struct {
	Template   EmailTemplate `json:"template"`
	Confidence float64       `json:"confidence"`
	Evidence   []string      `json:"evidence"`
}

type RankResult struct {
	Selection  Selection   `json:"selection"`
	Confidence float64     `json:"confidence"`
	Candidates []Candidate `json:"candidates"`
}

// Top returns the best candidate, if any.
func (r RankResult) Top() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}
	return r.Candidates[0], true
}

// Query is what the ranker scores templates against.
type Query struct {
	Subject            string
	Body               string
	CategoryHint       string
	PrepaymentStep     string
	PrepaymentProvider string
}

// Thresholds tune the auto/manual/none decision.
type Thresholds struct {
	Auto   float64 `yaml:"auto_threshold" json:"auto_threshold"`
	Floor  float64 `yaml:"floor" json:"floor"`
	Margin float64 `yaml:"margin" json:"margin"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Auto: 0.6, Floor: 0.25, Margin: 0.1}
}
