package interpret

// Language is the detected language of a message.
type Language string

const (
	LanguageEN      Language = "EN"
	LanguageIT      Language = "IT"
	LanguageES      Language = "ES"
	LanguageUnknown Language = "UNKNOWN"
)

// AgreementStatus is the resolved state of a guest's agreement to terms.
type AgreementStatus string

const (
	AgreementConfirmed AgreementStatus = "confirmed"
	AgreementLikely    AgreementStatus = "likely"
	AgreementUnclear   AgreementStatus = "unclear"
	AgreementNone      AgreementStatus = "none"
)

// EscalationTier ranks how urgently a human must look at the message.
type EscalationTier string

const (
	EscalationNone     EscalationTier = "NONE"
	EscalationHigh     EscalationTier = "HIGH"
	EscalationCritical EscalationTier = "CRITICAL"
)

// ToneHistory summarises the register used across a thread.
type ToneHistory string

const (
	ToneFormal ToneHistory = "formal"
	ToneCasual ToneHistory = "casual"
	ToneMixed  ToneHistory = "mixed"
)

// Intent is a single extracted question, request or confirmation.
type Intent struct {
	Text string `json:"text"`
}

type Intents struct {
	Questions     []Intent `json:"questions"`
	Requests      []Intent `json:"requests"`
	Confirmations []Intent `json:"confirmations"`
}

type EvidenceSpan struct {
	Text      string `json:"text"`
	Position  int    `json:"position"`
	IsNegated bool   `json:"is_negated"`
}

type Agreement struct {
	Status                    AgreementStatus `json:"status"`
	Confidence                int             `json:"confidence"`
	EvidenceSpans             []EvidenceSpan  `json:"evidence_spans"`
	RequiresHumanConfirmation bool            `json:"requires_human_confirmation"`
	DetectedLanguage          Language        `json:"detected_language"`
	AdditionalContent         bool            `json:"additional_content"`
}

type WorkflowTriggers struct {
	Prepayment         bool `json:"prepayment"`
	TermsAndConditions bool `json:"terms_and_conditions"`
	BookingMonitor     bool `json:"booking_monitor"`
}

type Scenario struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type Escalation struct {
	Tier       EscalationTier `json:"tier"`
	Triggers   []string       `json:"triggers"`
	Confidence float64        `json:"confidence"`
}

type ThreadSummary struct {
	PriorCommitments      []string    `json:"prior_commitments"`
	OpenQuestions         []string    `json:"open_questions"`
	ResolvedQuestions     []string    `json:"resolved_questions"`
	ToneHistory           ToneHistory `json:"tone_history"`
	GuestName             string      `json:"guest_name"`
	LanguageUsed          Language    `json:"language_used"`
	PreviousResponseCount int         `json:"previous_response_count"`
}

// ActionPlan is the structured interpretation of one inbound email. It is
// produced once and treated as read-only by every later stage.
type ActionPlan struct {
	NormalizedText   string           `json:"normalized_text"`
	Language         Language         `json:"language"`
	Intents          Intents          `json:"intents"`
	Agreement        Agreement        `json:"agreement"`
	WorkflowTriggers WorkflowTriggers `json:"workflow_triggers"`
	Scenario         Scenario         `json:"scenario"`
	Escalation       Escalation       `json:"escalation"`
	ThreadSummary    *ThreadSummary   `json:"thread_summary,omitempty"`
}

// ThreadMessage is one earlier message in the conversation.
type ThreadMessage struct {
	From    string `json:"from"`
	Date    string `json:"date,omitempty"`
	Snippet string `json:"snippet"`
}

type ThreadContext struct {
	Messages []ThreadMessage `json:"messages"`
}

// Input is the draft_interpret request.
type Input struct {
	Body          string         `json:"body"`
	Subject       string         `json:"subject,omitempty"`
	ThreadContext *ThreadContext `json:"threadContext,omitempty"`
}
