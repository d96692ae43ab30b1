package domain

import "time"

// SourceType declares how a configured source publishes its listings.
type SourceType string

const (
	SourceHTML  SourceType = "HTML"
	SourcePDF   SourceType = "PDF"
	SourceImage SourceType = "IMAGE"
)

// Valid reports whether the source type is one of the supported kinds.
func (t SourceType) Valid() bool {
	switch t {
	case SourceHTML, SourcePDF, SourceImage:
		return true
	}
	return false
}

// Link is one anchor extracted from a page: visible text plus absolute href.
type Link struct {
	Text string
	Href string
}

// CandidateItem is an unstructured content unit (link text, section heading)
// considered for extraction before ranking. Immutable once created; ranking
// annotates copies rather than mutating it.
type CandidateItem struct {
	Label    string
	Locator  string
	Position int
}

// RawRecord is the loose field→value dictionary an extraction adapter
// produces. Its shape varies per source; normalization fixes it.
type RawRecord map[string]string

// Event is the canonical, normalized activity record.
type Event struct {
	Title       string
	StartDate   time.Time
	EndDate     time.Time
	Category    string
	Price       string
	Location    string
	Description string
	ExtraData   map[string]string
	Fingerprint string
	SourceName  string
	SourceURL   string
}

// Triple returns the structural identity used as the dedup fallback key.
func (e Event) Triple() (title string, startDate time.Time, location string) {
	return e.Title, e.StartDate, e.Location
}

// Judgment is the advisory output of the external judgment capability. The
// decision string may fall outside {APPROVE, REJECT}; callers must tolerate
// that.
type Judgment struct {
	Decision  string
	Reasoning string
}

const (
	JudgmentApprove = "APPROVE"
	JudgmentReject  = "REJECT"
	JudgmentError   = "ERROR"
)

// DecisionStatus is the terminal publication decision for one run.
type DecisionStatus string

const (
	StatusApproved     DecisionStatus = "APPROVED"
	StatusRejected     DecisionStatus = "REJECTED"
	StatusManualReview DecisionStatus = "MANUAL_REVIEW"
	StatusError        DecisionStatus = "ERROR"
)

// RejectedEvent pairs an event with the human-readable reasons it failed the
// automatic quality filter.
type RejectedEvent struct {
	Event   Event
	Reasons []string
}

// SupervisionDecision fuses the rule-based filter with the external judgment
// into one deterministic outcome.
type SupervisionDecision struct {
	Status         DecisionStatus
	Reasoning      string
	ApprovedEvents []Event
	RejectedEvents []RejectedEvent
}

// RunSummary is the always-fully-populated shape handed to the run log and
// any HTTP formatter. Zero values stand in for absent data; keys are never
// omitted.
type RunSummary struct {
	RunID           string
	SourceName      string
	SourceURL       string
	Decision        DecisionStatus
	Reasoning       string
	EventsApproved  int
	EventsRejected  int
	DurationSeconds float64
	QualityScore    float64
	StrategyUsed    string
	Errors          []string
}
