package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/ports"
)

// Criteria configure the automatic quality filter.
type Criteria struct {
	RequiredFields  []string
	ValidCategories []string
	MaxPrice        float64
	MinEvents       int
}

// DefaultCriteria mirror the publication policy: title, date and category
// present, any configured category, prices up to 15€, at least one event.
func DefaultCriteria() Criteria {
	return Criteria{
		RequiredFields: []string{"title", "start_date", "category"},
		MaxPrice:       15,
		MinEvents:      1,
	}
}

// Validation is the outcome of the automatic filter, independent of any
// external judgment.
type Validation struct {
	ValidEvents   []domain.Event
	InvalidEvents []domain.RejectedEvent
	MeetsMinimum  bool
}

// ValidCount is the number of events that passed the filter.
func (v Validation) ValidCount() int { return len(v.ValidEvents) }

// QualityScore is the share of events that passed, zero when there were
// none. The run summary always carries it.
func (v Validation) QualityScore() float64 {
	total := len(v.ValidEvents) + len(v.InvalidEvents)
	if total == 0 {
		return 0
	}
	return float64(len(v.ValidEvents)) / float64(total)
}

// Supervisor fuses the rule-based filter with the external judgment into one
// deterministic publication decision.
type Supervisor struct {
	judge    ports.Judge
	criteria Criteria
	timeout  time.Duration
	logger   *slog.Logger
}

// New wires a supervisor; a zero timeout defaults to 30s.
func New(judge ports.Judge, criteria Criteria, timeout time.Duration, logger *slog.Logger) *Supervisor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Supervisor{judge: judge, criteria: criteria, timeout: timeout, logger: logger}
}

// AutoValidate applies the deterministic filter: required fields present,
// category in the allow-list, parsed price within the ceiling. An
// unparseable price passes rather than fails.
func (s *Supervisor) AutoValidate(events []domain.Event) Validation {
	var v Validation

	for _, event := range events {
		var reasons []string

		for _, field := range s.criteria.RequiredFields {
			if fieldValue(event, field) == "" {
				reasons = append(reasons, "missing field: "+field)
			}
		}

		if len(s.criteria.ValidCategories) > 0 && !contains(s.criteria.ValidCategories, event.Category) {
			reasons = append(reasons, "invalid category")
		}

		if price, ok := parsePrice(event.Price); ok && price > s.criteria.MaxPrice {
			reasons = append(reasons, fmt.Sprintf("price %.2f above ceiling %.2f", price, s.criteria.MaxPrice))
		}

		if len(reasons) == 0 {
			v.ValidEvents = append(v.ValidEvents, event)
		} else {
			v.InvalidEvents = append(v.InvalidEvents, domain.RejectedEvent{Event: event, Reasons: reasons})
		}
	}

	minEvents := s.criteria.MinEvents
	if minEvents <= 0 {
		minEvents = 1
	}
	v.MeetsMinimum = len(v.ValidEvents) >= minEvents

	return v
}

// consultJudge calls the external judgment with a timeout and one retry on
// transient failure. Any terminal failure degrades to an ERROR judgment
// rather than propagating.
func (s *Supervisor) consultJudge(ctx context.Context, sample []domain.Event, priorErrors []string) domain.Judgment {
	if s.judge == nil {
		return domain.Judgment{Decision: domain.JudgmentError, Reasoning: "no judgment capability configured"}
	}

	criteria := s.formatCriteria()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		judgment, err := s.judge.Judge(callCtx, sample, criteria, priorErrors)
		cancel()
		if err == nil {
			return judgment
		}
		lastErr = err
		if !ports.Transient(err) {
			break
		}
		s.warn("judgment attempt failed, retrying", "attempt", attempt+1, "error", err)
	}

	return domain.Judgment{
		Decision:  domain.JudgmentError,
		Reasoning: fmt.Sprintf("judgment capability failed: %v", lastErr),
	}
}

// Supervise runs the full quality gate over normalized events and returns
// the fused decision. The sample handed to the judge is capped at three
// events.
func (s *Supervisor) Supervise(ctx context.Context, events []domain.Event, priorErrors []string) (domain.SupervisionDecision, Validation) {
	validation := s.AutoValidate(events)

	sample := events
	if len(sample) > 3 {
		sample = sample[:3]
	}
	judgment := s.consultJudge(ctx, sample, priorErrors)

	decision := Fuse(validation, judgment)
	return decision, validation
}

// Fuse combines the automatic validation with the advisory judgment. Rows
// evaluate in order, first match wins:
//
//	below minimum            → REJECTED
//	APPROVE with valid events → APPROVED
//	REJECT                   → REJECTED
//	anything else            → MANUAL_REVIEW
//
// APPROVE with zero valid events is unreachable while minEvents ≥ 1, but is
// guarded explicitly and lands in MANUAL_REVIEW.
func Fuse(validation Validation, judgment domain.Judgment) domain.SupervisionDecision {
	// Downstream consumers assume these aggregates exist; never hand out nil.
	invalid := validation.InvalidEvents
	if invalid == nil {
		invalid = []domain.RejectedEvent{}
	}

	if !validation.MeetsMinimum {
		return domain.SupervisionDecision{
			Status:         domain.StatusRejected,
			Reasoning:      "does not meet minimum quality criteria",
			ApprovedEvents: []domain.Event{},
			RejectedEvents: invalid,
		}
	}

	if judgment.Decision == domain.JudgmentApprove && validation.ValidCount() > 0 {
		return domain.SupervisionDecision{
			Status:         domain.StatusApproved,
			Reasoning:      judgment.Reasoning,
			ApprovedEvents: validation.ValidEvents,
			RejectedEvents: invalid,
		}
	}

	if judgment.Decision == domain.JudgmentReject {
		return domain.SupervisionDecision{
			Status:         domain.StatusRejected,
			Reasoning:      judgment.Reasoning,
			ApprovedEvents: []domain.Event{},
			RejectedEvents: invalid,
		}
	}

	return domain.SupervisionDecision{
		Status:         domain.StatusManualReview,
		Reasoning:      fmt.Sprintf("auto: %d valid. judgment: %s", validation.ValidCount(), judgment.Reasoning),
		ApprovedEvents: []domain.Event{},
		RejectedEvents: []domain.RejectedEvent{},
	}
}

func (s *Supervisor) formatCriteria() string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Required fields: %s\n", strings.Join(s.criteria.RequiredFields, ", "))
	if len(s.criteria.ValidCategories) > 0 {
		fmt.Fprintf(&b, "- Valid categories: %s\n", strings.Join(s.criteria.ValidCategories, ", "))
	}
	fmt.Fprintf(&b, "- Max price: %.2f€\n", s.criteria.MaxPrice)
	fmt.Fprintf(&b, "- Min events: %d\n", s.criteria.MinEvents)
	return b.String()
}

func fieldValue(event domain.Event, field string) string {
	switch field {
	case "title":
		return event.Title
	case "start_date":
		if event.StartDate.IsZero() {
			return ""
		}
		return event.StartDate.Format("2006-01-02")
	case "category":
		return event.Category
	case "price":
		return event.Price
	case "location":
		return event.Location
	case "description":
		return event.Description
	}
	return ""
}

var priceExpr = strings.NewReplacer("€", "", ",", ".")

func parsePrice(price string) (float64, bool) {
	cleaned := strings.TrimSpace(priceExpr.Replace(price))
	if strings.EqualFold(cleaned, "gratis") {
		return 0, true
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}

func (s *Supervisor) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
