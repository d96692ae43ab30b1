package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/ports"
)

// Outcome tells what the gate did with one event.
type Outcome string

const (
	OutcomeInserted             Outcome = "inserted"
	OutcomeDuplicateFingerprint Outcome = "duplicate_fingerprint"
	OutcomeDuplicateTriple      Outcome = "duplicate_triple"
)

// Result aggregates a batch pass through the gate.
type Result struct {
	Inserted   int
	Duplicates int
	Errors     []string
}

// Gate checks each event against previously accepted records before letting
// it through to storage. The check is two-tier: exact fingerprint first,
// then the (title, startDate, location) triple for legacy records without a
// fingerprint. Duplicate scope is global across sources; the fingerprint
// carries no source component, so the same activity listed by two sources
// collapses into one record.
type Gate struct {
	repo   ports.EventRepository
	logger *slog.Logger
}

// New wires the gate over the event repository.
func New(repo ports.EventRepository, logger *slog.Logger) *Gate {
	return &Gate{repo: repo, logger: logger}
}

// Admit decides one event: skip on either duplicate tier, insert otherwise.
// A triple match with a missing fingerprint is backfilled lazily.
func (g *Gate) Admit(ctx context.Context, event domain.Event) (Outcome, error) {
	existing, err := g.repo.FindByFingerprint(ctx, event.Fingerprint)
	if err != nil {
		return "", fmt.Errorf("fingerprint lookup: %w", err)
	}
	if existing != nil {
		return OutcomeDuplicateFingerprint, nil
	}

	existing, err = g.repo.FindByTriple(ctx, event.Title, event.StartDate, event.Location)
	if err != nil {
		return "", fmt.Errorf("triple lookup: %w", err)
	}
	if existing != nil {
		if existing.Fingerprint == "" {
			if err := g.repo.BackfillFingerprint(ctx, event.Title, event.StartDate, event.Location, event.Fingerprint); err != nil {
				g.warn("fingerprint backfill failed", "title", event.Title, "error", err)
			}
		}
		return OutcomeDuplicateTriple, nil
	}

	if err := g.repo.Upsert(ctx, event); err != nil {
		return "", fmt.Errorf("upsert event: %w", err)
	}
	return OutcomeInserted, nil
}

// AdmitBatch runs Admit over approved events. A storage failure on one event
// is recorded and does not abort the rest of the batch.
func (g *Gate) AdmitBatch(ctx context.Context, events []domain.Event) Result {
	var result Result
	for _, event := range events {
		outcome, err := g.Admit(ctx, event)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("event %q: %v", event.Title, err))
			continue
		}
		switch outcome {
		case OutcomeInserted:
			result.Inserted++
		default:
			result.Duplicates++
			g.debug("duplicate skipped", "title", event.Title, "outcome", string(outcome))
		}
	}
	return result
}

func (g *Gate) warn(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Warn(msg, args...)
	}
}

func (g *Gate) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}
