package ranking

import (
	"fmt"
	"sort"
	"time"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/temporal"
)

// Weights blend the score components into the final ranking score.
type Weights struct {
	Temporal   float64
	Relevance  float64
	Confidence float64
	Position   float64
}

// DefaultWeights favor temporal relevance over structural confidence, with
// list position as a weak tie-break proxy for source-side prioritization.
func DefaultWeights() Weights {
	return Weights{Temporal: 0.4, Relevance: 0.3, Confidence: 0.2, Position: 0.1}
}

// Criteria bound the selection step: a hard inclusive minimum score, then a
// count cap, applied in that order.
type Criteria struct {
	MinScore     float64
	MaxCount     int
	RequireDates bool
}

// Selection is the outcome of selecting top content: the chosen items plus
// every rejected one tagged with its reasons.
type Selection struct {
	Selected []domain.RankedItem
	Rejected []domain.RejectedItem
}

// Ranker scores and orders candidate items for extraction.
type Ranker struct {
	weights Weights
}

// New builds a ranker; zero weights fall back to the defaults.
func New(weights Weights) *Ranker {
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	return &Ranker{weights: weights}
}

// Rank annotates candidates with extracted dates, scores them under the
// strategy, and returns them ordered by final score. The sort is stable, so
// ties keep their original order; ranks are dense and 1-based.
func (r *Ranker) Rank(items []domain.CandidateItem, strategy temporal.Strategy, ref time.Time) []domain.RankedItem {
	annotated := temporal.Annotate(items)
	total := len(annotated)

	ranked := make([]domain.RankedItem, 0, total)
	for i, dated := range annotated {
		temporalScore := temporal.Relevance(dated.Dates, strategy, ref)
		positionScore := 1.0 - float64(i)/float64(total)

		final := r.weights.Temporal*temporalScore +
			r.weights.Relevance*dated.Confidence +
			r.weights.Confidence*dated.Confidence +
			r.weights.Position*positionScore
		if final > 1.0 {
			final = 1.0
		}

		ranked = append(ranked, domain.RankedItem{
			DatedItem:     dated,
			TemporalScore: temporalScore,
			FinalScore:    final,
			StrategyUsed:  string(strategy),
			Reasoning:     temporal.Reasoning(dated.Dates, strategy),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	return ranked
}

// Select applies the minimum-score threshold (inclusive) and then the count
// cap. Items that fail are recorded with human-readable reasons, never
// silently dropped.
func (r *Ranker) Select(ranked []domain.RankedItem, criteria Criteria) Selection {
	maxCount := criteria.MaxCount
	if maxCount <= 0 {
		maxCount = 3
	}

	var sel Selection
	for _, item := range ranked {
		var reasons []string

		if item.FinalScore < criteria.MinScore {
			reasons = append(reasons,
				fmt.Sprintf("score %.3f below minimum %.3f", item.FinalScore, criteria.MinScore))
		}
		if criteria.RequireDates && len(item.Dates) == 0 {
			reasons = append(reasons, "no dates found but dates required")
		}
		if len(reasons) == 0 && len(sel.Selected) >= maxCount {
			reasons = append(reasons, fmt.Sprintf("already selected %d items", maxCount))
		}

		if len(reasons) == 0 {
			sel.Selected = append(sel.Selected, item)
		} else {
			sel.Rejected = append(sel.Rejected, domain.RejectedItem{RankedItem: item, Reasons: reasons})
		}
	}

	return sel
}
