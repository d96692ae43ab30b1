package temporal

import (
	"fmt"
	"time"

	"ActivityScanner/internal/domain"
)

// Strategy selects how extracted dates translate into a relevance score.
type Strategy string

const (
	StrategyLatest         Strategy = "latest"
	StrategyCurrentMonth   Strategy = "current_month"
	StrategyRelevantPeriod Strategy = "relevant_period"
)

// StrategyFor maps a detected dominant pattern to the ranking strategy the
// ranker should use.
func StrategyFor(pattern DominantPattern) Strategy {
	switch pattern {
	case PatternMonthly:
		return StrategyLatest
	case PatternYearly:
		return StrategyCurrentMonth
	default:
		return StrategyRelevantPeriod
	}
}

// Relevance scores a set of extracted dates against the reference date under
// the given strategy. The best-scoring date wins; month ranges score on
// their end month with a 0.1 bonus, since a range suggests an actively
// maintained listing. The raw score is normalized by the strategy's maximum
// attainable value rather than truncated at 1.0, so a range keeps its edge
// over the equivalent single month even near the ceiling. The result is in
// [0, 1].
func Relevance(dates []domain.ExtractedDate, strategy Strategy, ref time.Time) float64 {
	if len(dates) == 0 {
		return 0
	}

	best := 0.0
	for _, d := range dates {
		score := scoreSingle(d, strategy, ref)

		if d.Type == domain.DateMonthRange {
			end := d.EndMonth
			if end == 0 {
				end = d.StartMonth
			}
			asEnd := d
			asEnd.Month = end
			asEnd.Type = domain.DateMonthYear
			if rangeScore := scoreSingle(asEnd, strategy, ref) + 0.1; rangeScore > score {
				score = rangeScore
			}
		}

		if score > best {
			best = score
		}
	}

	return best / maxAttainable(strategy)
}

// maxAttainable is the ceiling a raw strategy score can reach: for latest,
// 1.0 base + 0.5 near-future bonus + 0.1 range bonus; for the others, 1.0
// plus the range bonus.
func maxAttainable(strategy Strategy) float64 {
	if strategy == StrategyLatest {
		return 1.6
	}
	return 1.1
}

func scoreSingle(d domain.ExtractedDate, strategy Strategy, ref time.Time) float64 {
	refYear, refMonth := ref.Year(), int(ref.Month())

	switch strategy {
	case StrategyLatest:
		if d.Year == 0 {
			return 0
		}
		yearDiff := d.Year - refYear
		if yearDiff < 0 {
			return 0
		}
		score := 1.0 - float64(yearDiff)*0.1
		if d.Month != 0 {
			monthDiff := yearDiff*12 + d.Month - refMonth
			if monthDiff >= 0 {
				score += 0.5 - float64(monthDiff)*0.05
			}
		}
		return score

	case StrategyCurrentMonth:
		if d.Year == refYear && d.Month == refMonth {
			return 1.0
		}
		if d.Year == refYear && d.Month != 0 {
			monthDiff := d.Month - refMonth
			if monthDiff < 0 {
				monthDiff = -monthDiff
			}
			score := 0.8 - float64(monthDiff)*0.1
			if score < 0 {
				return 0
			}
			return score
		}
		return 0

	case StrategyRelevantPeriod:
		if d.Year == 0 || d.Month == 0 {
			return 0
		}
		target := time.Date(d.Year, time.Month(d.Month), 1, 0, 0, 0, 0, time.UTC)
		refDay := time.Date(refYear, ref.Month(), ref.Day(), 0, 0, 0, 0, time.UTC)
		days := int(target.Sub(refDay).Hours() / 24)
		if days < -30 || days > 60 {
			return 0
		}
		if days < 0 {
			days = -days
		}
		return 1.0 - float64(days)/100
	}

	return 0
}

// Reasoning renders a human-readable explanation of why the best date made
// an item relevant under the strategy.
func Reasoning(dates []domain.ExtractedDate, strategy Strategy) string {
	if len(dates) == 0 {
		return "Sin fechas detectadas"
	}

	best := dates[0]
	for _, d := range dates[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}

	var dateStr string
	switch {
	case best.Type == domain.DateMonthRange:
		dateStr = fmt.Sprintf("%s y %s %d", monthNames[best.StartMonth-1], monthNames[best.EndMonth-1], best.Year)
	case best.Month >= 1 && best.Month <= 12 && best.Year != 0:
		dateStr = fmt.Sprintf("%s %d", monthNames[best.Month-1], best.Year)
	default:
		dateStr = best.Text
	}

	switch strategy {
	case StrategyLatest:
		return fmt.Sprintf("Priorizado por ser el más reciente: %s", dateStr)
	case StrategyCurrentMonth:
		return fmt.Sprintf("Priorizado por proximidad al mes actual: %s", dateStr)
	default:
		return fmt.Sprintf("Priorizado por relevancia temporal (%s): %s", strategy, dateStr)
	}
}
