package temporal

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"ActivityScanner/internal/domain"
)

// Months recognized in source labels, in calendar order.
var monthNames = []string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

var monthNumbers = func() map[string]int {
	m := make(map[string]int, len(monthNames))
	for i, name := range monthNames {
		m[name] = i + 1
	}
	return m
}()

// Labels carrying these words tend to be activity listings; they earn a
// small confidence bonus during extraction.
var activityIndicators = []string{
	"actividades", "programación", "calendario", "eventos", "folleto",
}

// Pattern describes one detected temporal organization (monthly or yearly).
type Pattern struct {
	Detected   bool
	Confidence float64
	Items      int
	Values     []string
}

// DominantPattern names the strongest organization found in a source.
type DominantPattern string

const (
	PatternMonthly DominantPattern = "monthly_series"
	PatternYearly  DominantPattern = "yearly_series"
	PatternNone    DominantPattern = "none"
)

// PatternReport is the outcome of temporal pattern detection over a list of
// content labels. It only informs ranking strategy choice; it never filters
// items by itself.
type PatternReport struct {
	Monthly  Pattern
	Yearly   Pattern
	Dominant DominantPattern
}

// HasTemporalOrganization reports whether either pattern was detected.
func (r PatternReport) HasTemporalOrganization() bool {
	return r.Monthly.Detected || r.Yearly.Detected
}

var yearExpr = regexp.MustCompile(`\b(20\d{2})\b`)

// DetectPatterns inspects content labels for monthly and yearly series. A
// monthly series needs month names in more than half the items; a yearly
// series needs year tokens in more than 30% of items spanning at least two
// distinct years.
func DetectPatterns(items []string) PatternReport {
	if len(items) == 0 {
		return PatternReport{Dominant: PatternNone}
	}

	monthlyItems := 0
	monthsFound := map[string]struct{}{}
	for _, item := range items {
		lower := strings.ToLower(item)
		for _, month := range monthNames {
			if strings.Contains(lower, month) {
				monthlyItems++
				monthsFound[month] = struct{}{}
				break
			}
		}
	}
	monthlyConfidence := float64(monthlyItems) / float64(len(items))

	yearlyItems := 0
	yearsFound := map[string]struct{}{}
	for _, item := range items {
		years := yearExpr.FindAllString(item, -1)
		if len(years) > 0 {
			yearlyItems++
			for _, y := range years {
				yearsFound[y] = struct{}{}
			}
		}
	}
	yearlyConfidence := float64(yearlyItems) / float64(len(items))

	report := PatternReport{
		Monthly: Pattern{
			Detected:   monthlyConfidence > 0.5,
			Confidence: monthlyConfidence,
			Items:      monthlyItems,
			Values:     sortedKeys(monthsFound),
		},
		Yearly: Pattern{
			Detected:   yearlyConfidence > 0.3 && len(yearsFound) > 1,
			Confidence: yearlyConfidence,
			Items:      yearlyItems,
			Values:     sortedKeys(yearsFound),
		},
	}

	switch {
	case report.Monthly.Detected && monthlyConfidence > yearlyConfidence:
		report.Dominant = PatternMonthly
	case report.Yearly.Detected:
		report.Dominant = PatternYearly
	default:
		report.Dominant = PatternNone
	}

	return report
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	monthYearExpr = regexp.MustCompile(
		`(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre)` +
			`(?:\s+y\s+(enero|febrero|marzo|abril|mayo|junio|julio|agosto|septiembre|octubre|noviembre|diciembre))?` +
			`\s+(\d{4})`)
	fullDateExpr     = regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})`)
	isoDateExpr      = regexp.MustCompile(`(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})`)
	monthYearNumExpr = regexp.MustCompile(`(\d{1,2})[/\-](\d{4})`)
)

// Year and month bounds rejecting false positives such as phone numbers.
const (
	minYear = 2020
	maxYear = 2030
)

// ExtractDates collects every date occurrence in the text across all pattern
// classes. A month range ("julio y agosto 2025") is a single date of its own
// type, not two separate dates.
func ExtractDates(text string) []domain.ExtractedDate {
	var dates []domain.ExtractedDate
	lower := strings.ToLower(text)

	for _, idx := range monthYearExpr.FindAllStringSubmatchIndex(lower, -1) {
		first := monthNumbers[lower[idx[2]:idx[3]]]
		year, _ := strconv.Atoi(lower[idx[6]:idx[7]])
		span := [2]int{idx[0], idx[1]}
		matched := text[idx[0]:idx[1]]

		if idx[4] >= 0 {
			second := monthNumbers[lower[idx[4]:idx[5]]]
			dates = append(dates, domain.ExtractedDate{
				Type:       domain.DateMonthRange,
				Year:       year,
				Month:      first,
				StartMonth: first,
				EndMonth:   second,
				Confidence: 0.95,
				SourceSpan: span,
				Text:       matched,
			})
			continue
		}
		dates = append(dates, domain.ExtractedDate{
			Type:       domain.DateMonthYear,
			Year:       year,
			Month:      first,
			Confidence: 0.9,
			SourceSpan: span,
			Text:       matched,
		})
	}

	for _, idx := range fullDateExpr.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[idx[2]:idx[3]])
		month, _ := strconv.Atoi(text[idx[4]:idx[5]])
		year, _ := strconv.Atoi(text[idx[6]:idx[7]])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 && year >= minYear && year <= maxYear {
			dates = append(dates, domain.ExtractedDate{
				Type:       domain.DateFull,
				Year:       year,
				Month:      month,
				Day:        day,
				Confidence: 0.8,
				SourceSpan: [2]int{idx[0], idx[1]},
				Text:       text[idx[0]:idx[1]],
			})
		}
	}

	for _, idx := range isoDateExpr.FindAllStringSubmatchIndex(text, -1) {
		year, _ := strconv.Atoi(text[idx[2]:idx[3]])
		month, _ := strconv.Atoi(text[idx[4]:idx[5]])
		day, _ := strconv.Atoi(text[idx[6]:idx[7]])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 && year >= minYear && year <= maxYear {
			dates = append(dates, domain.ExtractedDate{
				Type:       domain.DateFull,
				Year:       year,
				Month:      month,
				Day:        day,
				Confidence: 0.8,
				SourceSpan: [2]int{idx[0], idx[1]},
				Text:       text[idx[0]:idx[1]],
			})
		}
	}

	for _, idx := range monthYearNumExpr.FindAllStringSubmatchIndex(text, -1) {
		if overlapsAny(dates, idx[0], idx[1]) {
			continue
		}
		month, _ := strconv.Atoi(text[idx[2]:idx[3]])
		year, _ := strconv.Atoi(text[idx[4]:idx[5]])
		if month >= 1 && month <= 12 && year >= minYear && year <= maxYear {
			dates = append(dates, domain.ExtractedDate{
				Type:       domain.DateMonthYearNumeric,
				Year:       year,
				Month:      month,
				Confidence: 0.7,
				SourceSpan: [2]int{idx[0], idx[1]},
				Text:       text[idx[0]:idx[1]],
			})
		}
	}

	return dates
}

func overlapsAny(dates []domain.ExtractedDate, start, end int) bool {
	for _, d := range dates {
		if start < d.SourceSpan[1] && end > d.SourceSpan[0] {
			return true
		}
	}
	return false
}

// Annotate turns candidate items into dated items. The confidence is the
// best date confidence plus a 0.1 bonus when the label contains an activity
// indicator word, capped at 1.0. Items without dates keep zero confidence
// but are never dropped here.
func Annotate(items []domain.CandidateItem) []domain.DatedItem {
	annotated := make([]domain.DatedItem, 0, len(items))
	for _, item := range items {
		dates := ExtractDates(item.Label)

		confidence := 0.0
		for _, d := range dates {
			if d.Confidence > confidence {
				confidence = d.Confidence
			}
		}
		if confidence > 0 {
			lower := strings.ToLower(item.Label)
			for _, indicator := range activityIndicators {
				if strings.Contains(lower, indicator) {
					confidence += 0.1
					break
				}
			}
			if confidence > 1.0 {
				confidence = 1.0
			}
		}

		annotated = append(annotated, domain.DatedItem{
			Item:       item,
			Dates:      dates,
			Confidence: confidence,
		})
	}
	return annotated
}
