package domain

// DateType distinguishes the pattern class a date was extracted with.
type DateType string

const (
	DateMonthYear        DateType = "month_year"
	DateMonthRange       DateType = "month_range"
	DateFull             DateType = "full_date"
	DateMonthYearNumeric DateType = "month_year_numeric"
)

// ExtractedDate is one calendar reference found inside a candidate label.
// Month ranges ("julio y agosto 2025") are first-class: StartMonth/EndMonth
// carry both ends, Month mirrors StartMonth for uniform access.
type ExtractedDate struct {
	Type       DateType
	Year       int
	Month      int
	Day        int
	StartMonth int
	EndMonth   int
	Confidence float64
	SourceSpan [2]int
	Text       string
}

// DatedItem annotates a candidate with every date found in its label and the
// best per-item confidence (date quality plus context indicators).
type DatedItem struct {
	Item       CandidateItem
	Dates      []ExtractedDate
	Confidence float64
}

// RankedItem is a dated candidate with its combined score and dense rank.
type RankedItem struct {
	DatedItem
	TemporalScore float64
	FinalScore    float64
	Rank          int
	StrategyUsed  string
	Reasoning     string
}

// RejectedItem records why a ranked candidate was not selected for
// extraction. Items are never silently dropped.
type RejectedItem struct {
	RankedItem
	Reasons []string
}
