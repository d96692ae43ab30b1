package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ActivityScanner/internal/domain"
)

func TestDetectPatternsMonthlySeries(t *testing.T) {
	t.Parallel()

	items := []string{
		"Actividades enero 2025",
		"Actividades febrero 2025",
		"Actividades marzo 2025",
		"Contacto",
	}

	report := DetectPatterns(items)

	assert.True(t, report.Monthly.Detected)
	assert.InDelta(t, 0.75, report.Monthly.Confidence, 1e-9)
	assert.Equal(t, PatternMonthly, report.Dominant)
	assert.True(t, report.HasTemporalOrganization())
}

func TestDetectPatternsYearlySeries(t *testing.T) {
	t.Parallel()

	items := []string{
		"Memoria 2023",
		"Memoria 2024",
		"Quiénes somos",
		"Aviso legal",
		"Contacto",
	}

	report := DetectPatterns(items)

	assert.False(t, report.Monthly.Detected)
	assert.True(t, report.Yearly.Detected)
	assert.Equal(t, PatternYearly, report.Dominant)
	assert.Equal(t, []string{"2023", "2024"}, report.Yearly.Values)
}

func TestDetectPatternsSingleYearIsNotYearly(t *testing.T) {
	t.Parallel()

	// Yearly pattern needs more than one distinct year.
	report := DetectPatterns([]string{"Programa 2025", "Folleto 2025", "Inicio"})

	assert.False(t, report.Yearly.Detected)
	assert.Equal(t, PatternNone, report.Dominant)
}

func TestDetectPatternsEmpty(t *testing.T) {
	t.Parallel()

	report := DetectPatterns(nil)
	assert.Equal(t, PatternNone, report.Dominant)
	assert.False(t, report.HasTemporalOrganization())
}

func TestExtractDatesMonthYear(t *testing.T) {
	t.Parallel()

	dates := ExtractDates("Actividades Julio 2025")
	require.Len(t, dates, 1)

	assert.Equal(t, domain.DateMonthYear, dates[0].Type)
	assert.Equal(t, 2025, dates[0].Year)
	assert.Equal(t, 7, dates[0].Month)
	assert.InDelta(t, 0.9, dates[0].Confidence, 1e-9)
}

func TestExtractDatesMonthRangeIsSingleDate(t *testing.T) {
	t.Parallel()

	dates := ExtractDates("Programa julio y agosto 2025")
	require.Len(t, dates, 1)

	d := dates[0]
	assert.Equal(t, domain.DateMonthRange, d.Type)
	assert.Equal(t, 7, d.StartMonth)
	assert.Equal(t, 8, d.EndMonth)
	assert.Equal(t, 2025, d.Year)
	assert.InDelta(t, 0.95, d.Confidence, 1e-9)
}

func TestExtractDatesNumericForms(t *testing.T) {
	t.Parallel()

	dates := ExtractDates("Inscripciones hasta el 15/07/2025")
	require.Len(t, dates, 1)
	assert.Equal(t, domain.DateFull, dates[0].Type)
	assert.Equal(t, 15, dates[0].Day)

	dates = ExtractDates("Boletín 07/2025")
	require.Len(t, dates, 1)
	assert.Equal(t, domain.DateMonthYearNumeric, dates[0].Type)
	assert.InDelta(t, 0.7, dates[0].Confidence, 1e-9)
}

func TestExtractDatesRejectsPhoneNumbers(t *testing.T) {
	t.Parallel()

	// Out-of-range year and month tokens must not become dates.
	assert.Empty(t, ExtractDates("Tel: 91/6597100"))
	assert.Empty(t, ExtractDates("Ref 99/1999"))
}

func TestAnnotateIndicatorBonus(t *testing.T) {
	t.Parallel()

	items := []domain.CandidateItem{
		{Label: "Actividades julio 2025", Position: 0},
		{Label: "julio 2025", Position: 1},
		{Label: "Sin fecha alguna", Position: 2},
	}

	annotated := Annotate(items)
	require.Len(t, annotated, 3)

	assert.InDelta(t, 1.0, annotated[0].Confidence, 1e-9)
	assert.InDelta(t, 0.9, annotated[1].Confidence, 1e-9)
	assert.Zero(t, annotated[2].Confidence)
	assert.Empty(t, annotated[2].Dates)
}

func TestRelevanceMonthRangeBeatsSingleMonth(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)

	single := Relevance(ExtractDates("julio 2025"), StrategyLatest, ref)
	ranged := Relevance(ExtractDates("julio y agosto 2025"), StrategyLatest, ref)

	assert.Greater(t, ranged, single)
}

func TestRelevanceLatestIgnoresPast(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)

	past := Relevance(ExtractDates("diciembre 2024"), StrategyLatest, ref)
	assert.Zero(t, past)
}

func TestRelevanceCurrentMonth(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)

	exact := Relevance(ExtractDates("julio 2025"), StrategyCurrentMonth, ref)
	adjacent := Relevance(ExtractDates("septiembre 2025"), StrategyCurrentMonth, ref)
	otherYear := Relevance(ExtractDates("julio 2026"), StrategyCurrentMonth, ref)

	assert.InDelta(t, 1.0/1.1, exact, 1e-9)
	assert.InDelta(t, 0.6/1.1, adjacent, 1e-9)
	assert.Zero(t, otherYear)
}

func TestRelevanceRelevantPeriodWindow(t *testing.T) {
	t.Parallel()

	ref := time.Date(2025, time.July, 15, 0, 0, 0, 0, time.UTC)

	inside := Relevance(ExtractDates("agosto 2025"), StrategyRelevantPeriod, ref)
	assert.Greater(t, inside, 0.0)

	// First of November is more than 60 days out.
	outside := Relevance(ExtractDates("noviembre 2025"), StrategyRelevantPeriod, ref)
	assert.Zero(t, outside)
}

func TestStrategyFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StrategyLatest, StrategyFor(PatternMonthly))
	assert.Equal(t, StrategyCurrentMonth, StrategyFor(PatternYearly))
	assert.Equal(t, StrategyRelevantPeriod, StrategyFor(PatternNone))
}

func TestReasoningMentionsRange(t *testing.T) {
	t.Parallel()

	reasoning := Reasoning(ExtractDates("julio y agosto 2025"), StrategyLatest)
	assert.Contains(t, reasoning, "julio y agosto 2025")
}
