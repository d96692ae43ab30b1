package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"ActivityScanner/internal/domain"
)

// DefaultCategories is the closed category set events must land in.
var DefaultCategories = []string{
	"Cultura",
	"Deporte y Salud",
	"Formación",
	"Cine",
	"Paseos y Excursiones",
	"Ocio y Social",
}

// FallbackCategory catches events whose category cannot be kept or inferred.
const FallbackCategory = "Ocio y Social"

var categoryKeywords = map[string][]string{
	"Cultura":              {"teatro", "música", "concierto", "museo", "exposición", "cultura", "arte", "ópera"},
	"Deporte y Salud":      {"deporte", "gimnasia", "caminar", "salud", "ejercicio", "físico", "yoga", "pilates"},
	"Formación":            {"taller", "curso", "charla", "conferencia", "formación", "aprender", "educación"},
	"Cine":                 {"cine", "película", "film", "documental", "proyección", "cortometraje"},
	"Paseos y Excursiones": {"paseo", "excursión", "visita", "ruta", "senderismo", "parque", "jardín"},
	"Ocio y Social":        {"fiesta", "encuentro", "social", "baile", "juegos", "tertulia", "actividad"},
}

var freeWords = []string{"gratis", "gratuito", "libre", "sin coste", "entrada libre", "free"}

var (
	spacesExpr   = regexp.MustCompile(`\s+`)
	priceNumExpr = regexp.MustCompile(`\d+(?:[,.]\d{1,2})?`)
	htmlTagExpr  = regexp.MustCompile(`<[^>]+>`)
	dateFallback = regexp.MustCompile(`(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})`)
)

var dateLayouts = []string{
	"02/01/2006", "02-01-2006", "02.01.2006",
	"02/01/06", "02-01-06", "02.01.06",
	"2006-01-02", "2006/01/02",
}

// RejectionError explains why a raw record could not become an event. It is
// a normal filtering outcome, not a fault.
type RejectionError struct {
	Reason string
}

func (e *RejectionError) Error() string { return "record rejected: " + e.Reason }

// Normalizer maps raw extracted records to the canonical event schema.
type Normalizer struct {
	categories map[string]struct{}
	titleCaser cases.Caser
}

// New builds a normalizer over the given category set; an empty set means
// the default one.
func New(categories []string) *Normalizer {
	if len(categories) == 0 {
		categories = DefaultCategories
	}
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return &Normalizer{
		categories: set,
		titleCaser: cases.Title(language.Spanish),
	}
}

// Normalize applies the field mapping, normalizes each field, validates the
// result, and computes the content fingerprint over the normalized values.
// A *RejectionError means the record failed schema rules, with a reason.
func (n *Normalizer) Normalize(raw domain.RawRecord, mapping map[string]string) (domain.Event, error) {
	mapped, extra := applyFieldMapping(raw, mapping)

	event := domain.Event{
		Title:       n.normalizeTitle(mapped["title"]),
		Price:       n.normalizePrice(mapped["price"]),
		Location:    n.normalizeLocation(mapped["location"]),
		Description: n.normalizeDescription(mapped["description"]),
		ExtraData:   extra,
	}
	event.Category = n.normalizeCategory(mapped["category"], event.Title, event.Description)

	if len([]rune(event.Title)) < 3 {
		return domain.Event{}, &RejectionError{Reason: "title shorter than 3 characters"}
	}

	start, ok := parseDate(mapped["start_date"])
	if !ok {
		return domain.Event{}, &RejectionError{Reason: fmt.Sprintf("unparseable start date %q", mapped["start_date"])}
	}
	event.StartDate = start

	if end, ok := parseDate(mapped["end_date"]); ok {
		event.EndDate = end
	}

	if _, ok := n.categories[event.Category]; !ok {
		return domain.Event{}, &RejectionError{Reason: fmt.Sprintf("category %q outside the allowed set", event.Category)}
	}

	event.Fingerprint = Fingerprint(event.Title, event.StartDate, event.Location)
	return event, nil
}

// NormalizeBatch runs Normalize over every record, keeping the events that
// pass and the rejection reasons of those that do not.
func (n *Normalizer) NormalizeBatch(records []domain.RawRecord, mapping map[string]string) ([]domain.Event, []string) {
	var events []domain.Event
	var rejections []string

	for i, raw := range records {
		event, err := n.Normalize(raw, mapping)
		if err != nil {
			rejections = append(rejections, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		events = append(events, event)
	}
	return events, rejections
}

// Fingerprint derives the stable duplicate key from the normalized title,
// start date, and location. Normalization must happen first so whitespace
// and case noise in the source cannot create false-distinct fingerprints.
func Fingerprint(title string, startDate time.Time, location string) string {
	sum := sha256.Sum256([]byte(title + startDate.Format("2006-01-02") + location))
	return hex.EncodeToString(sum[:])
}

// applyFieldMapping routes raw fields to canonical destinations. Dotted
// destinations like "extra.telefono" fold into the extra map; unmapped
// source fields are preserved there verbatim rather than discarded.
func applyFieldMapping(raw domain.RawRecord, mapping map[string]string) (map[string]string, map[string]string) {
	mapped := map[string]string{}
	extra := map[string]string{}

	for src, dst := range mapping {
		value := raw[src]
		if value == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(dst, "extra."); ok {
			extra[rest] = value
			continue
		}
		mapped[dst] = value
	}

	for key, value := range raw {
		if _, isMapped := mapping[key]; !isMapped && value != "" {
			extra[key] = value
		}
	}

	return mapped, extra
}

func (n *Normalizer) normalizeTitle(title string) string {
	title = spacesExpr.ReplaceAllString(strings.TrimSpace(title), " ")
	if title == "" {
		return ""
	}
	title = n.titleCaser.String(title)
	return truncate(title, 200)
}

func (n *Normalizer) normalizePrice(price string) string {
	trimmed := strings.TrimSpace(price)
	if trimmed == "" {
		return "Gratis"
	}

	lower := strings.ToLower(trimmed)
	for _, word := range freeWords {
		if strings.Contains(lower, word) {
			return "Gratis"
		}
	}

	if num := priceNumExpr.FindString(trimmed); num != "" {
		return strings.ReplaceAll(num, ",", ".") + "€"
	}

	if len([]rune(trimmed)) < 20 {
		return trimmed
	}
	return "Consultar precio"
}

func (n *Normalizer) normalizeCategory(category, title, description string) string {
	if _, ok := n.categories[category]; ok {
		return category
	}

	text := strings.ToLower(title + " " + description)
	for _, cat := range DefaultCategories {
		if _, allowed := n.categories[cat]; !allowed {
			continue
		}
		for _, keyword := range categoryKeywords[cat] {
			if strings.Contains(text, keyword) {
				return cat
			}
		}
	}

	return FallbackCategory
}

func (n *Normalizer) normalizeLocation(location string) string {
	location = spacesExpr.ReplaceAllString(strings.TrimSpace(location), " ")
	if location == "" {
		return ""
	}
	return truncate(n.titleCaser.String(location), 150)
}

func (n *Normalizer) normalizeDescription(description string) string {
	description = htmlTagExpr.ReplaceAllString(description, "")
	description = spacesExpr.ReplaceAllString(strings.TrimSpace(description), " ")
	return truncate(description, 1000)
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}

	if m := dateFallback.FindStringSubmatch(value); m != nil {
		if t, err := time.Parse("2/1/2006", m[1]+"/"+m[2]+"/"+m[3]); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
