package extractor

import (
	"regexp"
	"strings"

	"ActivityScanner/internal/domain"
)

// Separators that usually delimit one activity from the next in converted
// document text, tried in order: dates at line start, uppercase headings,
// bullets, numbered lists, asterisks.
var sectionSeparators = []*regexp.Regexp{
	regexp.MustCompile(`\n(?:\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4})`),
	regexp.MustCompile(`\n(?:[A-ZÁÉÍÓÚÑ][A-Za-záéíóúñü ]{10,})`),
	regexp.MustCompile(`\n\s*[-•]\s*`),
	regexp.MustCompile(`\n\s*\d+[.)]\s*`),
	regexp.MustCompile(`\n\s*\*\s*`),
}

var (
	controlExpr = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	spaceExpr   = regexp.MustCompile(`\s+`)
)

// SplitSections divides converted document text into chunks that may each
// hold one activity. Separator patterns keep the text they match on the
// following chunk so dates and headings survive the split. When no
// separator applies, paragraphs longer than 50 characters stand in.
func SplitSections(content string) []string {
	for _, sep := range sectionSeparators {
		parts := splitKeepingDelimiter(content, sep)
		if len(parts) > 1 {
			return parts
		}
	}

	var sections []string
	for _, p := range strings.Split(content, "\n\n") {
		if p = strings.TrimSpace(p); len(p) > 50 {
			sections = append(sections, p)
		}
	}
	return sections
}

func splitKeepingDelimiter(content string, sep *regexp.Regexp) []string {
	locs := sep.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return nil
	}

	var parts []string
	prev := 0
	for _, loc := range locs {
		if chunk := strings.TrimSpace(content[prev:loc[0]]); chunk != "" {
			parts = append(parts, chunk)
		}
		prev = loc[0]
	}
	if chunk := strings.TrimSpace(content[prev:]); chunk != "" {
		parts = append(parts, chunk)
	}
	return parts
}

// RecordFromSection applies the schema's field patterns to one text section.
// A failing required field discards the section; defaults fill optional
// gaps. Sections yielding neither a title nor a date are noise, not records.
func RecordFromSection(section string, schema Schema) (domain.RawRecord, bool) {
	record := domain.RawRecord{}

	for name, rule := range schema.Fields {
		value := extractFieldPattern(section, rule)
		if value == "" {
			if rule.Required {
				return nil, false
			}
			value = rule.Default
		}
		if value != "" {
			record[name] = value
		}
	}

	if record["titulo"] == "" && record["fecha"] == "" && record["title"] == "" {
		return nil, false
	}

	if !passesWordFilters(section, schema) {
		return nil, false
	}

	return record, true
}

func extractFieldPattern(section string, rule FieldRule) string {
	if rule.Pattern == "" {
		return ""
	}
	expr, err := regexp.Compile(`(?im)` + rule.Pattern)
	if err != nil {
		return ""
	}

	match := expr.FindStringSubmatch(section)
	if match == nil {
		return ""
	}
	value := match[0]
	if len(match) > 1 && match[1] != "" {
		value = match[1]
	}
	return cleanText(value)
}

func passesWordFilters(section string, schema Schema) bool {
	lower := strings.ToLower(section)

	if len(schema.Keywords) > 0 {
		found := false
		for _, kw := range schema.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, word := range schema.ExcludeWords {
		if strings.Contains(lower, strings.ToLower(word)) {
			return false
		}
	}
	return true
}

func cleanText(text string) string {
	text = controlExpr.ReplaceAllString(text, "")
	return strings.TrimSpace(spaceExpr.ReplaceAllString(text, " "))
}
