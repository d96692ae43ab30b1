package extractor

import (
	"context"
	"fmt"
	"path"
	"strings"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/ports"
)

var documentExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// DocumentExtractor handles sources whose programming lives in linked
// documents (PDF brochures, poster images). Candidates are the document
// links on the page; extraction converts the document to text and parses
// it section by section. Registered for both PDF and image sources since
// the conversion capability hides the format difference.
type DocumentExtractor struct {
	links     ports.LinkFetcher
	converter ports.DocumentConverter
}

func NewDocumentExtractor(links ports.LinkFetcher, converter ports.DocumentConverter) *DocumentExtractor {
	return &DocumentExtractor{links: links, converter: converter}
}

// Name identifies the strategy.
func (e *DocumentExtractor) Name() string { return "document" }

// Candidates keeps only links pointing at convertible documents.
func (e *DocumentExtractor) Candidates(ctx context.Context, url string) ([]domain.CandidateItem, error) {
	links, err := e.links.FetchLinks(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch links from %s: %w", url, err)
	}

	var items []domain.CandidateItem
	for i, link := range links {
		if !isDocumentLink(link.Href) {
			continue
		}
		label := strings.TrimSpace(link.Text)
		if label == "" {
			label = path.Base(link.Href)
		}
		items = append(items, domain.CandidateItem{
			Label:    label,
			Locator:  link.Href,
			Position: i,
		})
	}
	return items, nil
}

// Extract converts the document and parses each section into a record.
func (e *DocumentExtractor) Extract(ctx context.Context, item domain.CandidateItem, schema Schema) ([]domain.RawRecord, error) {
	text, err := e.converter.Convert(ctx, item.Locator)
	if err != nil {
		return nil, fmt.Errorf("convert %s: %w", item.Locator, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty conversion result for %s", ports.ErrConversionFailed, item.Locator)
	}

	var records []domain.RawRecord
	for _, section := range SplitSections(text) {
		if record, ok := RecordFromSection(section, schema); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func isDocumentLink(href string) bool {
	trimmed := href
	if i := strings.IndexAny(trimmed, "?#"); i >= 0 {
		trimmed = trimmed[:i]
	}
	return documentExtensions[strings.ToLower(path.Ext(trimmed))]
}
