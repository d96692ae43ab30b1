package extractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/ports"
)

// HTMLExtractor discovers candidates through the headless-browser link
// capability and extracts records with CSS selectors over the static page.
// Sources without selector configuration fall back to rendered-text section
// parsing.
type HTMLExtractor struct {
	links  ports.LinkFetcher
	pages  ports.PageFetcher
	client *http.Client
}

// NewHTMLExtractor wires the capabilities; a nil client gets a 20s default.
func NewHTMLExtractor(links ports.LinkFetcher, pages ports.PageFetcher, client *http.Client) *HTMLExtractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &HTMLExtractor{links: links, pages: pages, client: client}
}

// Name identifies the strategy.
func (e *HTMLExtractor) Name() string { return "html" }

// Candidates lists the page's links as candidate items, keeping their
// original order as position.
func (e *HTMLExtractor) Candidates(ctx context.Context, url string) ([]domain.CandidateItem, error) {
	links, err := e.links.FetchLinks(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch links from %s: %w", url, err)
	}

	items := make([]domain.CandidateItem, 0, len(links))
	for i, link := range links {
		label := strings.TrimSpace(link.Text)
		if label == "" {
			continue
		}
		items = append(items, domain.CandidateItem{
			Label:    label,
			Locator:  link.Href,
			Position: i,
		})
	}
	return items, nil
}

// Extract pulls records from the page behind a selected item. With a
// container selector each match becomes one record via field selectors;
// without, the rendered text goes through the section parser.
func (e *HTMLExtractor) Extract(ctx context.Context, item domain.CandidateItem, schema Schema) ([]domain.RawRecord, error) {
	if schema.Container == "" {
		return e.extractFromText(ctx, item, schema)
	}

	doc, err := e.fetchDocument(ctx, item.Locator)
	if err != nil {
		return nil, err
	}

	var records []domain.RawRecord
	doc.Find(schema.Container).Each(func(_ int, sel *goquery.Selection) {
		record := domain.RawRecord{}
		for name, rule := range schema.Fields {
			if rule.Selector == "" {
				continue
			}
			field := sel.Find(rule.Selector).First()
			var value string
			if rule.Attr != "" {
				value, _ = field.Attr(rule.Attr)
			} else {
				value = field.Text()
			}
			value = cleanText(value)
			if value == "" {
				value = rule.Default
			}
			if value != "" {
				record[name] = value
			}
		}
		if len(record) > 0 && passesWordFilters(sel.Text(), schema) {
			records = append(records, record)
		}
	})

	return records, nil
}

func (e *HTMLExtractor) extractFromText(ctx context.Context, item domain.CandidateItem, schema Schema) ([]domain.RawRecord, error) {
	if e.pages == nil {
		return nil, fmt.Errorf("no page-text capability for selector-less source %s", item.Locator)
	}

	text, err := e.pages.FetchPageText(ctx, item.Locator)
	if err != nil {
		return nil, fmt.Errorf("fetch page text from %s: %w", item.Locator, err)
	}

	var records []domain.RawRecord
	for _, section := range SplitSections(text) {
		if record, ok := RecordFromSection(section, schema); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

func (e *HTMLExtractor) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ActivityScanner/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrNavigationFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: %s returned %s", ports.ErrNavigationFailed, pageURL, resp.Status)
	default:
		return nil, fmt.Errorf("%w: %s returned %s", ports.ErrRestricted, pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}
