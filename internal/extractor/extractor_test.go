package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ActivityScanner/internal/domain"
)

type fakeLinkFetcher struct {
	links []domain.Link
	err   error
}

func (f *fakeLinkFetcher) FetchLinks(_ context.Context, _ string) ([]domain.Link, error) {
	return f.links, f.err
}

type fakePageFetcher struct {
	text string
	err  error
}

func (f *fakePageFetcher) FetchPageText(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

type fakeConverter struct {
	text string
	err  error
}

func (f *fakeConverter) Convert(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

func TestSplitSectionsByBullets(t *testing.T) {
	content := "Programación de mayo\n- Taller de memoria el 5 de mayo\n- Baile en el centro, 12 de mayo\n- Excursión a la sierra"

	sections := SplitSections(content)

	require.Len(t, sections, 4)
	assert.Contains(t, sections[1], "Taller de memoria")
	assert.Contains(t, sections[3], "Excursión")
}

func TestSplitSectionsKeepsDateOnFollowingChunk(t *testing.T) {
	content := "Cabecera del folleto\n05/05/2025 Taller de memoria\n12/05/2025 Baile de salón"

	sections := SplitSections(content)

	require.Len(t, sections, 3)
	assert.Contains(t, sections[1], "05/05/2025")
	assert.Contains(t, sections[2], "12/05/2025")
}

func TestSplitSectionsParagraphFallback(t *testing.T) {
	content := "corto\n\neste párrafo describe una actividad con suficiente detalle como para superar el umbral\n\notro corto"

	sections := SplitSections(content)

	require.Len(t, sections, 1)
	assert.Contains(t, sections[0], "suficiente detalle")
}

func TestRecordFromSection(t *testing.T) {
	schema := Schema{
		Fields: map[string]FieldRule{
			"titulo": {Pattern: `^(.+?)(?:\n|$)`, Required: true},
			"fecha":  {Pattern: `(\d{1,2}/\d{1,2}/\d{4})`},
			"precio": {Pattern: `(\d+[,.]\d{2})\s*€`, Default: "Gratis"},
		},
	}

	record, ok := RecordFromSection("Taller de memoria\nFecha: 05/05/2025, precio 7,50 €", schema)

	require.True(t, ok)
	assert.Equal(t, "Taller de memoria", record["titulo"])
	assert.Equal(t, "05/05/2025", record["fecha"])
	assert.Equal(t, "7,50", record["precio"])
}

func TestRecordFromSectionRequiredFieldMissing(t *testing.T) {
	schema := Schema{
		Fields: map[string]FieldRule{
			"fecha": {Pattern: `(\d{1,2}/\d{1,2}/\d{4})`, Required: true},
		},
	}

	_, ok := RecordFromSection("texto sin fecha alguna", schema)
	assert.False(t, ok)
}

func TestRecordFromSectionDefaultFillsGap(t *testing.T) {
	schema := Schema{
		Fields: map[string]FieldRule{
			"titulo": {Pattern: `^(.+?)(?:\n|$)`, Required: true},
			"precio": {Pattern: `(\d+[,.]\d{2})\s*€`, Default: "Gratis"},
		},
	}

	record, ok := RecordFromSection("Paseo saludable por el parque", schema)

	require.True(t, ok)
	assert.Equal(t, "Gratis", record["precio"])
}

func TestRecordFromSectionWordFilters(t *testing.T) {
	schema := Schema{
		Fields: map[string]FieldRule{
			"titulo": {Pattern: `^(.+?)(?:\n|$)`},
		},
		Keywords:     []string{"mayores"},
		ExcludeWords: []string{"infantil"},
	}

	_, ok := RecordFromSection("Taller para jóvenes", schema)
	assert.False(t, ok, "section without any keyword must be dropped")

	_, ok = RecordFromSection("Taller infantil para mayores", schema)
	assert.False(t, ok, "excluded word overrides keyword match")

	record, ok := RecordFromSection("Gimnasia para mayores", schema)
	require.True(t, ok)
	assert.Equal(t, "Gimnasia para mayores", record["titulo"])
}

func TestHTMLCandidatesSkipEmptyLabels(t *testing.T) {
	fetcher := &fakeLinkFetcher{links: []domain.Link{
		{Text: "Actividades mayo 2025", Href: "https://example.org/mayo"},
		{Text: "   ", Href: "https://example.org/empty"},
		{Text: "Programación junio", Href: "https://example.org/junio"},
	}}
	e := NewHTMLExtractor(fetcher, nil, nil)

	items, err := e.Candidates(context.Background(), "https://example.org")

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Actividades mayo 2025", items[0].Label)
	assert.Equal(t, 0, items[0].Position)
	assert.Equal(t, 2, items[1].Position, "position reflects the original link order")
}

func TestHTMLExtractWithSelectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html><body>
			<div class="evento">
			  <h3>Taller de memoria</h3>
			  <span class="fecha">5 de mayo de 2025</span>
			</div>
			<div class="evento">
			  <h3>Baile de salón</h3>
			  <span class="fecha">12 de mayo de 2025</span>
			</div>
		</body></html>`))
	}))
	defer srv.Close()

	e := NewHTMLExtractor(&fakeLinkFetcher{}, nil, srv.Client())
	schema := Schema{
		Container: "div.evento",
		Fields: map[string]FieldRule{
			"titulo": {Selector: "h3"},
			"fecha":  {Selector: "span.fecha"},
		},
	}

	records, err := e.Extract(context.Background(), domain.CandidateItem{Locator: srv.URL}, schema)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Taller de memoria", records[0]["titulo"])
	assert.Equal(t, "12 de mayo de 2025", records[1]["fecha"])
}

func TestHTMLExtractSelectorlessFallsBackToPageText(t *testing.T) {
	pages := &fakePageFetcher{text: "Programación\n- Taller de costura 05/05/2025\n- Coro de mayores 12/05/2025"}
	e := NewHTMLExtractor(&fakeLinkFetcher{}, pages, nil)
	schema := Schema{
		Fields: map[string]FieldRule{
			"fecha": {Pattern: `(\d{1,2}/\d{1,2}/\d{4})`, Required: true},
		},
	}

	records, err := e.Extract(context.Background(), domain.CandidateItem{Locator: "https://example.org/p"}, schema)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "05/05/2025", records[0]["fecha"])
}

func TestDocumentCandidatesFilterByExtension(t *testing.T) {
	fetcher := &fakeLinkFetcher{links: []domain.Link{
		{Text: "Folleto mayo", Href: "https://example.org/folleto-mayo.pdf"},
		{Text: "Inicio", Href: "https://example.org/"},
		{Text: "", Href: "https://example.org/cartel.jpg?v=2"},
	}}
	e := NewDocumentExtractor(fetcher, &fakeConverter{})

	items, err := e.Candidates(context.Background(), "https://example.org")

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Folleto mayo", items[0].Label)
	assert.Equal(t, "cartel.jpg", items[1].Label, "empty link text falls back to the file name")
}

func TestDocumentExtract(t *testing.T) {
	conv := &fakeConverter{text: "ACTIVIDADES DE MAYO PARA MAYORES\n- Taller de memoria 05/05/2025\n- Petanca en el parque 07/05/2025"}
	e := NewDocumentExtractor(&fakeLinkFetcher{}, conv)
	schema := Schema{
		Fields: map[string]FieldRule{
			"fecha": {Pattern: `(\d{1,2}/\d{1,2}/\d{4})`, Required: true},
		},
	}

	records, err := e.Extract(context.Background(), domain.CandidateItem{Locator: "https://example.org/folleto.pdf"}, schema)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "07/05/2025", records[1]["fecha"])
}

func TestDocumentExtractEmptyConversion(t *testing.T) {
	e := NewDocumentExtractor(&fakeLinkFetcher{}, &fakeConverter{text: "   \n  "})

	_, err := e.Extract(context.Background(), domain.CandidateItem{Locator: "https://example.org/f.pdf"}, Schema{})
	assert.Error(t, err)
}

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry()
	html := NewHTMLExtractor(&fakeLinkFetcher{}, nil, nil)
	r.Register(domain.SourceHTML, html)

	got, err := r.Resolve(domain.SourceHTML)
	require.NoError(t, err)
	assert.Equal(t, "html", got.Name())

	_, err = r.Resolve(domain.SourcePDF)
	assert.Error(t, err)
}
