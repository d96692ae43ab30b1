package extractor

import (
	"context"
	"fmt"

	"ActivityScanner/internal/domain"
)

// FieldRule tells an extractor where one record field lives: a CSS selector
// (HTML sources) or a regular expression with an optional capture group
// (text sources), plus a default when nothing matches.
type FieldRule struct {
	Selector string
	Attr     string
	Pattern  string
	Default  string
	Required bool
}

// Schema is the per-source extraction configuration: the container that
// delimits one record and the rules for each field inside it. Keywords and
// exclusions filter obviously irrelevant records early.
type Schema struct {
	Container    string
	Fields       map[string]FieldRule
	Keywords     []string
	ExcludeWords []string
}

// Extractor is one extraction strategy: it discovers candidate items on a
// source page and turns a selected item into raw records.
type Extractor interface {
	Name() string
	Candidates(ctx context.Context, url string) ([]domain.CandidateItem, error)
	Extract(ctx context.Context, item domain.CandidateItem, schema Schema) ([]domain.RawRecord, error)
}

// Registry maps source types to their extraction strategies.
type Registry struct {
	extractors map[domain.SourceType]Extractor
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: map[domain.SourceType]Extractor{}}
}

// Register adds or replaces the strategy for a source type.
func (r *Registry) Register(sourceType domain.SourceType, e Extractor) {
	if r.extractors == nil {
		r.extractors = map[domain.SourceType]Extractor{}
	}
	r.extractors[sourceType] = e
}

// Resolve returns the strategy for a source type or an error if absent.
func (r *Registry) Resolve(sourceType domain.SourceType) (Extractor, error) {
	if e, ok := r.extractors[sourceType]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("no extractor registered for source type %s", sourceType)
}
