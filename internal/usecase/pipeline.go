package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"ActivityScanner/internal/dedup"
	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/extractor"
	"ActivityScanner/internal/normalizer"
	"ActivityScanner/internal/ports"
	"ActivityScanner/internal/ranking"
	"ActivityScanner/internal/supervisor"
	"ActivityScanner/internal/temporal"
)

// State names the phase a run is in. Transitions are linear with a detour
// through error handling; a run always finishes in StateCompleted.
type State string

const (
	StateInit        State = "INIT"
	StateScraping    State = "SCRAPING"
	StateProcessing  State = "PROCESSING"
	StateSupervising State = "SUPERVISING"
	StateCompleted   State = "COMPLETED"
)

const maxScrapingErrors = 2

// Source is one configured listing source handed to the pipeline per run.
type Source struct {
	Name         string
	URL          string
	Type         domain.SourceType
	Schema       extractor.Schema
	FieldMapping map[string]string
	Selection    ranking.Criteria
}

// Deps collects the pipeline's collaborators.
type Deps struct {
	Registry   *extractor.Registry
	Ranker     *ranking.Ranker
	Normalizer *normalizer.Normalizer
	Supervisor *supervisor.Supervisor
	Gate       *dedup.Gate
	RunLog     ports.RunLogRepository
	Observers  []ports.RunObserver
	Logger     *slog.Logger

	// MaxConcurrent bounds parallel item extraction; ItemTimeout caps one
	// item's extraction. Zero values get defaults.
	MaxConcurrent int
	ItemTimeout   time.Duration

	// Now is swappable for tests.
	Now func() time.Time
}

// Pipeline runs the full scrape→process→supervise→persist cycle for one
// source. A stage failure or guard violation routes through the error
// handler, which still produces a complete, logged summary.
type Pipeline struct {
	deps Deps
}

// NewPipeline applies defaults and builds the orchestrator.
func NewPipeline(deps Deps) *Pipeline {
	if deps.MaxConcurrent <= 0 {
		deps.MaxConcurrent = 3
	}
	if deps.ItemTimeout <= 0 {
		deps.ItemTimeout = 45 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{deps: deps}
}

// run carries the mutable state of one cycle.
type run struct {
	id      string
	source  Source
	state   State
	started time.Time
	errors  []string

	records  []domain.RawRecord
	events   []domain.Event
	strategy temporal.Strategy
}

// Run executes one full cycle for the source and returns its summary. The
// summary is complete in every outcome, including precondition faults.
func (p *Pipeline) Run(ctx context.Context, source Source) domain.RunSummary {
	if err := validateSource(source); err != nil {
		p.deps.Logger.Error("source rejected before run", "source", source.Name, "error", err)
		return domain.RunSummary{
			RunID:      uuid.NewString(),
			SourceName: source.Name,
			SourceURL:  source.URL,
			Decision:   domain.StatusError,
			Reasoning:  "precondition failed: " + err.Error(),
			Errors:     []string{err.Error()},
		}
	}

	r := &run{
		id:      uuid.NewString(),
		source:  source,
		state:   StateInit,
		started: p.deps.Now(),
	}
	logger := p.deps.Logger.With("run_id", r.id, "source", source.Name)
	logger.Info("run started", "url", source.URL, "type", string(source.Type))

	r.state = StateScraping
	p.stage(r, "scraping", func() error { return p.scrape(ctx, r) })
	if len(r.records) == 0 || len(r.errors) > maxScrapingErrors {
		return p.handleError(ctx, r, logger,
			fmt.Sprintf("scraping yielded %d records with %d errors", len(r.records), len(r.errors)))
	}

	r.state = StateProcessing
	p.stage(r, "processing", func() error { return p.process(r) })
	if len(r.events) == 0 {
		return p.handleError(ctx, r, logger, "no events survived normalization")
	}

	r.state = StateSupervising
	decision, validation := p.deps.Supervisor.Supervise(ctx, r.events, r.errors)

	if len(decision.ApprovedEvents) > 0 {
		result := p.deps.Gate.AdmitBatch(ctx, decision.ApprovedEvents)
		r.errors = append(r.errors, result.Errors...)
		logger.Info("events persisted", "inserted", result.Inserted, "duplicates", result.Duplicates)
	}

	r.state = StateCompleted
	summary := p.summarize(r, decision, validation.QualityScore())
	p.finish(ctx, summary, logger)
	return summary
}

// stage runs one phase with panic containment. A panicking stage leaves its
// outputs empty and records the fault as a stage error.
func (p *Pipeline) stage(r *run, name string, fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.errors = append(r.errors, fmt.Sprintf("%s stage panicked: %v", name, rec))
		}
	}()
	if err := fn(); err != nil {
		r.errors = append(r.errors, fmt.Sprintf("%s: %v", name, err))
	}
}

func (p *Pipeline) scrape(ctx context.Context, r *run) error {
	ext, err := p.deps.Registry.Resolve(r.source.Type)
	if err != nil {
		return err
	}

	candidates, err := withRetry(ctx, func() ([]domain.CandidateItem, error) {
		return ext.Candidates(ctx, r.source.URL)
	})
	if err != nil {
		return fmt.Errorf("discover candidates: %w", err)
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no candidate items on %s", r.source.URL)
	}

	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.Label
	}
	report := temporal.DetectPatterns(labels)
	r.strategy = temporal.StrategyFor(report.Dominant)

	ranked := p.deps.Ranker.Rank(candidates, r.strategy, p.deps.Now())
	selection := p.deps.Ranker.Select(ranked, r.source.Selection)
	for _, rej := range selection.Rejected {
		p.deps.Logger.Debug("candidate not selected",
			"label", rej.Item.Label, "reasons", rej.Reasons)
	}
	if len(selection.Selected) == 0 {
		return fmt.Errorf("no candidates passed selection on %s", r.source.URL)
	}

	records, itemErrors := p.extractSelected(ctx, ext, selection.Selected, r.source.Schema)
	r.records = records
	r.errors = append(r.errors, itemErrors...)
	return nil
}

// extractSelected pulls records from each chosen item concurrently. One
// item's timeout or panic becomes an error entry; the rest keep going.
func (p *Pipeline) extractSelected(ctx context.Context, ext extractor.Extractor, items []domain.RankedItem, schema extractor.Schema) ([]domain.RawRecord, []string) {
	var (
		mu      sync.Mutex
		records []domain.RawRecord
		errors  []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.deps.MaxConcurrent)
	for _, item := range items {
		item := item
		g.Go(func() error {
			defer func() {
				if rec := recover(); rec != nil {
					mu.Lock()
					errors = append(errors, fmt.Sprintf("item %q: extraction panicked: %v", item.Item.Label, rec))
					mu.Unlock()
				}
			}()

			itemCtx, cancel := context.WithTimeout(gctx, p.deps.ItemTimeout)
			defer cancel()

			got, err := withRetry(itemCtx, func() ([]domain.RawRecord, error) {
				return ext.Extract(itemCtx, item.Item, schema)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errors = append(errors, fmt.Sprintf("item %q: %v", item.Item.Label, err))
				return nil
			}
			records = append(records, got...)
			return nil
		})
	}
	_ = g.Wait() // item failures are collected above, never propagated

	return records, errors
}

func (p *Pipeline) process(r *run) error {
	events, rejections := p.deps.Normalizer.NormalizeBatch(r.records, r.source.FieldMapping)
	for i := range events {
		events[i].SourceName = r.source.Name
		events[i].SourceURL = r.source.URL
	}
	r.events = events
	for _, reason := range rejections {
		p.deps.Logger.Debug("record rejected in normalization", "source", r.source.Name, "reason", reason)
	}
	return nil
}

// handleError resolves a failed run to COMPLETED with an ERROR decision. The
// run log still gets its row.
func (p *Pipeline) handleError(ctx context.Context, r *run, logger *slog.Logger, cause string) domain.RunSummary {
	logger.Warn("run routed to error handling", "state", string(r.state), "cause", cause)
	r.state = StateCompleted

	decision := domain.SupervisionDecision{
		Status:         domain.StatusError,
		Reasoning:      cause,
		ApprovedEvents: []domain.Event{},
		RejectedEvents: []domain.RejectedEvent{},
	}
	summary := p.summarize(r, decision, 0)
	p.finish(ctx, summary, logger)
	return summary
}

func (p *Pipeline) summarize(r *run, decision domain.SupervisionDecision, quality float64) domain.RunSummary {
	errors := r.errors
	if errors == nil {
		errors = []string{}
	}
	return domain.RunSummary{
		RunID:           r.id,
		SourceName:      r.source.Name,
		SourceURL:       r.source.URL,
		Decision:        decision.Status,
		Reasoning:       decision.Reasoning,
		EventsApproved:  len(decision.ApprovedEvents),
		EventsRejected:  len(decision.RejectedEvents),
		DurationSeconds: p.deps.Now().Sub(r.started).Seconds(),
		QualityScore:    quality,
		StrategyUsed:    string(r.strategy),
		Errors:          errors,
	}
}

func (p *Pipeline) finish(ctx context.Context, summary domain.RunSummary, logger *slog.Logger) {
	if p.deps.RunLog != nil {
		if err := p.deps.RunLog.AppendRunLog(ctx, summary); err != nil {
			logger.Error("run log append failed", "error", err)
		}
	}
	for _, obs := range p.deps.Observers {
		obs.ObserveRun(summary)
	}
	logger.Info("run completed",
		"decision", string(summary.Decision),
		"approved", summary.EventsApproved,
		"rejected", summary.EventsRejected,
		"duration_s", summary.DurationSeconds,
		"errors", len(summary.Errors))
}

func validateSource(source Source) error {
	u, err := url.Parse(source.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source %q: URL must be http(s), got %q", source.Name, source.URL)
	}
	if !source.Type.Valid() {
		return fmt.Errorf("source %q: unsupported type %q", source.Name, source.Type)
	}
	return nil
}

// withRetry calls fn and retries exactly once when the failure is transient.
// Permanent failures and context cancellation return immediately.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	out, err := fn()
	if err == nil || !ports.Transient(err) || ctx.Err() != nil {
		return out, err
	}
	return fn()
}
