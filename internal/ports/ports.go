package ports

import (
	"context"
	"time"

	"ActivityScanner/internal/domain"
)

// LinkFetcher lists every anchor on a page with its text and absolute href.
type LinkFetcher interface {
	FetchLinks(ctx context.Context, url string) ([]domain.Link, error)
}

// PageFetcher retrieves the rendered text content of a page.
type PageFetcher interface {
	FetchPageText(ctx context.Context, url string) (string, error)
}

// DocumentConverter turns a document (PDF, scanned image) into plain text.
type DocumentConverter interface {
	Convert(ctx context.Context, url string) (string, error)
}

// Judge is the external non-deterministic quality gate. Its output is
// advisory; decision strings outside the expected set must be tolerated.
type Judge interface {
	Judge(ctx context.Context, sample []domain.Event, criteria string, priorErrors []string) (domain.Judgment, error)
}

// EventRepository persists normalized events and answers duplicate lookups.
type EventRepository interface {
	FindByFingerprint(ctx context.Context, fingerprint string) (*domain.Event, error)
	FindByTriple(ctx context.Context, title string, startDate time.Time, location string) (*domain.Event, error)
	Upsert(ctx context.Context, event domain.Event) error
	BackfillFingerprint(ctx context.Context, title string, startDate time.Time, location, fingerprint string) error
}

// RunObserver receives the summary of every finished run. Implementations
// export it elsewhere (metrics, operator notifications).
type RunObserver interface {
	ObserveRun(summary domain.RunSummary)
}

// RunLogRepository appends one summary row per completed pipeline run.
type RunLogRepository interface {
	AppendRunLog(ctx context.Context, summary domain.RunSummary) error
}

// Scheduler controls when pipeline cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
