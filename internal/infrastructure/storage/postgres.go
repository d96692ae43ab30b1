package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/ports"
)

// PostgresRepository persists normalized events and run summaries.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.EventRepository  = (*PostgresRepository)(nil)
	_ ports.RunLogRepository = (*PostgresRepository)(nil)
)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS events (
    id           BIGSERIAL PRIMARY KEY,
    fingerprint  TEXT UNIQUE,
    title        TEXT NOT NULL,
    start_date   DATE NOT NULL,
    end_date     DATE,
    category     TEXT NOT NULL,
    price        TEXT NOT NULL DEFAULT 'Gratis',
    location     TEXT NOT NULL DEFAULT '',
    description  TEXT NOT NULL DEFAULT '',
    source_name  TEXT NOT NULL DEFAULT '',
    source_url   TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (title, start_date, location)
);

CREATE TABLE IF NOT EXISTS run_log (
    run_id           TEXT PRIMARY KEY,
    source_name      TEXT NOT NULL,
    source_url       TEXT NOT NULL,
    decision         TEXT NOT NULL,
    reasoning        TEXT NOT NULL DEFAULT '',
    events_approved  INT NOT NULL DEFAULT 0,
    events_rejected  INT NOT NULL DEFAULT 0,
    duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
    quality_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
    strategy_used    TEXT NOT NULL DEFAULT '',
    errors           TEXT[] NOT NULL DEFAULT '{}',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// Migrate creates the schema if it is missing.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

var eventColumns = []string{
	"fingerprint", "title", "start_date", "end_date", "category",
	"price", "location", "description", "source_name", "source_url",
}

// FindByFingerprint returns the stored event with this fingerprint, or nil.
func (r *PostgresRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*domain.Event, error) {
	query := r.builder.
		Select(eventColumns...).
		From("events").
		Where(sq.Eq{"fingerprint": fingerprint})

	return r.queryOne(ctx, query)
}

// FindByTriple looks an event up by its structural identity.
func (r *PostgresRepository) FindByTriple(ctx context.Context, title string, startDate time.Time, location string) (*domain.Event, error) {
	query := r.builder.
		Select(eventColumns...).
		From("events").
		Where(sq.Eq{
			"title":      title,
			"start_date": startDate,
			"location":   location,
		})

	return r.queryOne(ctx, query)
}

// Upsert inserts the event or refreshes the mutable columns of an existing
// row with the same fingerprint.
func (r *PostgresRepository) Upsert(ctx context.Context, event domain.Event) error {
	var endDate any
	if !event.EndDate.IsZero() {
		endDate = event.EndDate
	}

	sqlStr, args, err := r.builder.
		Insert("events").
		Columns(eventColumns...).
		Values(
			event.Fingerprint, event.Title, event.StartDate, endDate, event.Category,
			event.Price, event.Location, event.Description, event.SourceName, event.SourceURL,
		).
		Suffix(`ON CONFLICT (fingerprint) DO UPDATE
                SET category = EXCLUDED.category,
                    price = EXCLUDED.price,
                    description = EXCLUDED.description,
                    end_date = EXCLUDED.end_date,
                    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	return nil
}

// BackfillFingerprint fills the fingerprint of a legacy row found by triple.
func (r *PostgresRepository) BackfillFingerprint(ctx context.Context, title string, startDate time.Time, location, fingerprint string) error {
	sqlStr, args, err := r.builder.
		Update("events").
		Set("fingerprint", fingerprint).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{
			"title":      title,
			"start_date": startDate,
			"location":   location,
		}).
		Where("fingerprint IS NULL OR fingerprint = ''").
		ToSql()
	if err != nil {
		return fmt.Errorf("build backfill: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("backfill fingerprint: %w", err)
	}
	return nil
}

// AppendRunLog writes one summary row per finished run.
func (r *PostgresRepository) AppendRunLog(ctx context.Context, summary domain.RunSummary) error {
	sqlStr, args, err := r.builder.
		Insert("run_log").
		Columns("run_id", "source_name", "source_url", "decision", "reasoning",
			"events_approved", "events_rejected", "duration_seconds",
			"quality_score", "strategy_used", "errors").
		Values(summary.RunID, summary.SourceName, summary.SourceURL,
			string(summary.Decision), summary.Reasoning,
			summary.EventsApproved, summary.EventsRejected, summary.DurationSeconds,
			summary.QualityScore, summary.StrategyUsed, pq.Array(summary.Errors)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run log insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("append run log: %w", err)
	}
	return nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query sq.SelectBuilder) (*domain.Event, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	row := r.db.QueryRowContext(ctx, sqlStr, args...)

	var (
		event       domain.Event
		fingerprint sql.NullString
		endDate     sql.NullTime
	)
	err = row.Scan(
		&fingerprint, &event.Title, &event.StartDate, &endDate, &event.Category,
		&event.Price, &event.Location, &event.Description, &event.SourceName, &event.SourceURL,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	event.Fingerprint = fingerprint.String
	if endDate.Valid {
		event.EndDate = endDate.Time
	}
	return &event, nil
}
