package usecase

import (
	"context"
	"log/slog"
	"time"

	"ActivityScanner/internal/ports"
)

// Scheduler wires the interval driver with the pipeline: one run per
// enabled source per cycle.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	sources  []Source
	logger   *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring cycles.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, sources []Source, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, pipeline: pipeline, sources: sources, logger: logger}
}

// Start registers the per-cycle job with the driver. Sources run
// sequentially inside a cycle; concurrency lives inside each run.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.logger.Info("cycle started", "trigger", trigger, "sources", len(s.sources))
		for _, source := range s.sources {
			if ctx.Err() != nil {
				return
			}
			s.pipeline.Run(ctx, source)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying driver.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
