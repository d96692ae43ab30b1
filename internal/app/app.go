package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ActivityScanner/internal/config"
	"ActivityScanner/internal/dedup"
	"ActivityScanner/internal/domain"
	"ActivityScanner/internal/extractor"
	"ActivityScanner/internal/infrastructure/browser"
	"ActivityScanner/internal/infrastructure/docconv"
	"ActivityScanner/internal/infrastructure/llm"
	"ActivityScanner/internal/infrastructure/scheduler"
	"ActivityScanner/internal/infrastructure/storage"
	"ActivityScanner/internal/infrastructure/telegram"
	"ActivityScanner/internal/logging"
	"ActivityScanner/internal/normalizer"
	"ActivityScanner/internal/ports"
	"ActivityScanner/internal/ranking"
	"ActivityScanner/internal/supervisor"
	"ActivityScanner/internal/usecase"
	"ActivityScanner/pkg/metrics"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	db         *sql.DB
	fetcher    *browser.Fetcher
	scheduler  *usecase.Scheduler
	metricsSrv *http.Server
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.LogLevel)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	repo := storage.NewPostgresRepository(db)

	fetcher := browser.New(browser.Options{
		Timeout:   cfg.Browser.PageTimeout.Std(),
		UserAgent: cfg.Browser.UserAgent,
	}, baseLogger.With("component", "browser"))

	converter := docconv.NewClient(cfg.Converter.Endpoint, cfg.Converter.APIKey, cfg.Converter.Timeout.Std())

	registry := extractor.NewRegistry()
	registry.Register(domain.SourceHTML, extractor.NewHTMLExtractor(fetcher, fetcher, nil))
	docExtractor := extractor.NewDocumentExtractor(fetcher, converter)
	registry.Register(domain.SourcePDF, docExtractor)
	registry.Register(domain.SourceImage, docExtractor)

	var judge ports.Judge
	if cfg.Judge.APIKey != "" {
		judge = llm.NewJudgeClient(llm.Options{
			Endpoint:     cfg.Judge.Endpoint,
			Model:        cfg.Judge.Model,
			APIKey:       cfg.Judge.APIKey,
			SystemPrompt: cfg.Judge.SystemPrompt,
			Timeout:      cfg.Judge.Timeout.Std(),
		})
	}

	observers := []ports.RunObserver{metrics.New()}
	if cfg.Notifications.Telegram.BotToken != "" {
		observers = append(observers, telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
			baseLogger.With("component", "telegram"),
		))
	}

	pipeline := usecase.NewPipeline(usecase.Deps{
		Registry:   registry,
		Ranker:     ranking.New(ranking.DefaultWeights()),
		Normalizer: normalizer.New(cfg.Supervision.ValidCategories),
		Supervisor: supervisor.New(judge, supervisionCriteria(cfg.Supervision),
			cfg.Judge.Timeout.Std(), baseLogger.With("component", "supervisor")),
		Gate:          dedup.New(repo, baseLogger.With("component", "dedup")),
		RunLog:        repo,
		Observers:     observers,
		Logger:        baseLogger.With("component", "pipeline"),
		MaxConcurrent: cfg.Pipeline.MaxConcurrent,
		ItemTimeout:   cfg.Pipeline.ItemTimeout.Std(),
	})

	sources, err := buildSources(cfg)
	if err != nil {
		return nil, err
	}

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval.Std())
	sched := usecase.NewScheduler(driver, pipeline, sources, baseLogger.With("component", "scheduler"))

	app := &Application{
		cfg:       cfg,
		logger:    baseLogger,
		db:        db,
		fetcher:   fetcher,
		scheduler: sched,
	}
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		app.metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	}
	return app, nil
}

// Run migrates storage, starts the scan cycles, and blocks until the context
// is canceled.
func (a *Application) Run(ctx context.Context) error {
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := storage.NewPostgresRepository(a.db).Migrate(migrateCtx); err != nil {
		return err
	}

	if a.metricsSrv != nil {
		go func() {
			if err := a.metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scanner running", "interval", a.cfg.Scheduler.Interval.Std().String())

	<-ctx.Done()
	return a.shutdown()
}

func (a *Application) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.scheduler.Stop(ctx); err != nil {
		a.logger.Warn("scheduler stop failed", "error", err)
	}
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
	a.fetcher.Close()
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func supervisionCriteria(cfg config.SupervisionConfig) supervisor.Criteria {
	criteria := supervisor.DefaultCriteria()
	if len(cfg.RequiredFields) > 0 {
		criteria.RequiredFields = cfg.RequiredFields
	}
	if len(cfg.ValidCategories) > 0 {
		criteria.ValidCategories = cfg.ValidCategories
	}
	if cfg.MaxPrice > 0 {
		criteria.MaxPrice = cfg.MaxPrice
	}
	if cfg.MinEvents > 0 {
		criteria.MinEvents = cfg.MinEvents
	}
	return criteria
}

func buildSources(cfg config.Config) ([]usecase.Source, error) {
	var sources []usecase.Source
	for _, sc := range cfg.Sources {
		if !sc.IsEnabled() {
			continue
		}

		sourceType := domain.SourceType(sc.Type)
		if !sourceType.Valid() {
			return nil, fmt.Errorf("source %q: unsupported type %q", sc.Name, sc.Type)
		}

		fields := make(map[string]extractor.FieldRule, len(sc.Fields))
		for name, fc := range sc.Fields {
			fields[name] = extractor.FieldRule{
				Selector: fc.Selector,
				Attr:     fc.Attr,
				Pattern:  fc.Pattern,
				Default:  fc.Default,
				Required: fc.Required,
			}
		}

		sources = append(sources, usecase.Source{
			Name: sc.Name,
			URL:  sc.URL,
			Type: sourceType,
			Schema: extractor.Schema{
				Container:    sc.Container,
				Fields:       fields,
				Keywords:     sc.Keywords,
				ExcludeWords: sc.ExcludeWords,
			},
			FieldMapping: sc.FieldMapping,
			Selection: ranking.Criteria{
				MinScore:     cfg.Pipeline.MinScore,
				MaxCount:     cfg.Pipeline.MaxItems,
				RequireDates: cfg.Pipeline.RequireDates,
			},
		})
	}
	return sources, nil
}
