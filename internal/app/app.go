package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"MarketScanner/internal/config"
	"MarketScanner/internal/infrastructure/llm"
	"MarketScanner/internal/infrastructure/mailer"
	"MarketScanner/internal/infrastructure/market"
	"MarketScanner/internal/infrastructure/news"
	"MarketScanner/internal/infrastructure/storage"
	"MarketScanner/internal/logging"
	"MarketScanner/internal/ports"
	"MarketScanner/internal/prices"
	"MarketScanner/internal/scanner"
	"MarketScanner/internal/usecase"
)

// Application wires configs to use cases and owns the opened resources.
type Application struct {
	cfg      config.Config
	db       *sql.DB
	pipeline *usecase.Pipeline
	logger   *slog.Logger
}

// New opens the seen set database, applies migrations and builds the pipeline.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	version, dirty, err := storage.RunMigrations(db, cfg.Database.Driver, baseLogger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	baseLogger.Debug("database ready", "driver", cfg.Database.Driver, "schema_version", version, "dirty", dirty)

	analyst, err := llm.New(ctx, cfg.AI)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create analyst: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Prices.Timeout}
	registry := scanner.NewRegistry(
		news.NewNewsAPIScanner(nil),
		news.NewRSSScanner(nil),
	)
	source := news.NewStrategySource(registry, cfg.News.Sources, baseLogger.With("component", "source"))

	var history ports.PriceHistory
	if cfg.Prices.Enabled {
		history = market.NewAlphaVantage(cfg.Prices.APIKey,
			market.WithBaseURL(cfg.Prices.Endpoint),
			market.WithHTTPClient(httpClient),
		)
	}
	priceAdapter := prices.NewAdapter(history, prices.Config{
		Window:            cfg.Prices.Window,
		Workers:           cfg.Prices.Workers,
		Timeout:           cfg.Prices.Timeout,
		RequestsPerMinute: cfg.Prices.RequestsPerMinute,
	}, baseLogger.With("component", "prices"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Store:      storage.NewSeenRepository(db, cfg.Database.Driver),
		Analyst:    timeoutAnalyst{Analyst: analyst, cfg: cfg.AI},
		Prices:     priceAdapter,
		Mailer:     newMailer(cfg, baseLogger.With("component", "mailer")),
		Recipients: cfg.Recipients,
		Keywords:   cfg.News.Keywords,
		Window:     cfg.News.Window,
		Limit:      cfg.News.Limit,
		Retry: usecase.RetryPolicy{
			Attempts:       cfg.News.Retry.Attempts,
			InitialBackoff: cfg.News.Retry.Backoff,
		},
		Title:      cfg.Report.Title,
		SkipCommit: cfg.Report.DryRun,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, db: db, pipeline: pipeline, logger: baseLogger}, nil
}

func newMailer(cfg config.Config, log *slog.Logger) ports.Mailer {
	if cfg.Report.DryRun {
		return mailer.NewFileMailer(cfg.Report.OutputPath, cfg.SMTP.From, log)
	}
	return mailer.NewSMTPMailer(cfg.SMTP, log)
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) (usecase.RunResult, error) {
	res, err := a.pipeline.Run(ctx)
	a.logger.Info("run finished",
		"run_id", res.RunID,
		"state", res.State,
		"fetched", res.Fetched,
		"new_articles", res.NewArticles,
		"opportunities", res.Opportunities,
		"delivered", res.Delivered,
		"committed", res.Committed,
	)
	return res, err
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
