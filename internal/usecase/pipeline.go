package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"MarketScanner/internal/analysis"
	"MarketScanner/internal/dedup"
	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
	"MarketScanner/internal/report"
)

// SeriesFetcher enriches tickers with price history without ever failing.
type SeriesFetcher interface {
	FetchAll(ctx context.Context, tickers []string) map[string]domain.PriceSeries
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.NewsSource
	Store      ports.SeenStore
	Analyst    ports.Analyst
	Prices     SeriesFetcher
	Mailer     ports.Mailer
	Recipients []string
	Keywords   []string
	Window     time.Duration
	Limit      int
	Retry      RetryPolicy
	Title      string
	SkipCommit bool
	Now        func() time.Time
	Logger     *slog.Logger
}

// Pipeline runs fetch, filter, analysis, enrichment, delivery and commit once.
type Pipeline struct {
	source     ports.NewsSource
	store      ports.SeenStore
	analyst    ports.Analyst
	prices     SeriesFetcher
	mailer     ports.Mailer
	recipients []string
	keywords   []string
	window     time.Duration
	limit      int
	retry      RetryPolicy
	title      string
	skipCommit bool
	now        func() time.Time
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		source:     deps.Source,
		store:      deps.Store,
		analyst:    deps.Analyst,
		prices:     deps.Prices,
		mailer:     deps.Mailer,
		recipients: deps.Recipients,
		keywords:   deps.Keywords,
		window:     deps.Window,
		limit:      deps.Limit,
		retry:      deps.Retry.withDefaults(),
		title:      deps.Title,
		skipCommit: deps.SkipCommit,
		now:        deps.Now,
		logger:     deps.Logger,
	}
	if p.window <= 0 {
		p.window = 24 * time.Hour
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

type run struct {
	result RunResult
	logger *slog.Logger
}

func (r *run) enter(s State) {
	r.result.State = s
	r.result.Path = append(r.result.Path, s)
	r.logger.Debug("pipeline state", "state", s)
}

func (r *run) fail(err error) (RunResult, error) {
	r.result.FailedAt = r.result.State
	r.result.Err = err
	r.enter(StateFailed)
	r.logger.Error("pipeline run failed", "failed_at", r.result.FailedAt, "error", err)
	return r.result, err
}

func (r *run) done() (RunResult, error) {
	r.enter(StateDone)
	return r.result, nil
}

// Run executes a single pass. The seen set is saved only after the report was
// delivered, so any failure before that leaves it exactly as loaded.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	id := uuid.NewString()
	r := &run{
		result: RunResult{RunID: id},
		logger: p.logger.With("run_id", id),
	}
	r.enter(StateIdle)

	if err := p.validate(); err != nil {
		return r.fail(err)
	}

	seen, err := p.store.Load(ctx)
	if err != nil {
		return r.fail(fmt.Errorf("load seen set: %w", err))
	}
	r.logger.Info("seen set loaded", "size", seen.Len())

	r.enter(StateFetching)
	articles, err := p.fetch(ctx, r.logger)
	if err != nil {
		return r.fail(err)
	}
	r.result.Fetched = len(articles)

	r.enter(StateFiltering)
	fresh := dedup.FilterNew(articles, seen)
	r.result.NewArticles = len(fresh)
	r.logger.Info("articles filtered", "fetched", len(articles), "new", len(fresh))
	if len(fresh) == 0 {
		r.logger.Info("no new articles to analyze")
		return r.done()
	}

	r.enter(StateRequesting)
	raw, err := p.analyst.Analyze(ctx, fresh)
	if err != nil {
		return r.fail(&RequestError{Err: err})
	}
	r.logger.Debug("raw ai response", "bytes", len(raw), "body", string(raw))

	r.enter(StateValidating)
	doc, err := analysis.ParseDocument(raw)
	if err != nil {
		return r.fail(err)
	}
	for _, w := range doc.Warnings {
		r.logger.Warn("ai record repaired", "warning", w.String())
	}
	r.result.Opportunities = len(doc.Opportunities)
	r.result.Warnings = len(doc.Warnings)

	r.enter(StateEnriching)
	series := map[string]domain.PriceSeries{}
	if p.prices != nil && len(doc.Opportunities) > 0 {
		tickers := make([]string, 0, len(doc.Opportunities))
		for _, opp := range doc.Opportunities {
			tickers = append(tickers, opp.Ticker)
		}
		series = p.prices.FetchAll(ctx, tickers)
	}

	r.enter(StateAssembling)
	assembled := report.Assemble(doc.Opportunities, series,
		report.WithTitle(p.title),
		report.WithOverview(doc.Overview),
		report.WithSentiment(doc.Sentiment),
		report.WithGeneratedAt(p.now()),
		report.WithArticleCount(len(fresh)),
	)
	rendered, err := report.Render(assembled)
	if err != nil {
		return r.fail(fmt.Errorf("assemble report: %w", err))
	}

	r.enter(StateDelivering)
	if err := p.mailer.Send(ctx, p.recipients, rendered); err != nil {
		return r.fail(&DeliveryError{Err: err})
	}
	r.result.Delivered = true
	r.logger.Info("report delivered", "recipients", len(p.recipients), "opportunities", len(doc.Opportunities))

	if p.skipCommit {
		r.logger.Info("commit skipped", "new_articles", len(fresh))
		return r.done()
	}

	r.enter(StateCommitting)
	next := dedup.Commit(seen, fresh)
	if err := p.store.Save(ctx, next); err != nil {
		r.logger.Error("report delivered but seen set not persisted; next run may repeat these articles",
			"new_articles", len(fresh), "error", err)
		return r.fail(&PersistenceError{Err: err})
	}
	r.result.Committed = true
	r.logger.Info("seen set committed", "size", next.Len())

	return r.done()
}

func (p *Pipeline) validate() error {
	var missing []string
	if p.source == nil {
		missing = append(missing, "news source")
	}
	if p.store == nil {
		missing = append(missing, "seen store")
	}
	if p.analyst == nil {
		missing = append(missing, "analyst")
	}
	if p.mailer == nil {
		missing = append(missing, "mailer")
	}
	if len(missing) > 0 {
		return fmt.Errorf("pipeline misconfigured: missing %v", missing)
	}
	return nil
}

func (p *Pipeline) fetch(ctx context.Context, logger *slog.Logger) ([]domain.Article, error) {
	query := ports.NewsQuery{
		Keywords: p.keywords,
		Since:    p.now().Add(-p.window),
		Limit:    p.limit,
	}

	var lastErr error
	for attempt := 0; attempt < p.retry.Attempts; attempt++ {
		if attempt > 0 {
			wait := p.retry.Backoff(attempt - 1)
			logger.Warn("news fetch failed, retrying", "attempt", attempt, "wait", wait, "error", lastErr)
			if err := sleep(ctx, wait); err != nil {
				return nil, &FetchError{Attempts: attempt, Err: errors.Join(lastErr, err)}
			}
		}

		articles, err := p.source.Search(ctx, query)
		if err == nil {
			// IDs must be fingerprints before filtering and commit, whatever the source.
			return dedup.Assign(articles), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, &FetchError{Attempts: attempt + 1, Err: err}
		}
	}
	return nil, &FetchError{Attempts: p.retry.Attempts, Err: lastErr}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
