// Package prices normalizes per-ticker price history and isolates provider failures.
package prices

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
)

const (
	DefaultWindow  = 30
	DefaultWorkers = 2
	DefaultTimeout = 20 * time.Second
)

// Reasons attached to empty series.
const (
	ReasonUnlisted      = "Private company / N/A"
	ReasonNotFound      = "Invalid symbol"
	ReasonQuotaExceeded = "Daily API limit reached"
	ReasonTimeout       = "Price provider timed out"
	ReasonProviderError = "Price data unavailable"
	ReasonNoData        = "No recent prices"
	ReasonDisabled      = "Price data disabled"
)

var tickerExpr = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// Config tunes the adapter. Timeout bounds one provider call and does not
// include the time spent waiting for a RequestsPerMinute slot.
type Config struct {
	Window            int
	Workers           int
	Timeout           time.Duration
	RequestsPerMinute int
}

// Adapter wraps a PriceHistory provider. A nil provider yields empty series.
type Adapter struct {
	provider ports.PriceHistory
	limiter  *rate.Limiter
	window   int
	workers  int
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAdapter applies defaults for zero config values.
func NewAdapter(provider ports.PriceHistory, cfg Config, logger *slog.Logger) *Adapter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	return &Adapter{
		provider: provider,
		limiter:  rate.NewLimiter(limit, 1),
		window:   cfg.Window,
		workers:  cfg.Workers,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// FetchSeries returns at most windowDays recent closes for ticker. Failures of
// any kind produce an empty series with a reason, never an error.
func (a *Adapter) FetchSeries(ctx context.Context, ticker string, windowDays int) domain.PriceSeries {
	if windowDays <= 0 {
		windowDays = a.window
	}
	series := domain.PriceSeries{Ticker: ticker}

	if a.provider == nil {
		series.Reason = ReasonDisabled
		return series
	}
	if !Listed(ticker) {
		series.Reason = ReasonUnlisted
		a.logger.Debug("skip price fetch", "ticker", ticker, "reason", series.Reason)
		return series
	}

	if q, ok := a.provider.(ports.QuotaReporter); ok && q.Exhausted() {
		series.Reason = ReasonQuotaExceeded
		return series
	}
	if err := a.limiter.Wait(ctx); err != nil {
		series.Reason = ReasonProviderError
		a.logger.Warn("price fetch not started", "ticker", ticker, "error", err)
		return series
	}

	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	points, err := a.provider.History(fetchCtx, ticker, windowDays)
	if err != nil {
		series.Reason = reasonFor(err)
		a.logger.Warn("price fetch failed", "ticker", ticker, "reason", series.Reason, "error", err)
		return series
	}

	series.Points = Normalize(points, windowDays)
	if series.Empty() {
		series.Reason = ReasonNoData
		a.logger.Warn("price fetch returned no points", "ticker", ticker)
	}
	return series
}

// FetchAll fetches every distinct ticker with at most Workers in flight.
// One ticker's failure or delay never affects the others.
func (a *Adapter) FetchAll(ctx context.Context, tickers []string) map[string]domain.PriceSeries {
	out := make(map[string]domain.PriceSeries, len(tickers))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(a.workers)

	queued := map[string]struct{}{}
	for _, ticker := range tickers {
		if _, ok := queued[ticker]; ok {
			continue
		}
		queued[ticker] = struct{}{}

		g.Go(func() error {
			series := a.FetchSeries(ctx, ticker, a.window)
			mu.Lock()
			out[ticker] = series
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Normalize sorts points ascending by calendar day, keeps the latest value
// returned for a duplicated day and trims to the most recent window points.
func Normalize(points []domain.PricePoint, window int) []domain.PricePoint {
	if len(points) == 0 {
		return nil
	}

	sorted := make([]domain.PricePoint, len(points))
	copy(sorted, points)
	for i := range sorted {
		sorted[i].Date = day(sorted[i].Date)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := make([]domain.PricePoint, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}

	if window > 0 && len(out) > window {
		out = out[len(out)-window:]
	}
	return out
}

// Listed reports whether ticker looks like an exchange symbol rather than a
// placeholder such as "Private" or "N/A".
func Listed(ticker string) bool {
	t := strings.TrimSpace(ticker)
	switch strings.ToLower(t) {
	case "private", "n/a", "na", "none", "not provided", "private company":
		return false
	}
	return tickerExpr.MatchString(t)
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, ports.ErrQuotaExceeded):
		return ReasonQuotaExceeded
	case errors.Is(err, ports.ErrTickerNotFound):
		return ReasonNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	default:
		return ReasonProviderError
	}
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
