// Package market provides price history providers.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
)

const (
	// DefaultBaseURL is the Alpha Vantage query endpoint.
	DefaultBaseURL = "https://www.alphavantage.co/query"

	defaultTimeout = 20 * time.Second
	dailySeriesKey = "Time Series (Daily)"
	closeKey       = "4. close"
	dateLayout     = "2006-01-02"
)

// AlphaVantage implements ports.PriceHistory with TIME_SERIES_DAILY.
// Once the daily quota is reported every later call fails fast.
type AlphaVantage struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	exhausted  atomic.Bool
}

var (
	_ ports.PriceHistory  = (*AlphaVantage)(nil)
	_ ports.QuotaReporter = (*AlphaVantage)(nil)
)

// Option configures the client.
type Option func(*AlphaVantage)

// WithBaseURL sets a custom endpoint.
func WithBaseURL(baseURL string) Option {
	return func(a *AlphaVantage) {
		if baseURL != "" {
			a.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(a *AlphaVantage) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// NewAlphaVantage creates a client for apiKey.
func NewAlphaVantage(apiKey string, opts ...Option) *AlphaVantage {
	a := &AlphaVantage{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// APIError is a non-OK HTTP status from Alpha Vantage.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alphavantage API error: %s (status %d)", e.Message, e.StatusCode)
}

type dailyResponse struct {
	Series       map[string]map[string]string `json:"Time Series (Daily)"`
	ErrorMessage string                       `json:"Error Message"`
	Information  string                       `json:"Information"`
	Note         string                       `json:"Note"`
}

// History returns up to days daily closes in ascending date order.
func (a *AlphaVantage) History(ctx context.Context, ticker string, days int) ([]domain.PricePoint, error) {
	if a.exhausted.Load() {
		return nil, ports.ErrQuotaExceeded
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", ticker)
	params.Set("outputsize", "compact")
	params.Set("apikey", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var payload dailyResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch {
	case payload.Series != nil:
		return parseSeries(payload.Series, days)
	case payload.ErrorMessage != "":
		return nil, fmt.Errorf("%s: %w: %s", ticker, ports.ErrTickerNotFound, payload.ErrorMessage)
	case isDailyQuota(payload.Information) || isDailyQuota(payload.Note):
		a.exhausted.Store(true)
		return nil, fmt.Errorf("%w: %s", ports.ErrQuotaExceeded, firstNonEmpty(payload.Information, payload.Note))
	default:
		return nil, fmt.Errorf("%s: unexpected alphavantage response: %s", ticker, firstNonEmpty(payload.Information, payload.Note, string(body)))
	}
}

// Exhausted reports whether the daily quota was hit during this process.
func (a *AlphaVantage) Exhausted() bool {
	return a.exhausted.Load()
}

func parseSeries(series map[string]map[string]string, days int) ([]domain.PricePoint, error) {
	points := make([]domain.PricePoint, 0, len(series))
	for date, fields := range series {
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		closeValue, err := decimal.NewFromString(fields[closeKey])
		if err != nil {
			return nil, fmt.Errorf("parse close on %s: %w", date, err)
		}
		points = append(points, domain.PricePoint{Date: d, Close: closeValue})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	if days > 0 && len(points) > days {
		points = points[len(points)-days:]
	}
	return points, nil
}

func isDailyQuota(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "requests per day") || strings.Contains(msg, "daily rate limit")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
