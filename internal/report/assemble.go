// Package report assembles validated opportunities and price history into the
// document delivered to subscribers.
package report

import (
	"time"

	"MarketScanner/internal/domain"
	"MarketScanner/internal/prices"
)

// Indicator is the visual treatment of a direction.
type Indicator struct {
	Label  string
	Symbol string
	Color  string
	Weight int
}

var indicators = map[domain.Direction]Indicator{
	domain.Bullish: {Label: "Bullish", Symbol: "▲", Color: "#28a745", Weight: 1},
	domain.Bearish: {Label: "Bearish", Symbol: "▼", Color: "#dc3545", Weight: -1},
	domain.Neutral: {Label: "Neutral", Symbol: "■", Color: "#6c757d", Weight: 0},
}

// IndicatorFor maps a direction to its indicator; unknown values render as Neutral.
func IndicatorFor(d domain.Direction) Indicator {
	if ind, ok := indicators[d]; ok {
		return ind
	}
	return indicators[domain.Neutral]
}

// Entry is one opportunity with its optional chart data.
type Entry struct {
	Opportunity domain.Opportunity
	Series      domain.PriceSeries
	Indicator   Indicator
}

// HasChart reports whether the series has enough points to draw a trend.
func (e Entry) HasChart() bool {
	return len(e.Series.Points) >= 2
}

// Report is the assembled, immutable content of one run.
type Report struct {
	Title        string
	GeneratedAt  time.Time
	Sentiment    Indicator
	Overview     string
	Entries      []Entry
	Warnings     []string
	ArticleCount int
}

// Option customizes Assemble.
type Option func(*Report)

// WithOverview sets the market summary, written in Markdown.
func WithOverview(overview string) Option {
	return func(r *Report) {
		r.Overview = overview
	}
}

// WithSentiment sets the overall market sentiment badge.
func WithSentiment(d domain.Direction) Option {
	return func(r *Report) {
		r.Sentiment = IndicatorFor(d)
	}
}

// WithGeneratedAt stamps the report date.
func WithGeneratedAt(t time.Time) Option {
	return func(r *Report) {
		r.GeneratedAt = t
	}
}

// WithTitle overrides the heading.
func WithTitle(title string) Option {
	return func(r *Report) {
		if title != "" {
			r.Title = title
		}
	}
}

// WithWarnings adds banner messages.
func WithWarnings(warnings ...string) Option {
	return func(r *Report) {
		r.Warnings = append(r.Warnings, warnings...)
	}
}

// WithArticleCount records how many new articles fed the analysis.
func WithArticleCount(n int) Option {
	return func(r *Report) {
		r.ArticleCount = n
	}
}

// Assemble builds the report. Entries keep the order of opportunities and no
// opportunity is dropped for lack of price data.
func Assemble(opportunities []domain.Opportunity, seriesByTicker map[string]domain.PriceSeries, opts ...Option) Report {
	r := Report{
		Title:     "Daily AI Market Briefing",
		Sentiment: IndicatorFor(domain.Neutral),
		Entries:   make([]Entry, 0, len(opportunities)),
	}
	for _, opt := range opts {
		opt(&r)
	}

	quotaHit := false
	for _, opp := range opportunities {
		series, ok := seriesByTicker[opp.Ticker]
		if !ok {
			series = domain.PriceSeries{Ticker: opp.Ticker, Reason: prices.ReasonProviderError}
		}
		if series.Reason == prices.ReasonQuotaExceeded {
			quotaHit = true
		}
		r.Entries = append(r.Entries, Entry{
			Opportunity: opp,
			Series:      series,
			Indicator:   IndicatorFor(opp.Direction),
		})
	}

	if quotaHit {
		r.Warnings = append(r.Warnings, "The daily limit for the stock data API was reached. Some trend charts may be unavailable until the limit resets tomorrow.")
	}

	return r
}
