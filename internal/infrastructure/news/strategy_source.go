package news

import (
	"context"
	"fmt"
	"log/slog"

	"MarketScanner/internal/config"
	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
	"MarketScanner/internal/scanner"
)

// StrategySource implements NewsSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	sources  []config.SourceConfig
	logger   *slog.Logger
}

var _ ports.NewsSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined sources.
func NewStrategySource(reg *scanner.Registry, sources []config.SourceConfig, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		sources:  sources,
		logger:   log,
	}
}

// Search iterates over configured sources, executes their scanners and
// returns the combined batch in source order. Cross-source repeats are left
// for the caller to fingerprint and collapse.
// A failing source fails the whole search so the caller can retry it.
func (s *StrategySource) Search(ctx context.Context, query ports.NewsQuery) ([]domain.Article, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("search news", "sources", len(s.sources), "since", query.Since.Format("2006-01-02T15:04"))

	var aggregated []domain.Article
	for _, src := range s.sources {
		strategy, err := s.registry.Resolve(src.Scanner)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", src.Name, err)
		}

		req := scanner.Request{
			SourceName: src.Name,
			Endpoint:   src.Endpoint,
			APIKey:     src.APIKey,
			Keywords:   query.Keywords,
			Since:      query.Since,
			Limit:      query.Limit,
			Feeds:      toScannerFeeds(src.Feeds),
			Options:    src.Options,
		}

		results, err := strategy.Scan(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scan source %s: %w", src.Name, err)
		}

		for i := range results {
			if results[i].Source == "" {
				results[i].Source = src.Name
			}
		}
		s.debug("source produced articles", "source", src.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	s.debug("strategy source done", "total_articles", len(aggregated))
	return aggregated, nil
}

func toScannerFeeds(cfg []config.FeedConfig) []scanner.Feed {
	feeds := make([]scanner.Feed, 0, len(cfg))
	for _, f := range cfg {
		feeds = append(feeds, scanner.Feed{Name: f.Name, URL: f.URL})
	}
	return feeds
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
