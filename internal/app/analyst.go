package app

import (
	"context"

	"MarketScanner/internal/config"
	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
)

// timeoutAnalyst bounds every AI request by the configured timeout.
type timeoutAnalyst struct {
	ports.Analyst
	cfg config.AIConfig
}

func (t timeoutAnalyst) Analyze(ctx context.Context, articles []domain.Article) ([]byte, error) {
	if t.cfg.Timeout <= 0 {
		return t.Analyst.Analyze(ctx, articles)
	}
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()
	return t.Analyst.Analyze(ctx, articles)
}
