package llm

import (
	"context"
	"fmt"

	"MarketScanner/internal/config"
	"MarketScanner/internal/ports"
)

// New returns the analyst selected by cfg.Provider.
func New(ctx context.Context, cfg config.AIConfig) (ports.Analyst, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		analyst, err := NewGeminiAnalyst(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return analyst, nil
	case config.ProviderClaude:
		return NewClaudeAnalyst(cfg), nil
	case config.ProviderOpenAI:
		return NewChatGPTClient(cfg, nil), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
