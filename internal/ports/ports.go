package ports

import (
	"context"
	"errors"
	"time"

	"MarketScanner/internal/domain"
)

var (
	// ErrTickerNotFound is returned by PriceHistory when the symbol is unknown.
	ErrTickerNotFound = errors.New("ticker not found")
	// ErrQuotaExceeded is returned by PriceHistory once the provider's request quota is spent.
	ErrQuotaExceeded = errors.New("price provider quota exceeded")
)

// NewsQuery describes what to search for and how far back.
type NewsQuery struct {
	Keywords []string
	Since    time.Time
	Limit    int
}

// NewsSource pulls fresh articles from upstream providers.
type NewsSource interface {
	Search(ctx context.Context, query NewsQuery) ([]domain.Article, error)
}

// Analyst sends a batch of articles to an AI model and returns its raw structured answer.
type Analyst interface {
	Analyze(ctx context.Context, articles []domain.Article) ([]byte, error)
}

// PriceHistory returns daily closes for a ticker, in any order.
type PriceHistory interface {
	History(ctx context.Context, ticker string, days int) ([]domain.PricePoint, error)
}

// QuotaReporter is implemented by PriceHistory providers that can tell
// without a request that their quota is spent.
type QuotaReporter interface {
	Exhausted() bool
}

// Mailer delivers a rendered report.
type Mailer interface {
	Send(ctx context.Context, recipients []string, doc domain.Document) error
}

// SeenStore persists the set of processed article fingerprints across runs.
type SeenStore interface {
	Load(ctx context.Context) (domain.SeenSet, error)
	Save(ctx context.Context, seen domain.SeenSet) error
}
