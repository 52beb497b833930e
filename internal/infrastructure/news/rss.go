package news

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"MarketScanner/internal/domain"
	"MarketScanner/internal/scanner"
)

// RSSScanner reads RSS/Atom feeds.
type RSSScanner struct {
	client *http.Client
}

var _ scanner.Scanner = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; nil gets a 20s timeout client.
func NewRSSScanner(client *http.Client) *RSSScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (r *RSSScanner) Name() string {
	return "rss"
}

// Scan reads every feed and keeps items newer than req.Since. With the
// "matchKeywords" option set to "true" only items mentioning a keyword are kept.
func (r *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if len(req.Feeds) == 0 {
		return nil, fmt.Errorf("no feeds provided for source %s", req.SourceName)
	}

	parser := gofeed.NewParser()
	parser.Client = r.client
	parser.UserAgent = "MarketScanner/1.0"

	matchKeywords := req.Option("matchKeywords", "false") == "true"

	var results []domain.Article
	for _, f := range req.Feeds {
		feed, err := parser.ParseURLWithContext(f.URL, ctx)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", cmp.Or(f.Name, f.URL), err)
		}

		source := cmp.Or(f.Name, feed.Title, req.SourceName)
		for _, item := range feed.Items {
			article := normalizeItem(item, source)
			if article.URL == "" && article.Title == "" {
				continue
			}
			if !req.Since.IsZero() && !article.PublishedAt.IsZero() && article.PublishedAt.Before(req.Since) {
				continue
			}
			if matchKeywords && !mentionsAny(article.Title+" "+article.Description, req.Keywords) {
				continue
			}
			results = append(results, article)
			if req.Limit > 0 && len(results) >= req.Limit {
				return results, nil
			}
		}
	}
	return results, nil
}

func normalizeItem(item *gofeed.Item, source string) domain.Article {
	article := domain.Article{
		Title:       plainText(item.Title),
		URL:         item.Link,
		Source:      source,
		Description: plainText(item.Description),
		Body:        plainText(item.Content),
	}
	if item.PublishedParsed != nil {
		article.PublishedAt = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		article.PublishedAt = *item.UpdatedParsed
	}
	if article.Description == "" {
		article.Description = article.Body
	}
	return article
}
