package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MarketScanner/internal/domain"
	"MarketScanner/internal/scanner"
)

const (
	newsAPIMaxPageSize = 100
	// NewsAPI replaces taken-down articles with this placeholder title.
	removedTitle = "[Removed]"
)

// NewsAPIScanner queries the NewsAPI /v2/everything endpoint.
type NewsAPIScanner struct {
	client *http.Client
}

var _ scanner.Scanner = (*NewsAPIScanner)(nil)

// NewNewsAPIScanner wires an HTTP client; nil gets a 20s timeout client.
func NewNewsAPIScanner(client *http.Client) *NewsAPIScanner {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &NewsAPIScanner{client: client}
}

// Name identifies the strategy inside the registry.
func (n *NewsAPIScanner) Name() string {
	return "newsapi"
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     string    `json:"content"`
}

// Scan runs one keyword query and returns the articles newest first.
func (n *NewsAPIScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.Article, error) {
	if req.APIKey == "" {
		return nil, fmt.Errorf("newsapi source %s: api key is empty", req.SourceName)
	}
	if len(req.Keywords) == 0 {
		return nil, fmt.Errorf("newsapi source %s: no keywords", req.SourceName)
	}

	endpoint, err := buildNewsAPIURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("X-Api-Key", req.APIKey)
	httpReq.Header.Set("User-Agent", "MarketScanner/1.0")

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request newsapi: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read newsapi response: %w", err)
	}

	var payload newsAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("newsapi returned %s: decode: %w", resp.Status, err)
	}
	if resp.StatusCode != http.StatusOK || payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi returned %s: %s: %s", resp.Status, payload.Code, payload.Message)
	}

	articles := make([]domain.Article, 0, len(payload.Articles))
	for _, item := range payload.Articles {
		if item.URL == "" || item.Title == removedTitle {
			continue
		}
		source := item.Source.Name
		if source == "" {
			source = req.SourceName
		}
		articles = append(articles, domain.Article{
			Title:       plainText(item.Title),
			URL:         item.URL,
			Source:      source,
			Description: plainText(item.Description),
			Body:        plainText(item.Content),
			PublishedAt: item.PublishedAt,
		})
	}
	return articles, nil
}

func buildNewsAPIURL(req scanner.Request) (string, error) {
	u, err := url.Parse(req.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse newsapi endpoint: %w", err)
	}

	quoted := make([]string, 0, len(req.Keywords))
	for _, kw := range req.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			quoted = append(quoted, strconv.Quote(kw))
		}
	}

	pageSize := req.Limit
	if pageSize <= 0 || pageSize > newsAPIMaxPageSize {
		pageSize = newsAPIMaxPageSize
	}

	q := u.Query()
	q.Set("q", strings.Join(quoted, " OR "))
	q.Set("language", req.Option("language", "en"))
	q.Set("sortBy", req.Option("sortBy", "publishedAt"))
	q.Set("pageSize", strconv.Itoa(pageSize))
	if !req.Since.IsZero() {
		q.Set("from", req.Since.UTC().Format(time.RFC3339))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
