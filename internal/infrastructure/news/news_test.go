package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScanner/internal/config"
	"MarketScanner/internal/dedup"
	"MarketScanner/internal/ports"
	"MarketScanner/internal/scanner"
)

const newsAPIBody = `{
  "status": "ok",
  "totalResults": 3,
  "articles": [
    {"source": {"id": null, "name": "Reuters"}, "title": "Chipmakers <b>rally</b>", "description": "<p>NVDA &amp; AMD up</p>", "url": "https://example.com/chips", "publishedAt": "2025-03-05T06:00:00Z", "content": "Full text"},
    {"source": {"name": ""}, "title": "[Removed]", "description": "", "url": "https://removed.com", "publishedAt": "2025-03-05T05:00:00Z"},
    {"source": {"name": "AP"}, "title": "Oil slips", "description": "Brent down", "url": "https://example.com/oil", "publishedAt": "2025-03-05T04:00:00Z"}
  ]
}`

func TestNewsAPIScan(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		q := r.URL.Query()
		gotQuery = map[string]string{
			"q": q.Get("q"), "language": q.Get("language"), "sortBy": q.Get("sortBy"),
			"pageSize": q.Get("pageSize"), "from": q.Get("from"),
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, newsAPIBody)
	}))
	defer srv.Close()

	since := time.Date(2025, 3, 4, 7, 0, 0, 0, time.UTC)
	articles, err := NewNewsAPIScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		SourceName: "newsapi",
		Endpoint:   srv.URL + "/v2/everything",
		APIKey:     "secret",
		Keywords:   []string{"stock market", "finance"},
		Since:      since,
		Limit:      500,
	})
	require.NoError(t, err)

	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, `"stock market" OR "finance"`, gotQuery["q"])
	assert.Equal(t, "en", gotQuery["language"])
	assert.Equal(t, "publishedAt", gotQuery["sortBy"])
	assert.Equal(t, "100", gotQuery["pageSize"])
	assert.Equal(t, "2025-03-04T07:00:00Z", gotQuery["from"])

	require.Len(t, articles, 2)
	assert.Equal(t, "Chipmakers rally", articles[0].Title)
	assert.Equal(t, "NVDA & AMD up", articles[0].Description)
	assert.Equal(t, "Reuters", articles[0].Source)
	assert.Equal(t, "Oil slips", articles[1].Title)
}

func TestNewsAPIErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error","code":"apiKeyInvalid","message":"Your API key is invalid."}`)
	}))
	defer srv.Close()

	_, err := NewNewsAPIScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		Endpoint: srv.URL, APIKey: "bad", Keywords: []string{"finance"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apiKeyInvalid")
}

func TestNewsAPIRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewNewsAPIScanner(nil).Scan(context.Background(), scanner.Request{Keywords: []string{"x"}})
	require.Error(t, err)
}

const rssBody = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Market Wire</title>
<item><title>Fed holds rates</title><link>https://wire.example.com/fed</link>
<description>&lt;p&gt;The stock market shrugged.&lt;/p&gt;</description>
<pubDate>Wed, 05 Mar 2025 06:00:00 GMT</pubDate></item>
<item><title>Gardening tips</title><link>https://wire.example.com/garden</link>
<description>Nothing about stocks</description>
<pubDate>Wed, 05 Mar 2025 05:00:00 GMT</pubDate></item>
<item><title>Old finance story</title><link>https://wire.example.com/old</link>
<description>finance</description>
<pubDate>Mon, 03 Mar 2025 05:00:00 GMT</pubDate></item>
</channel></rss>`

func newRSSServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSScanFiltersBySince(t *testing.T) {
	t.Parallel()

	srv := newRSSServer(t)
	articles, err := NewRSSScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		SourceName: "wires",
		Since:      time.Date(2025, 3, 4, 7, 0, 0, 0, time.UTC),
		Feeds:      []scanner.Feed{{URL: srv.URL}},
	})
	require.NoError(t, err)

	require.Len(t, articles, 2)
	assert.Equal(t, "Fed holds rates", articles[0].Title)
	assert.Equal(t, "The stock market shrugged.", articles[0].Description)
	assert.Equal(t, "Market Wire", articles[0].Source)
}

func TestRSSScanMatchKeywords(t *testing.T) {
	t.Parallel()

	srv := newRSSServer(t)
	articles, err := NewRSSScanner(srv.Client()).Scan(context.Background(), scanner.Request{
		Keywords: []string{"Stock Market"},
		Feeds:    []scanner.Feed{{Name: "wire", URL: srv.URL}},
		Options:  map[string]string{"matchKeywords": "true"},
	})
	require.NoError(t, err)

	require.Len(t, articles, 1)
	assert.Equal(t, "https://wire.example.com/fed", articles[0].URL)
	assert.Equal(t, "wire", articles[0].Source)
}

func TestStrategySourceCombinesSources(t *testing.T) {
	t.Parallel()

	srv := newRSSServer(t)
	reg := scanner.NewRegistry(NewRSSScanner(srv.Client()))
	src := NewStrategySource(reg, []config.SourceConfig{
		{Name: "first", Scanner: "rss", Feeds: []config.FeedConfig{{URL: srv.URL}}},
		{Name: "mirror", Scanner: "rss", Feeds: []config.FeedConfig{{URL: srv.URL + "/mirror"}}},
	}, nil)

	var _ ports.NewsSource = src
	articles, err := src.Search(context.Background(), ports.NewsQuery{})
	require.NoError(t, err)

	require.Len(t, articles, 6)
	assert.Equal(t, "first", articles[0].Source)
	assert.Equal(t, "mirror", articles[3].Source)
	assert.Equal(t, articles[0].URL, articles[3].URL)
	assert.Len(t, dedup.Assign(articles), 3)
}

func TestStrategySourceUnknownScanner(t *testing.T) {
	t.Parallel()

	src := NewStrategySource(scanner.NewRegistry(), []config.SourceConfig{{Name: "x", Scanner: "arxiv"}}, nil)
	_, err := src.Search(context.Background(), ports.NewsQuery{})
	require.Error(t, err)
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b", plainText("  a \n b "))
	assert.Equal(t, "Q1 beat & raise", plainText("<div>Q1 <em>beat</em> &amp; raise<script>x()</script></div>"))
}
