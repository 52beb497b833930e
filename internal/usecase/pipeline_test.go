package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScanner/internal/analysis"
	"MarketScanner/internal/dedup"
	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
)

type fakeSource struct {
	mu       sync.Mutex
	articles []domain.Article
	failures int
	calls    int
	queries  []ports.NewsQuery
}

func (f *fakeSource) Search(_ context.Context, q ports.NewsQuery) ([]domain.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, q)
	if f.calls <= f.failures {
		return nil, errors.New("newsapi: 502 bad gateway")
	}
	return f.articles, nil
}

type fakeAnalyst struct {
	response []byte
	err      error
	calls    int
	got      []domain.Article
}

func (f *fakeAnalyst) Analyze(_ context.Context, articles []domain.Article) ([]byte, error) {
	f.calls++
	f.got = articles
	return f.response, f.err
}

type fakeMailer struct {
	err  error
	sent []domain.Document
	to   [][]string
}

func (f *fakeMailer) Send(_ context.Context, recipients []string, doc domain.Document) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, doc)
	f.to = append(f.to, recipients)
	return nil
}

type fakeStore struct {
	set     domain.SeenSet
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Load(context.Context) (domain.SeenSet, error) {
	if f.loadErr != nil {
		return domain.SeenSet{}, f.loadErr
	}
	return f.set, nil
}

func (f *fakeStore) Save(_ context.Context, set domain.SeenSet) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.set = set
	return nil
}

type fakePrices struct {
	tickers []string
}

func (f *fakePrices) FetchAll(_ context.Context, tickers []string) map[string]domain.PriceSeries {
	f.tickers = tickers
	out := make(map[string]domain.PriceSeries, len(tickers))
	for _, t := range tickers {
		out[t] = domain.PriceSeries{Ticker: t, Reason: "Price data unavailable"}
	}
	return out
}

var (
	_ ports.NewsSource = (*fakeSource)(nil)
	_ ports.Analyst    = (*fakeAnalyst)(nil)
	_ ports.Mailer     = (*fakeMailer)(nil)
	_ ports.SeenStore  = (*fakeStore)(nil)
	_ SeriesFetcher    = (*fakePrices)(nil)
)

const validAnswer = `{
  "market_sentiment": "Bullish",
  "overview": "Chipmakers led the rally.",
  "opportunities": [
    {"ticker_symbol": "NVDA", "company_name": "NVIDIA", "direction": "bullish", "confidence": 0.8, "rationale": "datacenter demand", "horizon": "short_term"},
    {"ticker_symbol": "TSLA", "company_name": "Tesla", "rationale": "deliveries miss"}
  ]
}`

func testArticles() []domain.Article {
	return []domain.Article{
		{Title: "Chips rally", URL: "https://example.com/chips", Source: "Wire"},
		{Title: "EV deliveries", URL: "https://example.com/ev", Source: "Wire"},
	}
}

type harness struct {
	source  *fakeSource
	analyst *fakeAnalyst
	mailer  *fakeMailer
	store   *fakeStore
	prices  *fakePrices
}

func newHarness() *harness {
	return &harness{
		source:  &fakeSource{articles: testArticles()},
		analyst: &fakeAnalyst{response: []byte(validAnswer)},
		mailer:  &fakeMailer{},
		store:   &fakeStore{set: domain.NewSeenSet()},
		prices:  &fakePrices{},
	}
}

func (h *harness) pipeline() *Pipeline {
	return NewPipeline(PipelineDeps{
		Source:     h.source,
		Store:      h.store,
		Analyst:    h.analyst,
		Prices:     h.prices,
		Mailer:     h.mailer,
		Recipients: []string{"desk@example.com"},
		Keywords:   []string{"stock market"},
		Retry:      RetryPolicy{Attempts: 3, InitialBackoff: -1},
		Now:        func() time.Time { return time.Date(2025, 3, 5, 7, 0, 0, 0, time.UTC) },
	})
}

func TestPipelineHappyPathCommitsAfterDelivery(t *testing.T) {
	t.Parallel()

	h := newHarness()
	res, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []State{
		StateIdle, StateFetching, StateFiltering, StateRequesting, StateValidating,
		StateEnriching, StateAssembling, StateDelivering, StateCommitting, StateDone,
	}, res.Path)
	assert.True(t, res.Delivered)
	assert.True(t, res.Committed)
	assert.Equal(t, 2, res.NewArticles)
	assert.Equal(t, 2, res.Opportunities)
	assert.NotEmpty(t, res.RunID)

	require.Len(t, h.mailer.sent, 1)
	assert.Equal(t, "Your AI Market Briefing - 2025-03-05", h.mailer.sent[0].Subject)
	assert.Equal(t, []string{"desk@example.com"}, h.mailer.to[0])
	assert.Equal(t, []string{"NVDA", "TSLA"}, h.prices.tickers)

	for _, a := range testArticles() {
		assert.True(t, h.store.set.Contains(dedup.Fingerprint(a)))
	}
	assert.Equal(t, 2, h.store.set.Len())

	for _, a := range h.analyst.got {
		assert.Equal(t, dedup.Fingerprint(a), a.ID)
	}
	require.Len(t, h.source.queries, 1)
	assert.Equal(t, time.Date(2025, 3, 4, 7, 0, 0, 0, time.UTC), h.source.queries[0].Since)
}

func TestPipelineNoNewArticlesSkipsAnalysis(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.set = domain.NewSeenSet(dedup.Fingerprint(testArticles()[0]), dedup.Fingerprint(testArticles()[1]))
	before := h.store.set

	res, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, []State{StateIdle, StateFetching, StateFiltering, StateDone}, res.Path)
	assert.Zero(t, h.analyst.calls)
	assert.Empty(t, h.mailer.sent)
	assert.Zero(t, h.store.saves)
	assert.True(t, before.Equal(h.store.set))
}

func TestPipelineOnlyUnseenArticlesReachAnalyst(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.set = domain.NewSeenSet(dedup.Fingerprint(testArticles()[0]))

	_, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	require.Len(t, h.analyst.got, 1)
	assert.Equal(t, "EV deliveries", h.analyst.got[0].Title)
	assert.Equal(t, 2, h.store.set.Len())
}

func TestPipelineCollapsesRepeatsAcrossSources(t *testing.T) {
	t.Parallel()

	h := newHarness()
	mirrored := append(testArticles(), domain.Article{
		ID: "feed-guid-1", Title: "Chips rally (mirror)", URL: " HTTPS://example.com/chips ", Source: "Mirror",
	})
	h.source.articles = mirrored

	res, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.NewArticles)
	require.Len(t, h.analyst.got, 2)
	assert.Equal(t, "Chips rally", h.analyst.got[0].Title)
	for _, a := range h.analyst.got {
		assert.Equal(t, dedup.Fingerprint(a), a.ID)
	}
	assert.Equal(t, 2, h.store.set.Len())
}

func TestPipelineDeliveryFailureLeavesSeenSetUnchanged(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.set = domain.NewSeenSet("already-there")
	before := h.store.set
	h.mailer.err = errors.New("smtp: 421 service not available")

	res, err := h.pipeline().Run(context.Background())
	require.Error(t, err)

	var delivery *DeliveryError
	require.ErrorAs(t, err, &delivery)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateDelivering, res.FailedAt)
	assert.False(t, res.Delivered)
	assert.False(t, res.Committed)
	assert.Zero(t, h.store.saves)
	assert.True(t, before.Equal(h.store.set))
}

func TestPipelineMalformedAnswerFails(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.analyst.response = []byte("Sorry, I cannot help with that.")

	res, err := h.pipeline().Run(context.Background())
	require.ErrorIs(t, err, analysis.ErrMalformed)
	assert.Equal(t, StateValidating, res.FailedAt)
	assert.Empty(t, h.mailer.sent)
	assert.Zero(t, h.store.saves)
}

func TestPipelineRequestFailure(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.analyst.err = errors.New("deadline exceeded")

	res, err := h.pipeline().Run(context.Background())
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, StateRequesting, res.FailedAt)
	assert.Zero(t, h.store.saves)
}

func TestPipelinePersistenceFailureAfterDelivery(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.saveErr = errors.New("disk full")

	res, err := h.pipeline().Run(context.Background())
	var persist *PersistenceError
	require.ErrorAs(t, err, &persist)
	assert.Equal(t, StateCommitting, res.FailedAt)
	assert.True(t, res.Delivered)
	assert.False(t, res.Committed)
	assert.Len(t, h.mailer.sent, 1)
}

func TestPipelineFetchRetries(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.source.failures = 2

	res, err := h.pipeline().Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, h.source.calls)
	assert.Equal(t, StateDone, res.State)
}

func TestPipelineFetchExhaustion(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.source.failures = 10

	res, err := h.pipeline().Run(context.Background())
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Equal(t, StateFetching, res.FailedAt)
	assert.Zero(t, h.analyst.calls)
}

func TestPipelineLoadFailure(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.store.loadErr = errors.New("database is locked")

	res, err := h.pipeline().Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateIdle, res.FailedAt)
	assert.Zero(t, h.source.calls)
}

func TestPipelineSkipCommit(t *testing.T) {
	t.Parallel()

	h := newHarness()
	p := h.pipeline()
	p.skipCommit = true

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Delivered)
	assert.False(t, res.Committed)
	assert.Zero(t, h.store.saves)
	assert.NotContains(t, res.Path, StateCommitting)
}

func TestRetryPolicyBackoff(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second}.withDefaults()
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 5*time.Second, p.Backoff(3))

	none := RetryPolicy{InitialBackoff: -1}.withDefaults()
	assert.Zero(t, none.Backoff(2))
}
