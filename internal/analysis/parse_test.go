package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketScanner/internal/domain"
)

func TestParseDropsAndCoercesRecords(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
	  "market_sentiment": "bullish",
	  "overview": "Chips lead the tape.",
	  "opportunities": [
	    {"company_name": "Mystery Corp", "direction": "Bullish", "rationale": "no ticker"},
	    {"ticker_symbol": "tsla", "company_name": "Tesla", "direction": "to the moon", "rationale": "hype"},
	    {"ticker_symbol": "NVDA", "company_name": "NVIDIA", "direction": "Bullish", "confidence": 0.9,
	     "rationale": "Data center demand", "horizon": "short_term", "supporting_article_ids": ["a1"]}
	  ]
	}`)

	opps, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, opps, 2)

	coerced := opps[0]
	assert.Equal(t, "TSLA", coerced.Ticker)
	assert.Equal(t, domain.Neutral, coerced.Direction)
	assert.True(t, coerced.LowConfidence)
	assert.True(t, coerced.HasFlag(domain.FlagUnknownDirection))

	valid := opps[1]
	assert.Equal(t, "NVDA", valid.Ticker)
	assert.Equal(t, "NVIDIA", valid.Company)
	assert.Equal(t, domain.Bullish, valid.Direction)
	assert.False(t, valid.LowConfidence)
	assert.Empty(t, valid.Flags)
	require.NotNil(t, valid.Confidence)
	assert.InDelta(t, 0.9, *valid.Confidence, 1e-9)
	assert.Equal(t, domain.HorizonShortTerm, valid.Horizon)
	assert.Equal(t, []string{"a1"}, valid.SupportingArticleIDs)
}

func TestParseDocumentReportsWarnings(t *testing.T) {
	t.Parallel()

	doc, err := ParseDocument([]byte(`{
	  "market_sentiment": "sideways",
	  "opportunities": [
	    {"ticker_symbol": "  ", "direction": "Bearish"},
	    {"ticker_symbol": "AAPL"},
	    42
	  ]
	}`))
	require.NoError(t, err)

	assert.Equal(t, domain.Neutral, doc.Sentiment)
	require.Len(t, doc.Opportunities, 1)
	assert.True(t, doc.Opportunities[0].HasFlag(domain.FlagMissingDirection))
	assert.Len(t, doc.Warnings, 4)
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	for name, raw := range map[string]string{
		"empty":     "",
		"prose":     "Market Sentiment: Bullish",
		"truncated": `{"opportunities": [{"ticker_symbol": "NVDA"`,
		"null":      "null",
	} {
		_, err := Parse([]byte(raw))
		require.Error(t, err, name)
		assert.True(t, errors.Is(err, ErrMalformed), name)

		var malformed *MalformedError
		assert.True(t, errors.As(err, &malformed), name)
	}
}

func TestParseAcceptsBareArrayAndFences(t *testing.T) {
	t.Parallel()

	raw := []byte("```json\n[{\"ticker_symbol\": \"MSFT\", \"direction\": \"Bearish\"}]\n```")

	opps, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, domain.Bearish, opps[0].Direction)
}

func TestParseMergesSameTicker(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"opportunities": [
	  {"ticker_symbol": "B", "direction": "Bullish", "confidence": 0.5, "supporting_article_ids": ["1", "2"]},
	  {"ticker_symbol": "A", "direction": "Bearish"},
	  {"ticker_symbol": "b", "direction": "Bearish", "confidence": 0.5, "supporting_article_ids": ["2", "3"]},
	  {"ticker_symbol": "C", "direction": "Neutral"},
	  {"ticker_symbol": "A", "direction": "Bullish", "confidence": 0.7, "rationale": "upgrade"}
	]}`)

	opps, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, opps, 3)

	assert.Equal(t, []string{"B", "A", "C"}, []string{opps[0].Ticker, opps[1].Ticker, opps[2].Ticker})

	// equal confidence: first wins
	assert.Equal(t, domain.Bullish, opps[0].Direction)
	assert.Equal(t, []string{"1", "2", "3"}, opps[0].SupportingArticleIDs)
	assert.True(t, opps[0].HasFlag(domain.FlagMerged))

	// explicit confidence beats absent
	assert.Equal(t, domain.Bullish, opps[1].Direction)
	assert.Equal(t, "upgrade", opps[1].Rationale)
}

func TestParseIsDeterministic(t *testing.T) {
	t.Parallel()

	raw := []byte(`{"opportunities": [
	  {"ticker_symbol": "X", "direction": "Bullish"},
	  {"ticker_symbol": "Y", "direction": "odd"},
	  {"ticker_symbol": "X", "direction": "Bearish", "confidence": 1}
	]}`)

	first, err := ParseDocument(raw)
	require.NoError(t, err)
	second, err := ParseDocument(raw)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
