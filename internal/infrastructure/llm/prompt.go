package llm

import (
	"fmt"
	"strings"

	"MarketScanner/internal/domain"
)

const (
	maxArticleChars = 600

	defaultSystemPrompt = "You are an expert market analyst. You read financial news and answer only with JSON."

	instructions = `Analyze the financial news below and identify potential investment opportunities.

Answer with a single JSON object and nothing else:
{
  "market_sentiment": "Bullish" | "Bearish" | "Neutral",
  "overview": "2-3 sentence summary of market sentiment, Markdown allowed",
  "opportunities": [
    {
      "ticker_symbol": "NVDA",
      "company_name": "NVIDIA",
      "direction": "Bullish" | "Bearish" | "Neutral",
      "confidence": 0.0-1.0,
      "rationale": "one sentence justification",
      "horizon": "short_term" | "long_term",
      "supporting_article_ids": ["id of each article the idea is based on"]
    }
  ]
}

Rules:
- List up to 5 short_term (1-6 months) and up to 5 long_term (1+ years) opportunities.
- Prioritize publicly traded companies and always give the exchange ticker symbol.
- For a private company set ticker_symbol to "PRIVATE".
- Use only the article ids given below.`
)

// BuildPrompt renders the user message: instructions followed by one block per article.
func BuildPrompt(articles []domain.Article) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n--- NEWS ARTICLES TO ANALYZE ---\n")
	for i, a := range articles {
		if i > 0 {
			b.WriteString("---\n")
		}
		fmt.Fprintf(&b, "ID: %s\nTitle: %s\n", a.ID, a.Title)
		if a.Source != "" {
			fmt.Fprintf(&b, "Source: %s\n", a.Source)
		}
		if desc := truncate(strings.TrimSpace(a.Description), maxArticleChars); desc != "" {
			fmt.Fprintf(&b, "Desc: %s\n", desc)
		}
	}
	return b.String()
}

func systemPrompt(custom string) string {
	if s := strings.TrimSpace(custom); s != "" {
		return s
	}
	return defaultSystemPrompt
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "…"
}
