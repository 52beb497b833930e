// Package dedup assigns stable identities to articles and filters the ones
// already reported on.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"MarketScanner/internal/domain"
)

const fingerprintLen = 32

// Fingerprint derives the article identity from its URL, or from title and
// source when the URL is absent. Case and whitespace in the URL do not matter.
func Fingerprint(article domain.Article) string {
	key := normalizeURL(article.URL)
	if key == "" {
		key = "title:" + normalizeText(article.Title) + "|source:" + normalizeText(article.Source)
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:fingerprintLen]
}

// FilterNew returns the articles whose fingerprints are not in seen, in input order.
func FilterNew(articles []domain.Article, seen domain.SeenSet) []domain.Article {
	fresh := make([]domain.Article, 0, len(articles))
	for _, article := range articles {
		if seen.Contains(Fingerprint(article)) {
			continue
		}
		fresh = append(fresh, article)
	}
	return fresh
}

// Commit returns seen extended with the fingerprints of processed.
// The caller persists the result only after the report was delivered.
func Commit(seen domain.SeenSet, processed []domain.Article) domain.SeenSet {
	ids := make([]string, 0, len(processed))
	for _, article := range processed {
		ids = append(ids, Fingerprint(article))
	}
	return seen.Union(ids...)
}

// Assign sets ID to the fingerprint on every article and drops repeats within the batch.
func Assign(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(articles))
	seen := map[string]struct{}{}
	for _, article := range articles {
		article.ID = Fingerprint(article)
		if _, ok := seen[article.ID]; ok {
			continue
		}
		seen[article.ID] = struct{}{}
		out = append(out, article)
	}
	return out
}

func normalizeURL(raw string) string {
	u := strings.ToLower(stripSpace(raw))
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimRight(u, "/")
}

func normalizeText(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), " "))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
