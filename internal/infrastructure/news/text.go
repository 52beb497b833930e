package news

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText strips markup from feed and API snippets and collapses whitespace.
func plainText(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return collapse(raw)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapse(raw)
	}
	doc.Find("script, style").Remove()
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func mentionsAny(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
