package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"MarketScanner/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var page = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"chartURL":   ChartURL,
	"barWidth":   barWidth,
	"horizon":    horizonLabel,
	"confidence": confidenceLabel,
}).ParseFS(templateFS, "templates/report.html.tmpl"))

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

type view struct {
	Report
	OverviewHTML template.HTML
}

// Render produces the HTML and plain-text forms of the report.
func Render(r Report) (domain.Document, error) {
	overview, err := overviewHTML(r.Overview)
	if err != nil {
		return domain.Document{}, fmt.Errorf("render overview: %w", err)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, view{Report: r, OverviewHTML: overview}); err != nil {
		return domain.Document{}, fmt.Errorf("execute report template: %w", err)
	}

	return domain.Document{
		Subject: Subject(r),
		HTML:    buf.String(),
		Text:    Text(r),
	}, nil
}

// Subject returns the mail subject line for the report.
func Subject(r Report) string {
	return fmt.Sprintf("Your AI Market Briefing - %s", r.GeneratedAt.Format("2006-01-02"))
}

// Text renders the plain-text alternative body.
func Text(r Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n\n", r.Title, r.GeneratedAt.Format("January 02, 2006"))
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "Alert: %s\n\n", w)
	}
	fmt.Fprintf(&b, "Market sentiment: %s\n", r.Sentiment.Label)
	if r.Overview != "" {
		fmt.Fprintf(&b, "%s\n", r.Overview)
	}
	b.WriteString("\nOpportunities\n")
	if len(r.Entries) == 0 {
		b.WriteString("No specific opportunities identified in this run.\n")
	}
	for i, e := range r.Entries {
		name := e.Opportunity.Ticker
		if e.Opportunity.Company != "" {
			name = fmt.Sprintf("%s (%s)", e.Opportunity.Company, e.Opportunity.Ticker)
		}
		fmt.Fprintf(&b, "%d. %s %s %s", i+1, e.Indicator.Symbol, name, e.Indicator.Label)
		if e.Opportunity.LowConfidence {
			b.WriteString(" (low confidence)")
		}
		b.WriteString("\n")
		if e.Opportunity.Rationale != "" {
			fmt.Fprintf(&b, "   %s\n", e.Opportunity.Rationale)
		}
		if n := len(e.Series.Points); n > 0 {
			last := e.Series.Points[n-1]
			fmt.Fprintf(&b, "   Last close %s on %s\n", last.Close.StringFixed(2), last.Date.Format("2006-01-02"))
		} else if e.Series.Reason != "" {
			fmt.Fprintf(&b, "   %s\n", e.Series.Reason)
		}
	}
	b.WriteString("\nThis is not financial advice.\n")
	return b.String()
}

func overviewHTML(src string) (template.HTML, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	// goldmark escapes raw HTML unless WithUnsafe is set.
	return template.HTML(buf.String()), nil
}

// barWidth gives signed directions a full bar and Neutral a half one.
func barWidth(ind Indicator) int {
	if ind.Weight != 0 {
		return 100
	}
	return 50
}

func horizonLabel(h domain.Horizon) string {
	switch h {
	case domain.HorizonShortTerm:
		return "Short-term (1-6 months)"
	case domain.HorizonLongTerm:
		return "Long-term (1+ years)"
	default:
		return "Horizon not stated"
	}
}

func confidenceLabel(c *float64) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf("%.0f%%", normalizedConfidence(*c)*100)
}

func normalizedConfidence(c float64) float64 {
	if c > 1 {
		c /= 100
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
