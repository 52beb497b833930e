package report

import (
	"encoding/json"
	"net/url"

	"MarketScanner/internal/domain"
)

const (
	chartBaseURL = "https://quickchart.io/chart"
	trendUp      = "#28a745"
	trendDown    = "#dc3545"
)

// ChartURL returns a sparkline image URL for the series, or "" when fewer
// than two points are available.
func ChartURL(series domain.PriceSeries) string {
	if len(series.Points) < 2 {
		return ""
	}

	values := make([]float64, len(series.Points))
	labels := make([]string, len(series.Points))
	for i, p := range series.Points {
		values[i] = p.Close.InexactFloat64()
	}

	first, last := series.Points[0].Close, series.Points[len(series.Points)-1].Close
	color := trendUp
	if last.LessThan(first) {
		color = trendDown
	}

	cfg := map[string]any{
		"type": "line",
		"data": map[string]any{
			"labels": labels,
			"datasets": []map[string]any{{
				"data":        values,
				"borderColor": color,
				"borderWidth": 2,
				"pointRadius": 0,
				"fill":        false,
			}},
		},
		"options": map[string]any{
			"plugins": map[string]any{"legend": map[string]any{"display": false}},
			"scales": map[string]any{
				"x": map[string]any{"display": false},
				"y": map[string]any{"display": false},
			},
			"layout": map[string]any{"padding": 5},
		},
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return ""
	}

	q := url.Values{}
	q.Set("c", string(raw))
	q.Set("width", "150")
	q.Set("height", "50")
	q.Set("backgroundColor", "transparent")
	q.Set("v", "4")
	return chartBaseURL + "?" + q.Encode()
}
