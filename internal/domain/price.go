package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is a daily close.
type PricePoint struct {
	Date  time.Time
	Close decimal.Decimal
}

// PriceSeries is the recent history of one ticker, ascending by date.
// An empty series is valid; Reason then explains why no data is available.
type PriceSeries struct {
	Ticker string
	Points []PricePoint
	Reason string
}

// Empty reports whether the series carries no points.
func (s PriceSeries) Empty() bool {
	return len(s.Points) == 0
}
