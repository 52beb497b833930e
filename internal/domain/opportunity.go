package domain

import "strings"

// Direction classifies the sentiment of an opportunity.
type Direction string

const (
	Bullish Direction = "Bullish"
	Bearish Direction = "Bearish"
	Neutral Direction = "Neutral"
)

// ParseDirection maps free text onto the enum. ok is false for anything
// other than the three known values; the returned direction is then Neutral.
func ParseDirection(raw string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "bullish":
		return Bullish, true
	case "bearish":
		return Bearish, true
	case "neutral":
		return Neutral, true
	default:
		return Neutral, false
	}
}

// Horizon is the holding period suggested by the model.
type Horizon string

const (
	HorizonShortTerm Horizon = "short_term"
	HorizonLongTerm  Horizon = "long_term"
)

// ValidationFlag records a repair applied to an AI record.
type ValidationFlag string

const (
	FlagMissingDirection ValidationFlag = "missing_direction"
	FlagUnknownDirection ValidationFlag = "unknown_direction"
	FlagUnknownHorizon   ValidationFlag = "unknown_horizon"
	FlagMerged           ValidationFlag = "merged_duplicate"
)

// Opportunity is one validated investment signal extracted from the news.
type Opportunity struct {
	Ticker               string
	Company              string
	Direction            Direction
	Confidence           *float64
	Rationale            string
	Horizon              Horizon
	SupportingArticleIDs []string
	LowConfidence        bool
	Flags                []ValidationFlag
}

// HasFlag reports whether the flag was recorded during validation.
func (o Opportunity) HasFlag(flag ValidationFlag) bool {
	for _, f := range o.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
