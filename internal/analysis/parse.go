// Package analysis turns the AI model's raw answer into validated opportunities.
package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"MarketScanner/internal/domain"
)

// ErrMalformed marks an answer whose top-level structure cannot be decoded.
var ErrMalformed = errors.New("malformed ai response")

// MalformedError carries the decode failure behind ErrMalformed.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformed, e.Err)
}

func (e *MalformedError) Unwrap() []error {
	return []error{ErrMalformed, e.Err}
}

// ValidationWarning describes a record that was dropped or repaired.
type ValidationWarning struct {
	Index  int
	Ticker string
	Flag   domain.ValidationFlag
	Reason string
}

func (w ValidationWarning) String() string {
	if w.Ticker == "" {
		return fmt.Sprintf("record %d: %s", w.Index, w.Reason)
	}
	return fmt.Sprintf("record %d (%s): %s", w.Index, w.Ticker, w.Reason)
}

// Document is the validated form of one AI answer.
type Document struct {
	Sentiment     domain.Direction
	Overview      string
	Opportunities []domain.Opportunity
	Warnings      []ValidationWarning
}

type rawDocument struct {
	MarketSentiment *string           `json:"market_sentiment"`
	Overview        string            `json:"overview"`
	Opportunities   []json.RawMessage `json:"opportunities"`
}

type rawRecord struct {
	Ticker               *string  `json:"ticker_symbol"`
	Company              string   `json:"company_name"`
	Direction            *string  `json:"direction"`
	Confidence           *float64 `json:"confidence"`
	Rationale            string   `json:"rationale"`
	Horizon              string   `json:"horizon"`
	SupportingArticleIDs []string `json:"supporting_article_ids"`
}

// Parse decodes raw and returns the validated opportunities in first-seen order.
func Parse(raw []byte) ([]domain.Opportunity, error) {
	doc, err := ParseDocument(raw)
	if err != nil {
		return nil, err
	}
	return doc.Opportunities, nil
}

// ParseDocument decodes raw into a Document. Only an undecodable top level is an
// error; bad records are dropped or coerced and reported as warnings.
func ParseDocument(raw []byte) (Document, error) {
	body := stripCodeFences(raw)
	if len(body) == 0 {
		return Document{}, &MalformedError{Err: errors.New("empty response")}
	}

	var top rawDocument
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &top.Opportunities); err != nil {
			return Document{}, &MalformedError{Err: err}
		}
	case '{':
		if err := json.Unmarshal(body, &top); err != nil {
			return Document{}, &MalformedError{Err: err}
		}
	default:
		return Document{}, &MalformedError{Err: fmt.Errorf("unexpected leading byte %q", body[0])}
	}

	doc := Document{
		Sentiment: domain.Neutral,
		Overview:  strings.TrimSpace(top.Overview),
	}
	if top.MarketSentiment != nil {
		if dir, ok := domain.ParseDirection(*top.MarketSentiment); ok {
			doc.Sentiment = dir
		} else {
			doc.Warnings = append(doc.Warnings, ValidationWarning{
				Index:  -1,
				Flag:   domain.FlagUnknownDirection,
				Reason: fmt.Sprintf("market sentiment %q coerced to %s", *top.MarketSentiment, domain.Neutral),
			})
		}
	}

	merger := newMerger()
	for i, msg := range top.Opportunities {
		opp, warnings, ok := validateRecord(i, msg)
		doc.Warnings = append(doc.Warnings, warnings...)
		if !ok {
			continue
		}
		if w, merged := merger.add(i, opp); merged {
			doc.Warnings = append(doc.Warnings, w)
		}
	}
	doc.Opportunities = merger.result()

	return doc, nil
}

func validateRecord(index int, msg json.RawMessage) (domain.Opportunity, []ValidationWarning, bool) {
	var rec rawRecord
	if err := json.Unmarshal(msg, &rec); err != nil {
		return domain.Opportunity{}, []ValidationWarning{{
			Index:  index,
			Reason: fmt.Sprintf("record dropped: %v", err),
		}}, false
	}

	ticker := ""
	if rec.Ticker != nil {
		ticker = strings.ToUpper(strings.TrimSpace(*rec.Ticker))
	}
	if ticker == "" {
		return domain.Opportunity{}, []ValidationWarning{{
			Index:  index,
			Reason: "record dropped: missing ticker_symbol",
		}}, false
	}

	opp := domain.Opportunity{
		Ticker:               ticker,
		Company:              strings.TrimSpace(rec.Company),
		Confidence:           rec.Confidence,
		Rationale:            strings.TrimSpace(rec.Rationale),
		SupportingArticleIDs: uniqueIDs(rec.SupportingArticleIDs),
	}

	var warnings []ValidationWarning
	switch {
	case rec.Direction == nil:
		opp.Direction = domain.Neutral
		opp.LowConfidence = true
		opp.Flags = append(opp.Flags, domain.FlagMissingDirection)
		warnings = append(warnings, ValidationWarning{
			Index:  index,
			Ticker: ticker,
			Flag:   domain.FlagMissingDirection,
			Reason: fmt.Sprintf("missing direction coerced to %s", domain.Neutral),
		})
	default:
		dir, ok := domain.ParseDirection(*rec.Direction)
		opp.Direction = dir
		if !ok {
			opp.LowConfidence = true
			opp.Flags = append(opp.Flags, domain.FlagUnknownDirection)
			warnings = append(warnings, ValidationWarning{
				Index:  index,
				Ticker: ticker,
				Flag:   domain.FlagUnknownDirection,
				Reason: fmt.Sprintf("direction %q coerced to %s", *rec.Direction, domain.Neutral),
			})
		}
	}

	switch h := strings.ToLower(strings.TrimSpace(rec.Horizon)); h {
	case "":
	case "short_term", "short-term", "short term":
		opp.Horizon = domain.HorizonShortTerm
	case "long_term", "long-term", "long term":
		opp.Horizon = domain.HorizonLongTerm
	default:
		opp.Flags = append(opp.Flags, domain.FlagUnknownHorizon)
		warnings = append(warnings, ValidationWarning{
			Index:  index,
			Ticker: ticker,
			Flag:   domain.FlagUnknownHorizon,
			Reason: fmt.Sprintf("horizon %q ignored", rec.Horizon),
		})
	}

	return opp, warnings, true
}

func stripCodeFences(raw []byte) []byte {
	body := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(body, []byte("```")) {
		return body
	}
	if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = body[3:]
	}
	body = bytes.TrimSpace(body)
	body = bytes.TrimSuffix(body, []byte("```"))
	return bytes.TrimSpace(body)
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]struct{}{}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
