package analysis

import (
	"fmt"

	"MarketScanner/internal/domain"
)

// merger folds records for the same ticker into the first-seen slot.
type merger struct {
	order []string
	byKey map[string]*domain.Opportunity
}

func newMerger() *merger {
	return &merger{byKey: map[string]*domain.Opportunity{}}
}

func (m *merger) add(index int, opp domain.Opportunity) (ValidationWarning, bool) {
	existing, ok := m.byKey[opp.Ticker]
	if !ok {
		stored := opp
		m.byKey[opp.Ticker] = &stored
		m.order = append(m.order, opp.Ticker)
		return ValidationWarning{}, false
	}

	existing.SupportingArticleIDs = uniqueIDs(append(existing.SupportingArticleIDs, opp.SupportingArticleIDs...))
	if existing.Company == "" {
		existing.Company = opp.Company
	}
	if existing.Horizon == "" {
		existing.Horizon = opp.Horizon
	}

	reason := fmt.Sprintf("merged into earlier record, kept direction %s", existing.Direction)
	if outranks(opp.Confidence, existing.Confidence) {
		existing.Direction = opp.Direction
		existing.Confidence = opp.Confidence
		existing.Rationale = opp.Rationale
		existing.LowConfidence = opp.LowConfidence
		existing.Flags = append([]domain.ValidationFlag(nil), opp.Flags...)
		reason = fmt.Sprintf("merged into earlier record, higher confidence direction %s wins", opp.Direction)
	}
	if !existing.HasFlag(domain.FlagMerged) {
		existing.Flags = append(existing.Flags, domain.FlagMerged)
	}

	return ValidationWarning{
		Index:  index,
		Ticker: opp.Ticker,
		Flag:   domain.FlagMerged,
		Reason: reason,
	}, true
}

func (m *merger) result() []domain.Opportunity {
	out := make([]domain.Opportunity, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, *m.byKey[key])
	}
	return out
}

// outranks reports whether a later confidence replaces an earlier one.
// Only an explicit, strictly higher value wins.
func outranks(later, earlier *float64) bool {
	if later == nil {
		return false
	}
	if earlier == nil {
		return true
	}
	return *later > *earlier
}
