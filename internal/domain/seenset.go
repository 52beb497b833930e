package domain

import "sort"

// SeenSet is the durable set of article fingerprints already reported on.
// The zero value is an empty set. Methods never mutate the receiver's contents
// after construction, so a loaded set can be shared freely within a run.
type SeenSet struct {
	ids map[string]struct{}
}

// NewSeenSet builds a set from the given fingerprints, skipping blanks.
func NewSeenSet(ids ...string) SeenSet {
	set := SeenSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id == "" {
			continue
		}
		set.ids[id] = struct{}{}
	}
	return set
}

// Contains reports whether the fingerprint was seen before.
func (s SeenSet) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of fingerprints.
func (s SeenSet) Len() int {
	return len(s.ids)
}

// IDs returns the fingerprints in lexical order.
func (s SeenSet) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Union returns a new set holding the receiver's fingerprints plus ids.
func (s SeenSet) Union(ids ...string) SeenSet {
	next := SeenSet{ids: make(map[string]struct{}, len(s.ids)+len(ids))}
	for id := range s.ids {
		next.ids[id] = struct{}{}
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		next.ids[id] = struct{}{}
	}
	return next
}

// Equal reports whether both sets hold exactly the same fingerprints.
func (s SeenSet) Equal(other SeenSet) bool {
	if len(s.ids) != len(other.ids) {
		return false
	}
	for id := range s.ids {
		if _, ok := other.ids[id]; !ok {
			return false
		}
	}
	return true
}
