package editor

import (
	"sort"
)

// Selection is an order-irrelevant set of slot IDs. The store owns the
// canonical instance; the rendering layer mirrors it and reconciles by set
// equality so prop churn never causes redundant highlight refreshes.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Has reports membership.
func (s *Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected IDs.
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected IDs in sorted order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// ApplyClick applies outbound click semantics: without the multi modifier
// the selection becomes exactly {id}; with it, membership of id toggles.
// Returns true if the selection changed.
func (s *Selection) ApplyClick(id string, multi bool) bool {
	if !multi {
		if len(s.ids) == 1 && s.Has(id) {
			return false
		}
		s.ids = map[string]struct{}{id: {}}
		return true
	}
	if s.Has(id) {
		delete(s.ids, id)
	} else {
		s.ids[id] = struct{}{}
	}
	return true
}

// Clear empties the selection. Returns true if it was non-empty.
func (s *Selection) Clear() bool {
	if len(s.ids) == 0 {
		return false
	}
	s.ids = make(map[string]struct{})
	return true
}

// Remove drops a single ID. Returns true if it was present.
func (s *Selection) Remove(id string) bool {
	if !s.Has(id) {
		return false
	}
	delete(s.ids, id)
	return true
}

// Add inserts a single ID. Returns true if it was absent.
func (s *Selection) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Equal reports whether the selection contains exactly the given IDs,
// ignoring order and duplicates.
func (s *Selection) Equal(ids []string) bool {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if !s.Has(id) {
			return false
		}
		seen[id] = struct{}{}
	}
	return len(seen) == len(s.ids)
}

// Replace sets the selection to exactly the given IDs. The comparison is by
// set equality, not reference. Returns true if the selection changed.
func (s *Selection) Replace(ids []string) bool {
	if s.Equal(ids) {
		return false
	}
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return true
}

// Prune drops IDs for which exists returns false. A selected slot that has
// disappeared from the collection is silently dropped, never an error.
// Returns true if anything was removed.
func (s *Selection) Prune(exists func(id string) bool) bool {
	changed := false
	for id := range s.ids {
		if !exists(id) {
			delete(s.ids, id)
			changed = true
		}
	}
	return changed
}
