package cursor

import "sort"

// Set manages multiple cursors/selections over one buffer. Selections are
// kept sorted by position and non-overlapping; overlapping selections merge
// during normalization. The first selection is the primary one.
type Set struct {
	selections []Selection
}

// NewSet creates a set with a single selection.
func NewSet(initial Selection) *Set {
	return &Set{selections: []Selection{initial}}
}

// NewSetAt creates a set with a single cursor at offset.
func NewSetAt(offset ByteOffset) *Set {
	return NewSet(NewCursor(offset))
}

// NewSetFromSlice creates a normalized set from selections.
func NewSetFromSlice(selections []Selection) *Set {
	if len(selections) == 0 {
		return NewSetAt(0)
	}
	s := &Set{selections: make([]Selection, len(selections))}
	copy(s.selections, selections)
	s.normalize()
	return s
}

// Primary returns the primary (first) selection.
func (s *Set) Primary() Selection {
	if len(s.selections) == 0 {
		return Selection{}
	}
	return s.selections[0]
}

// All returns a copy of all selections, safe to modify.
func (s *Set) All() []Selection {
	out := make([]Selection, len(s.selections))
	copy(out, s.selections)
	return out
}

// Count returns the number of selections.
func (s *Set) Count() int {
	return len(s.selections)
}

// Get returns the selection at index, or a zero Selection out of range.
func (s *Set) Get(index int) Selection {
	if index < 0 || index >= len(s.selections) {
		return Selection{}
	}
	return s.selections[index]
}

// Add inserts a selection, merging overlaps.
func (s *Set) Add(sel Selection) {
	s.selections = append(s.selections, sel)
	s.normalize()
}

// Set replaces all selections with one.
func (s *Set) Set(sel Selection) {
	s.selections = s.selections[:0]
	s.selections = append(s.selections, sel)
}

// SetAll replaces all selections.
func (s *Set) SetAll(sels []Selection) {
	if len(sels) == 0 {
		s.Set(NewCursor(0))
		return
	}
	s.selections = make([]Selection, len(sels))
	copy(s.selections, sels)
	s.normalize()
}

// Clear drops all selections except the primary.
func (s *Set) Clear() {
	if len(s.selections) > 1 {
		s.selections = s.selections[:1]
	}
}

// HasSelection returns true if any selection has extent.
func (s *Set) HasSelection() bool {
	for _, sel := range s.selections {
		if !sel.IsEmpty() {
			return true
		}
	}
	return false
}

// CollapseAll collapses every selection to a cursor at its head.
func (s *Set) CollapseAll() {
	for i, sel := range s.selections {
		s.selections[i] = sel.Collapse()
	}
	s.normalize()
}

// MapInPlace applies f to each selection, then renormalizes.
func (s *Set) MapInPlace(f func(sel Selection) Selection) {
	for i, sel := range s.selections {
		s.selections[i] = f(sel)
	}
	s.normalize()
}

// Clamp limits all selections to [0, maxOffset].
func (s *Set) Clamp(maxOffset ByteOffset) {
	for i, sel := range s.selections {
		s.selections[i] = sel.Clamp(maxOffset)
	}
	s.normalize()
}

// Clone returns a deep copy of the set.
func (s *Set) Clone() *Set {
	clone := &Set{selections: make([]Selection, len(s.selections))}
	copy(clone.selections, s.selections)
	return clone
}

// Ranges returns the normalized byte range of every selection.
func (s *Set) Ranges() []Range {
	ranges := make([]Range, len(s.selections))
	for i, sel := range s.selections {
		ranges[i] = sel.Range()
	}
	return ranges
}

// Equals reports whether two sets hold the same selections in order.
func (s *Set) Equals(other *Set) bool {
	if other == nil || len(s.selections) != len(other.selections) {
		return false
	}
	for i, sel := range s.selections {
		if !sel.Equals(other.selections[i]) {
			return false
		}
	}
	return true
}

// normalize sorts selections and merges overlapping ones. Cursors that
// merely touch a neighbor's boundary stay separate; real overlaps merge.
func (s *Set) normalize() {
	if len(s.selections) <= 1 {
		return
	}

	sort.SliceStable(s.selections, func(i, j int) bool {
		si, sj := s.selections[i].Start(), s.selections[j].Start()
		if si != sj {
			return si < sj
		}
		return s.selections[i].End() > s.selections[j].End()
	})

	merged := s.selections[:1]
	for _, sel := range s.selections[1:] {
		last := &merged[len(merged)-1]
		overlaps := sel.Start() < last.End() ||
			(sel.Start() == last.End() && sel.IsEmpty() && last.IsEmpty() && sel.Start() == last.Start())
		if overlaps {
			*last = last.Merge(sel)
		} else {
			merged = append(merged, sel)
		}
	}
	s.selections = merged
}
