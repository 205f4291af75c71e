package cursor

import (
	"fmt"

	"github.com/dshills/loom/internal/engine/buffer"
)

// ByteOffset is a byte position in the buffer.
type ByteOffset = buffer.ByteOffset

// Range is a byte range in the buffer.
type Range = buffer.Range

// Affinity disambiguates a position sitting exactly on a boundary, such as
// the split point of a wrapped line: Before attaches it to the end of the
// previous segment, After to the start of the next.
type Affinity uint8

const (
	AffinityBefore Affinity = iota
	AffinityAfter
)

// String returns a printable representation of the affinity.
func (a Affinity) String() string {
	if a == AffinityBefore {
		return "before"
	}
	return "after"
}

// Selection is an anchor/head pair. Head is the moving end (where the
// cursor blinks); Anchor stays fixed until a new selection starts. An empty
// selection (Anchor == Head) is a plain cursor.
//
// goalColumn preserves the target column across vertical movement through
// short lines; -1 means unset. It is deliberately unexported: any
// non-vertical movement resets it.
type Selection struct {
	Anchor   ByteOffset
	Head     ByteOffset
	Affinity Affinity

	goalColumn int
}

// NewCursor creates an empty selection at offset.
func NewCursor(offset ByteOffset) Selection {
	if offset < 0 {
		offset = 0
	}
	return Selection{Anchor: offset, Head: offset, goalColumn: -1}
}

// NewSelection creates a selection from anchor to head.
func NewSelection(anchor, head ByteOffset) Selection {
	return Selection{Anchor: anchor, Head: head, goalColumn: -1}
}

// IsEmpty returns true if the selection has no extent.
func (s Selection) IsEmpty() bool {
	return s.Anchor == s.Head
}

// Start returns the lower of anchor and head.
func (s Selection) Start() ByteOffset {
	if s.Anchor < s.Head {
		return s.Anchor
	}
	return s.Head
}

// End returns the higher of anchor and head.
func (s Selection) End() ByteOffset {
	if s.Anchor > s.Head {
		return s.Anchor
	}
	return s.Head
}

// Range returns the selection as a normalized byte range.
func (s Selection) Range() Range {
	return Range{Start: s.Start(), End: s.End()}
}

// Len returns the selection's extent in bytes.
func (s Selection) Len() ByteOffset {
	return s.End() - s.Start()
}

// Collapse returns a cursor at the selection's head.
func (s Selection) Collapse() Selection {
	return Selection{Anchor: s.Head, Head: s.Head, Affinity: s.Affinity, goalColumn: -1}
}

// WithHead returns a copy with the head moved, anchor kept.
func (s Selection) WithHead(head ByteOffset) Selection {
	s.Head = head
	return s
}

// Merge returns the union of two selections. Head direction follows the
// receiver.
func (s Selection) Merge(other Selection) Selection {
	start := s.Start()
	if other.Start() < start {
		start = other.Start()
	}
	end := s.End()
	if other.End() > end {
		end = other.End()
	}
	if s.Head < s.Anchor {
		return Selection{Anchor: end, Head: start, Affinity: s.Affinity, goalColumn: -1}
	}
	return Selection{Anchor: start, Head: end, Affinity: s.Affinity, goalColumn: -1}
}

// Clamp limits the selection to [0, maxOffset].
func (s Selection) Clamp(maxOffset ByteOffset) Selection {
	clamp := func(v ByteOffset) ByteOffset {
		if v < 0 {
			return 0
		}
		if v > maxOffset {
			return maxOffset
		}
		return v
	}
	s.Anchor = clamp(s.Anchor)
	s.Head = clamp(s.Head)
	return s
}

// Equals reports whether two selections cover the same anchor/head pair.
func (s Selection) Equals(other Selection) bool {
	return s.Anchor == other.Anchor && s.Head == other.Head
}

// String returns a human-readable representation.
func (s Selection) String() string {
	if s.IsEmpty() {
		return fmt.Sprintf("cursor@%d", s.Head)
	}
	return fmt.Sprintf("sel[%d->%d]", s.Anchor, s.Head)
}
