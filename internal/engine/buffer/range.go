package buffer

import (
	"fmt"

	"github.com/dshills/loom/internal/engine/rope"
)

// ByteOffset is a byte position in the buffer.
type ByteOffset = rope.ByteOffset

// Point is a 0-indexed line/column position.
type Point = rope.Point

// Range is a half-open byte range [Start, End).
type Range struct {
	Start ByteOffset
	End   ByteOffset
}

// NewRange creates a range, swapping bounds if needed.
func NewRange(start, end ByteOffset) Range {
	if end < start {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}

// Len returns the length of the range in bytes.
func (r Range) Len() ByteOffset {
	return r.End - r.Start
}

// IsEmpty returns true if the range covers no bytes.
func (r Range) IsEmpty() bool {
	return r.Start >= r.End
}

// Contains returns true if offset lies within the range.
func (r Range) Contains(offset ByteOffset) bool {
	return offset >= r.Start && offset < r.End
}

// Overlaps returns true if the ranges share any bytes.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// Union returns the smallest range covering both.
func (r Range) Union(other Range) Range {
	result := r
	if other.Start < result.Start {
		result.Start = other.Start
	}
	if other.End > result.End {
		result.End = other.End
	}
	return result
}

// String returns a human-readable representation.
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}
