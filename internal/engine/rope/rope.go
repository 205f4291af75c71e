package rope

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Errors returned by rope operations.
var (
	// ErrNotCharBoundary indicates an offset splits a multi-byte character.
	// This is a programming error in the caller, never user input.
	ErrNotCharBoundary = errors.New("offset not on character boundary")

	// ErrOffsetOutOfRange indicates an offset outside [0, Len()].
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrRangeInvalid indicates a range with end < start.
	ErrRangeInvalid = errors.New("invalid range")
)

// Rope is an immutable rope. Operations return new Rope values; the
// original is never modified, so a Rope can be shared across goroutines
// without locking.
type Rope struct {
	root *node
}

// New creates an empty rope.
func New() Rope {
	return Rope{root: newLeaf("")}
}

// FromString creates a rope from a string.
func FromString(s string) Rope {
	if len(s) == 0 {
		return New()
	}
	var leaves []*node
	for len(s) > 0 {
		end := leafCut(s)
		leaves = append(leaves, newLeaf(s[:end]))
		s = s[end:]
	}
	return Rope{root: rebuildLevel(leaves)}
}

// leafCut returns a cut point for the next leaf that does not split a
// character or exceed maxLeafBytes.
func leafCut(s string) int {
	if len(s) <= maxLeafBytes {
		return len(s)
	}
	end := maxLeafBytes
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	if end == 0 {
		return len(s)
	}
	return end
}

// Len returns the total byte length.
func (r Rope) Len() ByteOffset {
	if r.root == nil {
		return 0
	}
	return r.root.len()
}

// LenChars returns the number of Unicode scalar values.
func (r Rope) LenChars() int64 {
	if r.root == nil {
		return 0
	}
	return r.root.summary.Chars
}

// LineCount returns the number of lines (newlines + 1).
func (r Rope) LineCount() int {
	if r.root == nil {
		return 1
	}
	return r.root.summary.Newlines + 1
}

// IsEmpty returns true if the rope contains no text.
func (r Rope) IsEmpty() bool {
	return r.Len() == 0
}

// String returns the full text. Use sparingly for large ropes.
func (r Rope) String() string {
	if r.root == nil {
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(r.Len()))
	r.root.appendTo(&sb)
	return sb.String()
}

// Slice returns the text in the byte range [start, end).
// Both bounds must lie on character boundaries.
func (r Rope) Slice(start, end ByteOffset) (string, error) {
	if err := r.checkRange(start, end); err != nil {
		return "", err
	}
	if r.root == nil || start >= end {
		return "", nil
	}
	var sb strings.Builder
	sb.Grow(int(end - start))
	r.root.appendRange(&sb, start, end)
	return sb.String(), nil
}

// MustSlice is Slice for bounds already validated by the caller.
// It clamps out-of-range bounds instead of failing.
func (r Rope) MustSlice(start, end ByteOffset) string {
	if r.root == nil {
		return ""
	}
	if start < 0 {
		start = 0
	}
	if end > r.Len() {
		end = r.Len()
	}
	if start >= end {
		return ""
	}
	var sb strings.Builder
	sb.Grow(int(end - start))
	r.root.appendRange(&sb, start, end)
	return sb.String()
}

// Insert inserts text at the given byte offset, returning a new rope.
func (r Rope) Insert(offset ByteOffset, text string) (Rope, error) {
	if err := r.checkBoundary(offset); err != nil {
		return r, err
	}
	if len(text) == 0 {
		return r, nil
	}
	if r.root == nil || r.Len() == 0 {
		return FromString(text), nil
	}

	left, right := r.root.split(offset)
	mid := FromString(text).root
	return Rope{root: concatNodes(concatNodes(left, mid), right)}, nil
}

// Delete removes the byte range [start, end), returning a new rope.
func (r Rope) Delete(start, end ByteOffset) (Rope, error) {
	if err := r.checkRange(start, end); err != nil {
		return r, err
	}
	if r.root == nil || start >= end {
		return r, nil
	}

	left, rest := r.root.split(start)
	_, right := rest.split(end - start)
	return Rope{root: concatNodes(left, right)}, nil
}

// Replace replaces the byte range [start, end) with text.
func (r Rope) Replace(start, end ByteOffset, text string) (Rope, error) {
	if err := r.checkRange(start, end); err != nil {
		return r, err
	}
	if start >= end {
		return r.Insert(start, text)
	}
	deleted, err := r.Delete(start, end)
	if err != nil {
		return r, err
	}
	return deleted.Insert(start, text)
}

// Concat concatenates two ropes.
func (r Rope) Concat(other Rope) Rope {
	if r.root == nil || r.Len() == 0 {
		return other
	}
	if other.root == nil || other.Len() == 0 {
		return r
	}
	return Rope{root: concatNodes(r.root, other.root)}
}

// Split splits the rope at offset into [0, offset) and [offset, end).
func (r Rope) Split(offset ByteOffset) (Rope, Rope, error) {
	if err := r.checkBoundary(offset); err != nil {
		return r, Rope{}, err
	}
	if r.root == nil {
		return New(), New(), nil
	}
	left, right := r.root.split(offset)
	return Rope{root: left}, Rope{root: right}, nil
}

// ByteAt returns the byte at the given offset.
func (r Rope) ByteAt(offset ByteOffset) (byte, bool) {
	if r.root == nil || offset < 0 || offset >= r.Len() {
		return 0, false
	}
	return r.root.byteAt(offset), true
}

// RuneAt returns the rune starting at the given byte offset and its size.
// Returns utf8.RuneError and size 0 if offset is out of range.
func (r Rope) RuneAt(offset ByteOffset) (rune, int) {
	if r.root == nil || offset < 0 || offset >= r.Len() {
		return utf8.RuneError, 0
	}
	end := offset + utf8.UTFMax
	if end > r.Len() {
		end = r.Len()
	}
	return utf8.DecodeRuneInString(r.MustSlice(offset, end))
}

// IsCharBoundary reports whether offset falls on a character boundary.
// Offsets 0 and Len() are always boundaries.
func (r Rope) IsCharBoundary(offset ByteOffset) bool {
	if offset <= 0 || offset >= r.Len() {
		return offset >= 0 && offset <= r.Len()
	}
	b, _ := r.ByteAt(offset)
	return utf8.RuneStart(b)
}

// SnapToCharBoundary returns the nearest character boundary at or before
// offset, clamped to [0, Len()].
func (r Rope) SnapToCharBoundary(offset ByteOffset) ByteOffset {
	if offset <= 0 {
		return 0
	}
	if offset >= r.Len() {
		return r.Len()
	}
	for offset > 0 && !r.IsCharBoundary(offset) {
		offset--
	}
	return offset
}

// CharsBefore returns the number of Unicode scalar values in [0, offset).
func (r Rope) CharsBefore(offset ByteOffset) (int64, error) {
	if err := r.checkBoundary(offset); err != nil {
		return 0, err
	}
	if r.root == nil || offset == 0 {
		return 0, nil
	}
	return r.root.charsBefore(offset), nil
}

// LineToByte returns the byte offset of the start of the given 0-indexed
// line. Lines past the end clamp to Len().
func (r Rope) LineToByte(line int) ByteOffset {
	if r.root == nil || line <= 0 {
		return 0
	}
	if line > r.root.summary.Newlines {
		return r.Len()
	}
	return r.root.lineToByte(line)
}

// ByteToLine returns the 0-indexed line containing the given byte offset.
// Offsets past the end clamp to the last line.
func (r Rope) ByteToLine(offset ByteOffset) int {
	if r.root == nil || offset <= 0 {
		return 0
	}
	if offset > r.Len() {
		offset = r.Len()
	}
	return r.root.byteToLine(offset)
}

// LineStartOffset returns the byte offset of the start of the given line.
func (r Rope) LineStartOffset(line int) ByteOffset {
	return r.LineToByte(line)
}

// LineEndOffset returns the byte offset of the end of the given line, not
// including the newline character.
func (r Rope) LineEndOffset(line int) ByteOffset {
	if r.root == nil {
		return 0
	}
	if line >= r.LineCount()-1 {
		return r.Len()
	}
	next := r.LineToByte(line + 1)
	// Back up over the newline, and a preceding '\r' if present.
	end := next - 1
	if end > 0 {
		if b, ok := r.ByteAt(end - 1); ok && b == '\r' {
			end--
		}
	}
	return end
}

// LineText returns the text of the given line without its line ending.
func (r Rope) LineText(line int) string {
	return r.MustSlice(r.LineStartOffset(line), r.LineEndOffset(line))
}

// OffsetToPoint converts a byte offset to a line/column position.
func (r Rope) OffsetToPoint(offset ByteOffset) Point {
	if r.root == nil || offset <= 0 {
		return Point{}
	}
	if offset > r.Len() {
		offset = r.Len()
	}
	line := r.ByteToLine(offset)
	return Point{Line: line, Column: int(offset - r.LineToByte(line))}
}

// PointToOffset converts a line/column position to a byte offset. Columns
// past the line end clamp to the end of the line.
func (r Rope) PointToOffset(p Point) ByteOffset {
	if r.root == nil {
		return 0
	}
	start := r.LineStartOffset(p.Line)
	end := r.LineEndOffset(p.Line)
	if ByteOffset(p.Column) >= end-start {
		return end
	}
	return start + ByteOffset(p.Column)
}

// Equals reports whether two ropes contain the same text. It compares
// content, not structure.
func (r Rope) Equals(other Rope) bool {
	if r.Len() != other.Len() {
		return false
	}
	return r.String() == other.String()
}

// checkBoundary validates a single offset.
func (r Rope) checkBoundary(offset ByteOffset) error {
	if offset < 0 || offset > r.Len() {
		return fmt.Errorf("offset %d of %d: %w", offset, r.Len(), ErrOffsetOutOfRange)
	}
	if !r.IsCharBoundary(offset) {
		return fmt.Errorf("offset %d: %w", offset, ErrNotCharBoundary)
	}
	return nil
}

// checkRange validates a byte range.
func (r Rope) checkRange(start, end ByteOffset) error {
	if end < start {
		return fmt.Errorf("range [%d, %d): %w", start, end, ErrRangeInvalid)
	}
	if err := r.checkBoundary(start); err != nil {
		return err
	}
	return r.checkBoundary(end)
}
