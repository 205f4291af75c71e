package buffer

import "github.com/dshills/loom/internal/engine/rope"

// Snapshot is a read-only view of a buffer at a point in time. The rope is
// immutable, so a snapshot remains valid while the buffer keeps changing;
// Generation identifies which revision it captured.
type Snapshot struct {
	rope       rope.Rope
	generation Generation
	lineEnding LineEnding
	tabWidth   int
}

// Rope returns the captured rope.
func (s Snapshot) Rope() rope.Rope {
	return s.rope
}

// Generation returns the buffer generation this snapshot captured.
func (s Snapshot) Generation() Generation {
	return s.generation
}

// Text returns the full snapshot content.
func (s Snapshot) Text() string {
	return s.rope.String()
}

// TextRange returns text in the byte range, clamping out-of-range bounds.
func (s Snapshot) TextRange(start, end ByteOffset) string {
	return s.rope.MustSlice(start, end)
}

// Len returns the total byte length.
func (s Snapshot) Len() ByteOffset {
	return s.rope.Len()
}

// LineCount returns the number of lines.
func (s Snapshot) LineCount() int {
	return s.rope.LineCount()
}

// LineText returns the text of a line without its newline.
func (s Snapshot) LineText(line int) string {
	return s.rope.LineText(line)
}

// LineEnding returns the snapshot's on-disk line ending style.
func (s Snapshot) LineEnding() LineEnding {
	return s.lineEnding
}

// TabWidth returns the snapshot's tab width.
func (s Snapshot) TabWidth() int {
	return s.tabWidth
}
