package buffer

import (
	"errors"
	"io"
	"strings"

	"github.com/dshills/loom/internal/engine/rope"
)

// ErrRangeInvalid is returned for a range outside the buffer.
var ErrRangeInvalid = errors.New("invalid range")

// LineEnding specifies the line ending style of the underlying file.
// Buffer content is always normalized to LF internally; the style is kept
// so saves can write the original endings back.
type LineEnding uint8

const (
	LineEndingLF   LineEnding = iota // Unix: \n
	LineEndingCRLF                   // Windows: \r\n
	LineEndingCR                     // Old Mac: \r
)

// String returns a printable representation of the line ending.
func (le LineEnding) String() string {
	switch le {
	case LineEndingCRLF:
		return "\\r\\n"
	case LineEndingCR:
		return "\\r"
	default:
		return "\\n"
	}
}

// Sequence returns the actual line ending characters.
func (le LineEnding) Sequence() string {
	switch le {
	case LineEndingCRLF:
		return "\r\n"
	case LineEndingCR:
		return "\r"
	default:
		return "\n"
	}
}

// Generation is a per-buffer counter incremented on every mutation.
// Background results tagged with an older generation are stale.
type Generation uint64

// Buffer holds the text of one open file as a rope, plus the metadata the
// editor needs to round-trip it to disk. Mutation is not internally locked:
// the owning goroutine (the editing loop) is the single writer, and
// concurrent readers use Snapshot.
type Buffer struct {
	rope       rope.Rope
	generation Generation
	lineEnding LineEnding
	tabWidth   int
}

// New creates an empty buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{
		rope:       rope.New(),
		lineEnding: LineEndingLF,
		tabWidth:   4,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// FromString creates a buffer with initial content. Line endings in the
// content are normalized to LF.
func FromString(s string, opts ...Option) *Buffer {
	b := New(opts...)
	b.rope = rope.FromString(normalizeToLF(s))
	return b
}

// FromReader creates a buffer from an io.Reader.
func FromReader(r io.Reader, opts ...Option) (*Buffer, error) {
	// Read everything up front: CRLF pairs may straddle read boundaries.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return FromString(string(data), opts...), nil
}

// normalizeToLF converts CRLF and CR line endings to LF.
func normalizeToLF(s string) string {
	if !strings.ContainsRune(s, '\r') {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Rope returns the current rope value.
func (b *Buffer) Rope() rope.Rope {
	return b.rope
}

// Text returns the full buffer content.
func (b *Buffer) Text() string {
	return b.rope.String()
}

// TextRange returns text in the byte range, clamping out-of-range bounds.
func (b *Buffer) TextRange(start, end ByteOffset) string {
	return b.rope.MustSlice(start, end)
}

// Len returns the total byte length.
func (b *Buffer) Len() ByteOffset {
	return b.rope.Len()
}

// LenChars returns the number of Unicode scalar values.
func (b *Buffer) LenChars() int64 {
	return b.rope.LenChars()
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int {
	return b.rope.LineCount()
}

// LineText returns the text of a line without its newline.
func (b *Buffer) LineText(line int) string {
	return b.rope.LineText(line)
}

// LineStartOffset returns the byte offset of the start of a line.
func (b *Buffer) LineStartOffset(line int) ByteOffset {
	return b.rope.LineStartOffset(line)
}

// LineEndOffset returns the byte offset of the end of a line (before the
// newline).
func (b *Buffer) LineEndOffset(line int) ByteOffset {
	return b.rope.LineEndOffset(line)
}

// OffsetToPoint converts a byte offset to line/column.
func (b *Buffer) OffsetToPoint(offset ByteOffset) Point {
	return b.rope.OffsetToPoint(offset)
}

// PointToOffset converts line/column to a byte offset.
func (b *Buffer) PointToOffset(p Point) ByteOffset {
	return b.rope.PointToOffset(p)
}

// IsEmpty returns true if the buffer holds no text.
func (b *Buffer) IsEmpty() bool {
	return b.rope.IsEmpty()
}

// Generation returns the current mutation generation.
func (b *Buffer) Generation() Generation {
	return b.generation
}

// LineEnding returns the buffer's on-disk line ending style.
func (b *Buffer) LineEnding() LineEnding {
	return b.lineEnding
}

// SetLineEnding sets the on-disk line ending style. Internal content stays
// LF-normalized.
func (b *Buffer) SetLineEnding(le LineEnding) {
	b.lineEnding = le
}

// TabWidth returns the buffer's tab width.
func (b *Buffer) TabWidth() int {
	return b.tabWidth
}

// SetTabWidth sets the buffer's tab width.
func (b *Buffer) SetTabWidth(width int) {
	if width > 0 {
		b.tabWidth = width
	}
}

// ApplyEdit applies a single edit. The edit's offsets must lie on character
// boundaries; a mis-aligned edit fails without modifying the buffer.
func (b *Buffer) ApplyEdit(edit Edit) (EditResult, error) {
	if edit.Range.Start > edit.Range.End {
		return EditResult{}, ErrRangeInvalid
	}

	oldText, err := b.rope.Slice(edit.Range.Start, edit.Range.End)
	if err != nil {
		return EditResult{}, err
	}

	text := normalizeToLF(edit.NewText)
	newRope, err := b.rope.Replace(edit.Range.Start, edit.Range.End, text)
	if err != nil {
		return EditResult{}, err
	}

	b.rope = newRope
	b.generation++

	return EditResult{
		OldRange: edit.Range,
		NewRange: Range{Start: edit.Range.Start, End: edit.Range.Start + ByteOffset(len(text))},
		OldText:  oldText,
		Delta:    ByteOffset(len(text)) - edit.Range.Len(),
	}, nil
}

// SetText replaces the entire content (used by reload). The generation
// still advances so stale background results are discarded.
func (b *Buffer) SetText(s string) {
	b.rope = rope.FromString(normalizeToLF(s))
	b.generation++
}

// EncodedText returns the content with the buffer's line ending style
// applied, for writing back to disk.
func (b *Buffer) EncodedText() string {
	text := b.rope.String()
	if b.lineEnding == LineEndingLF {
		return text
	}
	return strings.ReplaceAll(text, "\n", b.lineEnding.Sequence())
}

// Snapshot returns an immutable view of the current state, safe to hand to
// other goroutines.
func (b *Buffer) Snapshot() Snapshot {
	return Snapshot{
		rope:       b.rope,
		generation: b.generation,
		lineEnding: b.lineEnding,
		tabWidth:   b.tabWidth,
	}
}
