package cursor

import (
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/words"
	"github.com/rivo/uniseg"

	"github.com/dshills/loom/internal/engine/rope"
)

// Motion identifies a movement strategy. Movement is dispatched by tag so
// callers (keymaps, handlers) can treat all motions uniformly.
type Motion uint8

const (
	MotionLeft Motion = iota
	MotionRight
	MotionUp
	MotionDown
	MotionWordLeft
	MotionWordRight
	MotionLineStart
	MotionLineEnd
	MotionParagraphBack
	MotionParagraphForward
	MotionBufferStart
	MotionBufferEnd
)

// Move applies a motion to a selection over the rope. With extend false the
// result is a cursor at the new head; with extend true the anchor stays and
// only the head moves. Movement never lands inside a character or grapheme
// cluster.
func Move(r rope.Rope, sel Selection, m Motion, extend bool) Selection {
	head := sel.Head
	affinity := sel.Affinity
	goal := -1

	switch m {
	case MotionLeft:
		// Collapsing a selection moves to its start, not one left of head.
		if !extend && !sel.IsEmpty() {
			head = sel.Start()
		} else {
			head = PrevGraphemeBoundary(r, head)
		}
	case MotionRight:
		if !extend && !sel.IsEmpty() {
			head = sel.End()
		} else {
			head = NextGraphemeBoundary(r, head)
		}
	case MotionUp, MotionDown:
		head, affinity, goal = verticalMove(r, sel, m == MotionDown)
	case MotionWordLeft:
		head = PrevWordBoundary(r, head)
	case MotionWordRight:
		head = NextWordBoundary(r, head)
	case MotionLineStart:
		head = r.LineStartOffset(r.ByteToLine(head))
	case MotionLineEnd:
		head = r.LineEndOffset(r.ByteToLine(head))
		affinity = AffinityBefore
	case MotionParagraphBack:
		head = prevParagraphBoundary(r, head)
	case MotionParagraphForward:
		head = nextParagraphBoundary(r, head)
	case MotionBufferStart:
		head = 0
	case MotionBufferEnd:
		head = r.Len()
	}

	result := Selection{Head: head, Affinity: affinity, goalColumn: goal}
	if extend {
		result.Anchor = sel.Anchor
	} else {
		result.Anchor = head
	}
	return result
}

// lineSegment returns the bounds of a line including its line ending.
func lineSegment(r rope.Rope, line int) (ByteOffset, ByteOffset) {
	start := r.LineToByte(line)
	var end ByteOffset
	if line >= r.LineCount()-1 {
		end = r.Len()
	} else {
		end = r.LineToByte(line + 1)
	}
	return start, end
}

// NextGraphemeBoundary returns the first grapheme-cluster boundary after
// offset, clamped to the rope length.
func NextGraphemeBoundary(r rope.Rope, offset ByteOffset) ByteOffset {
	if offset >= r.Len() {
		return r.Len()
	}
	if offset < 0 {
		offset = 0
	}

	line := r.ByteToLine(offset)
	segStart, segEnd := lineSegment(r, line)
	seg := r.MustSlice(segStart, segEnd)

	pos := segStart
	state := -1
	for len(seg) > 0 {
		var cluster string
		cluster, seg, _, state = uniseg.FirstGraphemeClusterInString(seg, state)
		pos += ByteOffset(len(cluster))
		if pos > offset {
			return pos
		}
	}
	return segEnd
}

// PrevGraphemeBoundary returns the last grapheme-cluster boundary before
// offset, clamped to 0.
func PrevGraphemeBoundary(r rope.Rope, offset ByteOffset) ByteOffset {
	if offset <= 0 {
		return 0
	}
	if offset > r.Len() {
		return r.Len()
	}

	line := r.ByteToLine(offset)
	segStart, _ := lineSegment(r, line)
	if offset == segStart {
		// At a line start the previous boundary is on the previous line,
		// before its line-ending cluster.
		line--
		segStart, _ = lineSegment(r, line)
	}

	seg := r.MustSlice(segStart, offset)
	pos := segStart
	last := segStart
	state := -1
	for len(seg) > 0 {
		var cluster string
		cluster, seg, _, state = uniseg.FirstGraphemeClusterInString(seg, state)
		last = pos
		pos += ByteOffset(len(cluster))
	}
	return last
}

// charClass is the character classification used for word movement:
// word characters (letters, digits, underscore), whitespace, and
// punctuation. Word boundaries are exactly the class transitions.
type charClass uint8

const (
	classWord charClass = iota
	classSpace
	classPunct
)

func classOf(c rune) charClass {
	switch {
	case c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c):
		return classWord
	case unicode.IsSpace(c):
		return classSpace
	default:
		return classPunct
	}
}

// NextWordBoundary returns the next class-transition boundary after offset:
// the end of the character run the offset sits in.
func NextWordBoundary(r rope.Rope, offset ByteOffset) ByteOffset {
	if offset >= r.Len() {
		return r.Len()
	}
	first, size := r.RuneAt(offset)
	if size == 0 {
		return r.Len()
	}
	cls := classOf(first)
	pos := offset + ByteOffset(size)
	for pos < r.Len() {
		c, sz := r.RuneAt(pos)
		if sz == 0 || classOf(c) != cls {
			break
		}
		pos += ByteOffset(sz)
	}
	return pos
}

// PrevWordBoundary returns the previous class-transition boundary before
// offset: the start of the character run that precedes it.
func PrevWordBoundary(r rope.Rope, offset ByteOffset) ByteOffset {
	if offset <= 0 {
		return 0
	}
	if offset > r.Len() {
		offset = r.Len()
	}
	c, size := runeBefore(r, offset)
	if size == 0 {
		return 0
	}
	cls := classOf(c)
	pos := offset - ByteOffset(size)
	for pos > 0 {
		prev, sz := runeBefore(r, pos)
		if sz == 0 || classOf(prev) != cls {
			break
		}
		pos -= ByteOffset(sz)
	}
	return pos
}

// runeBefore decodes the rune ending at offset.
func runeBefore(r rope.Rope, offset ByteOffset) (rune, int) {
	if offset <= 0 {
		return utf8.RuneError, 0
	}
	start := offset - utf8.UTFMax
	if start < 0 {
		start = 0
	}
	window := r.MustSlice(start, offset)
	return utf8.DecodeLastRuneInString(window)
}

// verticalMove moves the head one line up or down, preserving the target
// grapheme column across shorter lines.
func verticalMove(r rope.Rope, sel Selection, down bool) (ByteOffset, Affinity, int) {
	head := sel.Head
	line := r.ByteToLine(head)

	col := sel.goalColumn
	if col < 0 {
		col = graphemeColumn(r, line, head)
	}

	if down {
		if line >= r.LineCount()-1 {
			return r.Len(), AffinityBefore, col
		}
		line++
	} else {
		if line == 0 {
			return 0, AffinityAfter, col
		}
		line--
	}

	offset, clamped := offsetAtGraphemeColumn(r, line, col)
	affinity := AffinityAfter
	if clamped {
		affinity = AffinityBefore
	}
	return offset, affinity, col
}

// graphemeColumn counts grapheme clusters between the line start and offset.
func graphemeColumn(r rope.Rope, line int, offset ByteOffset) int {
	start := r.LineStartOffset(line)
	seg := r.MustSlice(start, offset)
	col := 0
	state := -1
	for len(seg) > 0 {
		_, seg, _, state = uniseg.FirstGraphemeClusterInString(seg, state)
		col++
	}
	return col
}

// offsetAtGraphemeColumn returns the byte offset of the given grapheme
// column on a line, clamped to the line end. The second result reports
// whether clamping occurred.
func offsetAtGraphemeColumn(r rope.Rope, line int, col int) (ByteOffset, bool) {
	start := r.LineStartOffset(line)
	end := r.LineEndOffset(line)
	seg := r.MustSlice(start, end)

	pos := start
	state := -1
	for i := 0; i < col; i++ {
		if len(seg) == 0 {
			return end, true
		}
		var cluster string
		cluster, seg, _, state = uniseg.FirstGraphemeClusterInString(seg, state)
		pos += ByteOffset(len(cluster))
	}
	return pos, false
}

// blankLine reports whether a line contains no characters.
func blankLine(r rope.Rope, line int) bool {
	return r.LineEndOffset(line) == r.LineStartOffset(line)
}

// nextParagraphBoundary moves to the start of the next blank line, or the
// buffer end when there is none.
func nextParagraphBoundary(r rope.Rope, offset ByteOffset) ByteOffset {
	line := r.ByteToLine(offset) + 1
	for line < r.LineCount() {
		if blankLine(r, line) {
			return r.LineStartOffset(line)
		}
		line++
	}
	return r.Len()
}

// prevParagraphBoundary moves to the start of the previous blank line, or
// the buffer start.
func prevParagraphBoundary(r rope.Rope, offset ByteOffset) ByteOffset {
	line := r.ByteToLine(offset) - 1
	for line >= 0 {
		if blankLine(r, line) {
			return r.LineStartOffset(line)
		}
		line--
	}
	return 0
}

// SelectAll returns a selection covering the whole rope.
func SelectAll(r rope.Rope) Selection {
	return NewSelection(0, r.Len())
}

// SelectLine returns a selection covering the line containing offset,
// including its line ending.
func SelectLine(r rope.Rope, offset ByteOffset) Selection {
	line := r.ByteToLine(offset)
	start, end := lineSegment(r, line)
	return NewSelection(start, end)
}

// SelectWord returns a selection covering the Unicode word containing
// offset, per UAX #29 word segmentation. On whitespace or punctuation it
// selects that run instead.
func SelectWord(r rope.Rope, offset ByteOffset) Selection {
	line := r.ByteToLine(offset)
	start := r.LineStartOffset(line)
	end := r.LineEndOffset(line)
	if offset >= end && offset > start {
		// Cursor at line end selects the last word on the line.
		offset = end - 1
	}
	text := r.MustSlice(start, end)

	tokens := words.FromString(text)
	pos := start
	for tokens.Next() {
		token := tokens.Value()
		next := pos + ByteOffset(len(token))
		if offset < next {
			return NewSelection(pos, next)
		}
		pos = next
	}
	return NewCursor(offset)
}
