package rope

import "io"

// ChunkIterator iterates over the rope's leaf text segments in order.
// Useful for streaming the rope to disk or a matcher without building the
// full string.
type ChunkIterator struct {
	stack  []*node
	chunk  string
	offset ByteOffset
	next   ByteOffset
}

// Chunks returns an iterator over all leaf segments.
func (r Rope) Chunks() *ChunkIterator {
	it := &ChunkIterator{}
	if r.root != nil && r.root.len() > 0 {
		it.stack = append(it.stack, r.root)
	}
	return it
}

// Next advances to the next segment. Returns false when exhausted.
func (it *ChunkIterator) Next() bool {
	for len(it.stack) > 0 {
		n := it.stack[len(it.stack)-1]
		it.stack = it.stack[:len(it.stack)-1]
		if n.isLeaf() {
			it.chunk = n.text
			it.offset = it.next
			it.next += n.len()
			return true
		}
		// Push children in reverse so the leftmost is popped first.
		for i := len(n.children) - 1; i >= 0; i-- {
			it.stack = append(it.stack, n.children[i])
		}
	}
	return false
}

// Chunk returns the current segment text.
func (it *ChunkIterator) Chunk() string {
	return it.chunk
}

// Offset returns the byte offset of the current segment.
func (it *ChunkIterator) Offset() ByteOffset {
	return it.offset
}

// LineIterator iterates over lines in order.
type LineIterator struct {
	rope Rope
	line int
	text string
}

// Lines returns an iterator over all lines.
func (r Rope) Lines() *LineIterator {
	return &LineIterator{rope: r, line: -1}
}

// Next advances to the next line. Returns false when exhausted.
func (it *LineIterator) Next() bool {
	if it.line+1 >= it.rope.LineCount() {
		return false
	}
	it.line++
	it.text = it.rope.LineText(it.line)
	return true
}

// Line returns the current 0-indexed line number.
func (it *LineIterator) Line() int {
	return it.line
}

// Text returns the current line's text without its line ending.
func (it *LineIterator) Text() string {
	return it.text
}

// StartOffset returns the byte offset of the current line's start.
func (it *LineIterator) StartOffset() ByteOffset {
	return it.rope.LineStartOffset(it.line)
}

// EndOffset returns the byte offset of the current line's end.
func (it *LineIterator) EndOffset() ByteOffset {
	return it.rope.LineEndOffset(it.line)
}

// Reader adapts a rope to io.Reader for streaming consumers.
type Reader struct {
	it      *ChunkIterator
	current string
}

// NewReader returns an io.Reader over the rope's content.
func (r Rope) NewReader() *Reader {
	return &Reader{it: r.Chunks()}
}

// Read implements io.Reader.
func (rd *Reader) Read(p []byte) (int, error) {
	for len(rd.current) == 0 {
		if !rd.it.Next() {
			return 0, io.EOF
		}
		rd.current = rd.it.Chunk()
	}
	n := copy(p, rd.current)
	rd.current = rd.current[n:]
	return n, nil
}
