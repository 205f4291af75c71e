package rope

import (
	"io"
	"unicode/utf8"
)

// Builder incrementally constructs a rope from sequential writes.
// More efficient than repeated Concat for streaming input such as file
// reads.
type Builder struct {
	leaves  []*node
	pending []byte
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WriteString appends text to the builder.
func (b *Builder) WriteString(s string) {
	b.pending = append(b.pending, s...)
	b.flushFull()
}

// Write implements io.Writer.
func (b *Builder) Write(p []byte) (int, error) {
	b.pending = append(b.pending, p...)
	b.flushFull()
	return len(p), nil
}

// flushFull turns full leaf-sized prefixes of the pending buffer into
// leaves, keeping any trailing partial character in the buffer.
func (b *Builder) flushFull() {
	for len(b.pending) > maxLeafBytes {
		end := maxLeafBytes
		for end > 0 && !utf8.RuneStart(b.pending[end]) {
			end--
		}
		if end == 0 {
			break
		}
		b.leaves = append(b.leaves, newLeaf(string(b.pending[:end])))
		b.pending = b.pending[end:]
	}
}

// Len returns the total number of bytes written so far.
func (b *Builder) Len() int {
	total := len(b.pending)
	for _, leaf := range b.leaves {
		total += int(leaf.len())
	}
	return total
}

// Build returns the rope and resets the builder.
func (b *Builder) Build() Rope {
	if len(b.pending) > 0 {
		b.leaves = append(b.leaves, newLeaf(string(b.pending)))
		b.pending = nil
	}
	if len(b.leaves) == 0 {
		return New()
	}
	leaves := b.leaves
	b.leaves = nil
	return Rope{root: rebuildLevel(leaves)}
}

// FromReader creates a rope from an io.Reader.
func FromReader(r io.Reader) (Rope, error) {
	b := NewBuilder()
	buf := make([]byte, 64*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := b.Write(buf[:n]); werr != nil {
				return Rope{}, werr
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Rope{}, err
		}
	}
	return b.Build(), nil
}
