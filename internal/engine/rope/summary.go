package rope

import "unicode/utf8"

// ByteOffset is an absolute byte position in a rope.
type ByteOffset = int64

// Point is a 0-indexed line/column position. Column is measured in bytes
// from the start of the line.
type Point struct {
	Line   int
	Column int
}

// Summary holds aggregated metrics for a text span. It forms a monoid under
// Add, which is what lets the tree answer length and line queries from
// per-node aggregates.
type Summary struct {
	// Bytes is the UTF-8 byte count.
	Bytes ByteOffset

	// Chars is the number of Unicode scalar values.
	Chars int64

	// Newlines is the number of '\n' bytes.
	Newlines int
}

// Add combines two summaries.
func (s Summary) Add(other Summary) Summary {
	return Summary{
		Bytes:    s.Bytes + other.Bytes,
		Chars:    s.Chars + other.Chars,
		Newlines: s.Newlines + other.Newlines,
	}
}

// IsZero returns true for the empty summary.
func (s Summary) IsZero() bool {
	return s.Bytes == 0
}

// computeSummary calculates metrics for a string.
func computeSummary(text string) Summary {
	var sum Summary
	sum.Bytes = ByteOffset(len(text))
	for i := 0; i < len(text); {
		b := text[i]
		if b < utf8.RuneSelf {
			if b == '\n' {
				sum.Newlines++
			}
			sum.Chars++
			i++
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		sum.Chars++
		i += size
	}
	return sum
}

// countNewlines returns the number of '\n' bytes in s[:limit].
func countNewlines(s string, limit int) int {
	if limit > len(s) {
		limit = len(s)
	}
	count := 0
	for i := 0; i < limit; i++ {
		if s[i] == '\n' {
			count++
		}
	}
	return count
}

// findNthNewline returns the byte index of the nth newline (1-indexed) in s,
// or -1 if s contains fewer than n newlines.
func findNthNewline(s string, n int) int {
	if n <= 0 {
		return -1
	}
	count := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			count++
			if count == n {
				return i
			}
		}
	}
	return -1
}
