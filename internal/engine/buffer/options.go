package buffer

// Option is a functional option for configuring a Buffer.
type Option func(*Buffer)

// WithLineEnding sets the buffer's on-disk line ending style.
func WithLineEnding(le LineEnding) Option {
	return func(b *Buffer) {
		b.lineEnding = le
	}
}

// WithTabWidth sets the buffer's tab width.
func WithTabWidth(width int) Option {
	return func(b *Buffer) {
		if width > 0 {
			b.tabWidth = width
		}
	}
}

// DetectLineEnding returns the most common line ending in the text.
// Returns LineEndingLF when the text has no line endings at all.
func DetectLineEnding(text string) LineEnding {
	var lf, crlf, cr int
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				crlf++
				i++
			} else {
				cr++
			}
		case '\n':
			lf++
		}
	}
	if crlf > 0 && crlf >= lf && crlf >= cr {
		return LineEndingCRLF
	}
	if cr > 0 && cr >= lf {
		return LineEndingCR
	}
	return LineEndingLF
}
