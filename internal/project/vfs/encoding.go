package vfs

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies the character encoding of a file on disk. Buffers
// always hold UTF-8 in memory; Decode and Encode convert at the disk
// boundary.
type Encoding uint8

const (
	EncodingUTF8 Encoding = iota
	EncodingUTF8BOM
	EncodingUTF16LE
	EncodingUTF16BE
	EncodingLatin1
)

func (e Encoding) String() string {
	switch e {
	case EncodingUTF8BOM:
		return "utf-8-bom"
	case EncodingUTF16LE:
		return "utf-16le"
	case EncodingUTF16BE:
		return "utf-16be"
	case EncodingLatin1:
		return "iso-8859-1"
	default:
		return "utf-8"
	}
}

// LineEnding is the dominant line ending style found in a file.
type LineEnding uint8

const (
	LineLF LineEnding = iota
	LineCRLF
	LineCR
	LineMixed
)

func (le LineEnding) String() string {
	switch le {
	case LineCRLF:
		return "crlf"
	case LineCR:
		return "cr"
	case LineMixed:
		return "mixed"
	default:
		return "lf"
	}
}

// Indent describes the indentation style sniffed from file content.
type Indent struct {
	UseTabs bool
	Width   int
}

// DefaultIndent is used when a file has no indented lines to sniff.
var DefaultIndent = Indent{UseTabs: false, Width: 4}

// Sniff is everything detection learns from raw file bytes.
type Sniff struct {
	Encoding   Encoding
	HasBOM     bool
	Binary     bool
	LineEnding LineEnding
	Indent     Indent
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// ErrDecode is wrapped by Decode when bytes cannot be interpreted under
// the given encoding.
var ErrDecode = errors.New("vfs: undecodable content")

// ErrEncode is wrapped by Encode when text cannot be represented in the
// target encoding.
var ErrEncode = errors.New("vfs: unencodable content")

// Detect sniffs encoding, BOM, line endings, and indentation from raw
// content. BOM markers win; otherwise valid UTF-8 is assumed and
// anything else falls back to Latin-1, which accepts every byte.
func Detect(content []byte) Sniff {
	s := Sniff{LineEnding: LineLF, Indent: DefaultIndent}
	if len(content) == 0 {
		return s
	}

	switch {
	case bytes.HasPrefix(content, bomUTF8):
		s.Encoding = EncodingUTF8BOM
		s.HasBOM = true
	case bytes.HasPrefix(content, bomUTF16LE):
		s.Encoding = EncodingUTF16LE
		s.HasBOM = true
	case bytes.HasPrefix(content, bomUTF16BE):
		s.Encoding = EncodingUTF16BE
		s.HasBOM = true
	case utf8.Valid(content):
		s.Encoding = EncodingUTF8
	default:
		s.Encoding = EncodingLatin1
	}

	if s.Encoding == EncodingUTF8 || s.Encoding == EncodingUTF8BOM || s.Encoding == EncodingLatin1 {
		s.Binary = looksBinary(content)
	}
	if s.Binary {
		return s
	}

	text, err := Decode(content, s.Encoding)
	if err != nil {
		s.Binary = true
		return s
	}
	s.LineEnding = detectLineEnding(text)
	s.Indent = detectIndent(text)
	return s
}

// Decode converts raw file bytes to UTF-8 text. The BOM, when the
// encoding carries one, is consumed and not part of the result.
func Decode(content []byte, enc Encoding) (string, error) {
	switch enc {
	case EncodingUTF8:
		if !utf8.Valid(content) {
			return "", fmt.Errorf("%w: invalid utf-8", ErrDecode)
		}
		return string(content), nil
	case EncodingUTF8BOM:
		content = bytes.TrimPrefix(content, bomUTF8)
		if !utf8.Valid(content) {
			return "", fmt.Errorf("%w: invalid utf-8", ErrDecode)
		}
		return string(content), nil
	case EncodingUTF16LE:
		return decodeUTF16(content, unicode.LittleEndian)
	case EncodingUTF16BE:
		return decodeUTF16(content, unicode.BigEndian)
	case EncodingLatin1:
		out, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDecode, err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("%w: unknown encoding %d", ErrDecode, enc)
	}
}

func decodeUTF16(content []byte, endian unicode.Endianness) (string, error) {
	dec := unicode.UTF16(endian, unicode.UseBOM).NewDecoder()
	out, err := dec.Bytes(content)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return string(out), nil
}

// Encode converts UTF-8 text back to the file's on-disk encoding,
// restoring a BOM where the encoding requires one.
func Encode(text string, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingUTF8:
		return []byte(text), nil
	case EncodingUTF8BOM:
		return append(append([]byte{}, bomUTF8...), text...), nil
	case EncodingUTF16LE:
		return encodeUTF16(text, unicode.LittleEndian)
	case EncodingUTF16BE:
		return encodeUTF16(text, unicode.BigEndian)
	case EncodingLatin1:
		out, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown encoding %d", ErrEncode, enc)
	}
}

func encodeUTF16(text string, endian unicode.Endianness) ([]byte, error) {
	enc := unicode.UTF16(endian, unicode.UseBOM).NewEncoder()
	out, err := enc.Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	return out, nil
}

// looksBinary applies the usual heuristic: a NUL byte or a high ratio of
// control characters in the first 8 KiB marks the content binary.
func looksBinary(content []byte) bool {
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}
	control := 0
	for _, b := range sample {
		if b < 32 && b != '\t' && b != '\n' && b != '\r' {
			control++
		}
	}
	return float64(control)/float64(len(sample)) > 0.1
}

func detectLineEnding(text string) LineEnding {
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

	total := lf + crlf + cr
	if total == 0 {
		return LineLF
	}
	threshold := total / 10
	if threshold < 1 {
		threshold = 1
	}
	styles := 0
	for _, n := range []int{lf, crlf, cr} {
		if n >= threshold {
			styles++
		}
	}
	if styles > 1 {
		return LineMixed
	}
	switch {
	case crlf >= lf && crlf >= cr:
		return LineCRLF
	case cr > lf:
		return LineCR
	default:
		return LineLF
	}
}

// detectIndent tallies how lines are indented. Tab-led lines vote for
// tabs; space-led lines vote for the step between successive indent
// depths, so a file indented four spaces per level reads as width 4
// even though every depth is also divisible by two.
func detectIndent(text string) Indent {
	tabs := 0
	spaceLines := 0
	deltas := map[int]int{}
	prev := 0

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := line[:len(line)-len(trimmed)]
		if strings.ContainsRune(indent, '\t') {
			tabs++
			continue
		}
		n := len(indent)
		if n > 0 {
			spaceLines++
		}
		if d := n - prev; d > 0 && d <= 8 {
			deltas[d]++
		}
		prev = n
	}

	if tabs == 0 && spaceLines == 0 {
		return DefaultIndent
	}
	if tabs >= spaceLines {
		return Indent{UseTabs: true, Width: 4}
	}
	best, bestCount := DefaultIndent.Width, 0
	for d, count := range deltas {
		if count > bestCount || (count == bestCount && d < best) {
			best, bestCount = d, count
		}
	}
	return Indent{UseTabs: false, Width: best}
}
