package vfs

import (
	"bytes"
	"testing"
)

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    Encoding
		hasBOM  bool
	}{
		{"empty", nil, EncodingUTF8, false},
		{"ascii", []byte("hello world"), EncodingUTF8, false},
		{"utf8", []byte("héllo wörld"), EncodingUTF8, false},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, "hello"...), EncodingUTF8BOM, true},
		{"utf16 le bom", []byte{0xFF, 0xFE, 'h', 0, 'i', 0}, EncodingUTF16LE, true},
		{"utf16 be bom", []byte{0xFE, 0xFF, 0, 'h', 0, 'i'}, EncodingUTF16BE, true},
		{"latin1", []byte{'c', 'a', 'f', 0xE9}, EncodingLatin1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Detect(tt.content)
			if s.Encoding != tt.want {
				t.Errorf("encoding = %v, want %v", s.Encoding, tt.want)
			}
			if s.HasBOM != tt.hasBOM {
				t.Errorf("hasBOM = %v, want %v", s.HasBOM, tt.hasBOM)
			}
			if s.Binary {
				t.Error("text content flagged binary")
			}
		})
	}
}

func TestDetectBinary(t *testing.T) {
	content := []byte{0x7F, 'E', 'L', 'F', 0, 0, 0, 1}
	if s := Detect(content); !s.Binary {
		t.Error("ELF header not flagged binary")
	}
	if s := Detect([]byte("plain text\n")); s.Binary {
		t.Error("plain text flagged binary")
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	text := "héllo\nwörld\n"
	for _, enc := range []Encoding{EncodingUTF8, EncodingUTF8BOM, EncodingUTF16LE, EncodingUTF16BE, EncodingLatin1} {
		raw, err := Encode(text, enc)
		if err != nil {
			t.Fatalf("Encode(%v): %v", enc, err)
		}
		back, err := Decode(raw, enc)
		if err != nil {
			t.Fatalf("Decode(%v): %v", enc, err)
		}
		if back != text {
			t.Errorf("%v round trip = %q, want %q", enc, back, text)
		}
	}
}

func TestEncodeBOMPresent(t *testing.T) {
	raw, err := Encode("hi", EncodingUTF8BOM)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}) {
		t.Errorf("utf-8-bom output missing BOM: %v", raw)
	}
	raw, err = Encode("hi", EncodingUTF16LE)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) {
		t.Errorf("utf-16le output missing BOM: %v", raw)
	}
}

func TestDecodeInvalidUTF8(t *testing.T) {
	if _, err := Decode([]byte{0xFF, 0xFE, 0xFD}, EncodingUTF8); err == nil {
		t.Error("expected decode error for invalid utf-8")
	}
}

func TestEncodeLatin1OutOfRange(t *testing.T) {
	if _, err := Encode("日本語", EncodingLatin1); err == nil {
		t.Error("expected encode error for characters outside latin-1")
	}
}

func TestDetectLineEnding(t *testing.T) {
	tests := []struct {
		name string
		text string
		want LineEnding
	}{
		{"no newlines", "single line", LineLF},
		{"lf", "a\nb\nc\n", LineLF},
		{"crlf", "a\r\nb\r\nc\r\n", LineCRLF},
		{"cr", "a\rb\rc\r", LineCR},
		{"mixed", "a\nb\r\nc\nd\r\n", LineMixed},
		{"one stray crlf", "a\nb\nc\nd\ne\nf\ng\nh\ni\nj\nk\r\n", LineMixed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectLineEnding(tt.text); got != tt.want {
				t.Errorf("detectLineEnding = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectIndent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Indent
	}{
		{"none", "a\nb\nc\n", DefaultIndent},
		{"tabs", "func f() {\n\tx := 1\n\treturn\n}\n", Indent{UseTabs: true, Width: 4}},
		{"two spaces", "def f():\n  x = 1\n  return\n", Indent{UseTabs: false, Width: 2}},
		{"four spaces", "def f():\n    x = 1\n    return\n", Indent{UseTabs: false, Width: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectIndent(tt.text); got != tt.want {
				t.Errorf("detectIndent = %+v, want %+v", got, tt.want)
			}
		})
	}
}
