// Package filestore is the buffer manager: it owns every open buffer,
// keyed by absolute path, and handles the disk boundary. Opening sniffs
// encoding, line endings, and indentation from raw bytes; saving encodes
// back to what was detected. In-memory state never changes on a failed
// write.
package filestore

import (
	"sync"
	"time"

	"github.com/dshills/loom/internal/engine"
	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/project/vfs"
	"github.com/dshills/loom/internal/syntax"
)

// Buffer ties an editing engine to a file on disk. The engine holds the
// text, cursors, and history; Buffer holds file identity and what was
// sniffed at open so a save reproduces the original byte conventions.
type Buffer struct {
	path string
	eng  *engine.Engine

	language syntax.Language
	encoding vfs.Encoding
	indent   vfs.Indent
	binary   bool

	mu          sync.Mutex
	diskModTime time.Time
	diskSize    int64
	onDisk      bool
}

// Path returns the absolute path keying this buffer.
func (b *Buffer) Path() string { return b.path }

// Engine returns the editing engine. All text access and mutation goes
// through it.
func (b *Buffer) Engine() *engine.Engine { return b.eng }

// Language is the detected language, used to pick a syntax grammar.
func (b *Buffer) Language() syntax.Language { return b.language }

// Encoding is the on-disk encoding saves will reproduce.
func (b *Buffer) Encoding() vfs.Encoding { return b.encoding }

// Indent is the indentation style sniffed at open.
func (b *Buffer) Indent() vfs.Indent { return b.indent }

// IsBinary reports whether the file opened in degraded raw mode. Binary
// buffers are read-only.
func (b *Buffer) IsBinary() bool { return b.binary }

// Dirty reports whether the buffer has unsaved edits.
func (b *Buffer) Dirty() bool { return b.eng.Dirty() }

// ExternallyModified compares the stat info against what was recorded at
// open or last save. A buffer never written to disk reports false.
func (b *Buffer) ExternallyModified(info vfs.FileInfo) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.onDisk {
		return false
	}
	return !info.ModTime.Equal(b.diskModTime) || info.Size != b.diskSize
}

func (b *Buffer) recordDiskState(info vfs.FileInfo) {
	b.mu.Lock()
	b.diskModTime = info.ModTime
	b.diskSize = info.Size
	b.onDisk = true
	b.mu.Unlock()
}

// mapLineEnding converts sniffed line endings to the engine's style.
// Mixed files normalize to LF on the next save.
func mapLineEnding(le vfs.LineEnding) buffer.LineEnding {
	switch le {
	case vfs.LineCRLF:
		return buffer.LineEndingCRLF
	case vfs.LineCR:
		return buffer.LineEndingCR
	default:
		return buffer.LineEndingLF
	}
}
