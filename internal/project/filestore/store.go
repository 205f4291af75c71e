package filestore

import (
	"errors"
	"io/fs"
	"sort"
	"sync"

	"github.com/dshills/loom/internal/engine"
	perrors "github.com/dshills/loom/internal/project/errors"
	"github.com/dshills/loom/internal/project/vfs"
	"github.com/dshills/loom/internal/syntax"
)

// DefaultMaxFileSize caps what Open will load, 100 MiB.
const DefaultMaxFileSize = 100 << 20

// Store is the registry of open buffers, keyed by absolute path. It is
// safe for concurrent use; each buffer's engine still expects a single
// editing goroutine.
type Store struct {
	fsys        vfs.FS
	maxFileSize int64

	mu      sync.RWMutex
	buffers map[string]*Buffer
}

// Option configures a Store.
type Option func(*Store)

// WithMaxFileSize overrides the open size limit.
func WithMaxFileSize(size int64) Option {
	return func(s *Store) {
		if size > 0 {
			s.maxFileSize = size
		}
	}
}

// NewStore builds an empty registry over fsys.
func NewStore(fsys vfs.FS, opts ...Option) *Store {
	s := &Store{
		fsys:        fsys,
		maxFileSize: DefaultMaxFileSize,
		buffers:     make(map[string]*Buffer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads path into a buffer, or returns the buffer already open for
// it. A path that does not exist yet opens as an empty buffer that will
// be created on first save. Binary or undecodable content opens
// read-only in raw mode rather than failing.
func (s *Store) Open(path string) (*Buffer, error) {
	abs, err := s.fsys.Abs(path)
	if err != nil {
		return nil, perrors.NewPathError("open", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if buf, ok := s.buffers[abs]; ok {
		return buf, nil
	}

	buf, err := s.load(abs)
	if err != nil {
		return nil, err
	}
	s.buffers[abs] = buf
	return buf, nil
}

func (s *Store) load(abs string) (*Buffer, error) {
	info, err := s.fsys.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &Buffer{
			path:     abs,
			eng:      engine.New(),
			language: syntax.DetectLanguage(abs, nil),
			indent:   vfs.DefaultIndent,
		}, nil
	case err != nil:
		return nil, perrors.NewPathError("open", abs, err)
	}
	if info.Size > s.maxFileSize {
		return nil, perrors.NewPathError("open", abs, perrors.ErrTooLarge)
	}

	content, err := s.fsys.ReadFile(abs)
	if err != nil {
		return nil, perrors.NewPathError("open", abs, err)
	}

	sniff := vfs.Detect(content)
	buf := &Buffer{
		path:     abs,
		encoding: sniff.Encoding,
		indent:   sniff.Indent,
		language: syntax.DetectLanguage(abs, content),
	}

	if sniff.Binary {
		// Latin-1 maps every byte to one rune, so raw content stays
		// viewable and round-trips even though it is not text.
		raw, _ := vfs.Decode(content, vfs.EncodingLatin1)
		buf.binary = true
		buf.encoding = vfs.EncodingLatin1
		buf.language = syntax.LangPlain
		buf.eng = engine.New(engine.WithContent(raw), engine.WithReadOnly())
	} else {
		text, err := vfs.Decode(content, sniff.Encoding)
		if err != nil {
			return nil, perrors.NewPathError("open", abs, perrors.ErrEncoding)
		}
		buf.eng = engine.New(
			engine.WithContent(text),
			engine.WithLineEnding(mapLineEnding(sniff.LineEnding)),
			engine.WithTabWidth(sniff.Indent.Width),
		)
	}
	buf.recordDiskState(info)
	return buf, nil
}

// Get returns the open buffer for path, if any.
func (s *Store) Get(path string) (*Buffer, bool) {
	abs, err := s.fsys.Abs(path)
	if err != nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.buffers[abs]
	return buf, ok
}

// IsOpen reports whether path has an open buffer.
func (s *Store) IsOpen(path string) bool {
	_, ok := s.Get(path)
	return ok
}

// Buffers returns every open buffer, ordered by path.
func (s *Store) Buffers() []*Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Buffer, 0, len(s.buffers))
	for _, buf := range s.buffers {
		out = append(out, buf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].path < out[j].path })
	return out
}

// DirtyBuffers returns the open buffers with unsaved edits.
func (s *Store) DirtyBuffers() []*Buffer {
	var out []*Buffer
	for _, buf := range s.Buffers() {
		if buf.Dirty() {
			out = append(out, buf)
		}
	}
	return out
}

// Count returns the number of open buffers.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.buffers)
}

// Save writes the buffer for path back to disk in its detected encoding
// and line-ending style, then clears the dirty flag. A failed write
// leaves both the file registry and the in-memory buffer untouched. A
// file modified on disk since load is reported as
// ErrExternallyModified; the caller decides and retries with SaveForce.
func (s *Store) Save(path string) error {
	return s.save(path, false)
}

// SaveForce saves even when the file changed on disk underneath us.
func (s *Store) SaveForce(path string) error {
	return s.save(path, true)
}

func (s *Store) save(path string, force bool) error {
	buf, ok := s.Get(path)
	if !ok {
		return perrors.NewPathError("save", path, perrors.ErrNotOpen)
	}
	if buf.binary {
		return perrors.NewPathError("save", buf.path, perrors.ErrBinaryFile)
	}

	if !force {
		if info, err := s.fsys.Stat(buf.path); err == nil && buf.ExternallyModified(info) {
			return perrors.NewPathError("save", buf.path, perrors.ErrExternallyModified)
		}
	}

	data, err := vfs.Encode(buf.eng.EncodedText(), buf.encoding)
	if err != nil {
		return perrors.NewPathError("save", buf.path, perrors.ErrEncoding)
	}
	if err := s.fsys.WriteFile(buf.path, data, 0o644); err != nil {
		return perrors.NewPathError("save", buf.path, err)
	}

	buf.eng.MarkSaved()
	if info, err := s.fsys.Stat(buf.path); err == nil {
		buf.recordDiskState(info)
	}
	return nil
}

// Reload re-reads path from disk, discarding in-memory edits and the
// whole undo history. It refuses while the buffer is dirty unless force
// is set, since the caller must confirm a destructive reload.
func (s *Store) Reload(path string, force bool) error {
	buf, ok := s.Get(path)
	if !ok {
		return perrors.NewPathError("reload", path, perrors.ErrNotOpen)
	}
	if buf.Dirty() && !force {
		return perrors.NewPathError("reload", buf.path, perrors.ErrDirty)
	}

	info, err := s.fsys.Stat(buf.path)
	if err != nil {
		return perrors.NewPathError("reload", buf.path, err)
	}
	content, err := s.fsys.ReadFile(buf.path)
	if err != nil {
		return perrors.NewPathError("reload", buf.path, err)
	}

	sniff := vfs.Detect(content)
	if sniff.Binary {
		return perrors.NewPathError("reload", buf.path, perrors.ErrBinaryFile)
	}
	text, err := vfs.Decode(content, sniff.Encoding)
	if err != nil {
		return perrors.NewPathError("reload", buf.path, perrors.ErrEncoding)
	}

	if err := buf.eng.SetContent(text); err != nil {
		return perrors.NewPathError("reload", buf.path, err)
	}
	buf.eng.MarkSaved()
	buf.encoding = sniff.Encoding
	buf.eng.SetLineEnding(mapLineEnding(sniff.LineEnding))
	buf.recordDiskState(info)
	return nil
}

// Close drops the buffer for path from the registry. It refuses while
// the buffer is dirty unless force is set.
func (s *Store) Close(path string, force bool) error {
	abs, err := s.fsys.Abs(path)
	if err != nil {
		return perrors.NewPathError("close", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[abs]
	if !ok {
		return perrors.NewPathError("close", abs, perrors.ErrNotOpen)
	}
	if buf.Dirty() && !force {
		return perrors.NewPathError("close", abs, perrors.ErrDirty)
	}
	delete(s.buffers, abs)
	return nil
}

// CloseAll closes every buffer. Without force it stops at the first
// dirty buffer and reports it.
func (s *Store) CloseAll(force bool) error {
	for _, buf := range s.Buffers() {
		if err := s.Close(buf.Path(), force); err != nil {
			return err
		}
	}
	return nil
}

// CheckExternal stats every open buffer and returns those whose file
// changed on disk since load or last save. Nothing is reloaded; the
// caller surfaces the conflict.
func (s *Store) CheckExternal() []*Buffer {
	var out []*Buffer
	for _, buf := range s.Buffers() {
		info, err := s.fsys.Stat(buf.Path())
		if err != nil {
			continue
		}
		if buf.ExternallyModified(info) {
			out = append(out, buf)
		}
	}
	return out
}
