// Package session persists editor state between runs: the last cursor
// position per file, the known workspace directories, and which buffers
// were open in each workspace. The state lives in one JSON document
// queried with gjson and updated in place with sjson, so unknown fields
// written by other tools survive a round trip.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/loom/internal/engine/cursor"
	"github.com/dshills/loom/internal/project/vfs"
)

// ErrCorrupt reports a session file that is not valid JSON. The caller
// starts from an empty session rather than failing startup.
var ErrCorrupt = errors.New("session: corrupt state file")

// BufferState is what the editor remembers about a file between runs.
type BufferState struct {
	Cursor   int64
	Anchor   int64
	Affinity cursor.Affinity
}

// Session is the persisted state document. All methods are safe for
// concurrent use; Save writes the document to the backing file.
type Session struct {
	fsys vfs.FS
	path string

	mu  sync.Mutex
	raw []byte
}

// Load reads the session file, or starts an empty session when the file
// does not exist yet. A file that exists but does not parse returns
// ErrCorrupt along with a usable empty session.
func Load(fsys vfs.FS, path string) (*Session, error) {
	s := &Session{fsys: fsys, path: path, raw: []byte(`{}`)}

	data, err := fsys.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return s, ErrCorrupt
	}
	s.raw = data
	return s, nil
}

// Save writes the document back to the session file, creating parent
// directories as needed.
func (s *Session) Save() error {
	s.mu.Lock()
	data := make([]byte, len(s.raw))
	copy(data, s.raw)
	s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := s.fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	if err := s.fsys.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// File paths appear as values, never as JSON keys, so path metacharacters
// in file names cannot disturb gjson lookups. These helpers resolve the
// array index for a given path value.

func findByPath(raw []byte, arrayKey, path string) int {
	idx := -1
	gjson.GetBytes(raw, arrayKey).ForEach(func(i, rec gjson.Result) bool {
		if rec.Get("path").String() == path {
			idx = int(i.Int())
			return false
		}
		return true
	})
	return idx
}

// SetBuffer records the cursor state for path, replacing any existing
// record so each file keeps exactly one.
func (s *Session) SetBuffer(path string, st BufferState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := map[string]any{
		"path":     path,
		"cursor":   st.Cursor,
		"anchor":   st.Anchor,
		"affinity": st.Affinity.String(),
	}
	key := "buffers.-1"
	if idx := findByPath(s.raw, "buffers", path); idx >= 0 {
		key = fmt.Sprintf("buffers.%d", idx)
	}
	raw, err := sjson.SetBytes(s.raw, key, record)
	if err != nil {
		return fmt.Errorf("set buffer record: %w", err)
	}
	s.raw = raw
	return nil
}

// Buffer returns the recorded state for path.
func (s *Session) Buffer(path string) (BufferState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := findByPath(s.raw, "buffers", path)
	if idx < 0 {
		return BufferState{}, false
	}
	rec := gjson.GetBytes(s.raw, fmt.Sprintf("buffers.%d", idx))
	st := BufferState{
		Cursor: rec.Get("cursor").Int(),
		Anchor: rec.Get("anchor").Int(),
	}
	if rec.Get("affinity").String() == "after" {
		st.Affinity = cursor.AffinityAfter
	}
	return st, true
}

// ForgetBuffer drops the record for path, if any.
func (s *Session) ForgetBuffer(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := findByPath(s.raw, "buffers", path)
	if idx < 0 {
		return nil
	}
	raw, err := sjson.DeleteBytes(s.raw, fmt.Sprintf("buffers.%d", idx))
	if err != nil {
		return fmt.Errorf("forget buffer record: %w", err)
	}
	s.raw = raw
	return nil
}

// BufferCount returns the number of remembered files.
func (s *Session) BufferCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int(gjson.GetBytes(s.raw, "buffers.#").Int())
}

// AddWorkspace records a workspace directory. Adding an existing
// directory is a no-op, keeping one record per path.
func (s *Session) AddWorkspace(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if findByPath(s.raw, "workspaces", dir) >= 0 {
		return nil
	}
	record := map[string]any{"path": dir, "buffers": []string{}}
	raw, err := sjson.SetBytes(s.raw, "workspaces.-1", record)
	if err != nil {
		return fmt.Errorf("add workspace record: %w", err)
	}
	s.raw = raw
	return nil
}

// Workspaces returns the recorded workspace directories in record order.
func (s *Session) Workspaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	gjson.GetBytes(s.raw, "workspaces.#.path").ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}

// RemoveWorkspace drops a workspace record and its buffer association.
func (s *Session) RemoveWorkspace(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := findByPath(s.raw, "workspaces", dir)
	if idx < 0 {
		return nil
	}
	raw, err := sjson.DeleteBytes(s.raw, fmt.Sprintf("workspaces.%d", idx))
	if err != nil {
		return fmt.Errorf("remove workspace record: %w", err)
	}
	s.raw = raw
	return nil
}

// AttachBuffer associates an open buffer with a workspace, creating the
// workspace record if needed. Each path appears at most once per
// workspace.
func (s *Session) AttachBuffer(dir, path string) error {
	if err := s.AddWorkspace(dir); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := findByPath(s.raw, "workspaces", dir)
	key := fmt.Sprintf("workspaces.%d.buffers", idx)
	for _, v := range gjson.GetBytes(s.raw, key).Array() {
		if v.String() == path {
			return nil
		}
	}
	raw, err := sjson.SetBytes(s.raw, key+".-1", path)
	if err != nil {
		return fmt.Errorf("attach buffer record: %w", err)
	}
	s.raw = raw
	return nil
}

// DetachBuffer removes a buffer from a workspace's open set.
func (s *Session) DetachBuffer(dir, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := findByPath(s.raw, "workspaces", dir)
	if idx < 0 {
		return nil
	}
	key := fmt.Sprintf("workspaces.%d.buffers", idx)
	pos := -1
	for i, v := range gjson.GetBytes(s.raw, key).Array() {
		if v.String() == path {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil
	}
	raw, err := sjson.DeleteBytes(s.raw, fmt.Sprintf("%s.%d", key, pos))
	if err != nil {
		return fmt.Errorf("detach buffer record: %w", err)
	}
	s.raw = raw
	return nil
}

// WorkspaceBuffers returns the buffers recorded as open in a workspace.
func (s *Session) WorkspaceBuffers(dir string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := findByPath(s.raw, "workspaces", dir)
	if idx < 0 {
		return nil
	}
	var out []string
	for _, v := range gjson.GetBytes(s.raw, fmt.Sprintf("workspaces.%d.buffers", idx)).Array() {
		out = append(out, v.String())
	}
	return out
}
