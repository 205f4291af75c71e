// Package workspace tracks the directory roots a session is editing.
// A workspace may have several roots; path containment decides which
// root owns a file, which scopes project search and session records.
package workspace

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/loom/internal/project/vfs"
)

var (
	// ErrNotDirectory rejects a root that is not a directory.
	ErrNotDirectory = errors.New("workspace: root is not a directory")

	// ErrNoRoot reports a path outside every workspace root.
	ErrNoRoot = errors.New("workspace: path outside workspace")
)

// Workspace is a set of root directories. Safe for concurrent use.
type Workspace struct {
	fsys vfs.FS

	mu    sync.RWMutex
	roots []string
}

// New builds an empty workspace over fsys.
func New(fsys vfs.FS) *Workspace {
	return &Workspace{fsys: fsys}
}

// AddRoot verifies dir is a directory and adds it. Re-adding a known
// root is a no-op.
func (w *Workspace) AddRoot(dir string) error {
	abs, err := w.fsys.Abs(dir)
	if err != nil {
		return err
	}
	info, err := w.fsys.Stat(abs)
	if err != nil {
		return err
	}
	if !info.Dir {
		return ErrNotDirectory
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if r == abs {
			return nil
		}
	}
	w.roots = append(w.roots, abs)
	sort.Strings(w.roots)
	return nil
}

// RemoveRoot drops a root. Unknown roots are a no-op.
func (w *Workspace) RemoveRoot(dir string) error {
	abs, err := w.fsys.Abs(dir)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i, r := range w.roots {
		if r == abs {
			w.roots = append(w.roots[:i], w.roots[i+1:]...)
			return nil
		}
	}
	return nil
}

// Roots returns the current roots in sorted order.
func (w *Workspace) Roots() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.roots...)
}

// IsEmpty reports whether no roots are open.
func (w *Workspace) IsEmpty() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.roots) == 0
}

// Contains reports whether path lies under any root.
func (w *Workspace) Contains(path string) bool {
	_, err := w.RootOf(path)
	return err == nil
}

// RootOf returns the root owning path. With nested roots the deepest
// one wins.
func (w *Workspace) RootOf(path string) (string, error) {
	abs, err := w.fsys.Abs(path)
	if err != nil {
		return "", err
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	best := ""
	for _, r := range w.roots {
		if isUnder(r, abs) && len(r) > len(best) {
			best = r
		}
	}
	if best == "" {
		return "", ErrNoRoot
	}
	return best, nil
}

// Rel returns path relative to its owning root, for display.
func (w *Workspace) Rel(path string) (string, error) {
	root, err := w.RootOf(path)
	if err != nil {
		return "", err
	}
	abs, err := w.fsys.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Rel(root, abs)
}

func isUnder(root, path string) bool {
	if root == path {
		return true
	}
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}
