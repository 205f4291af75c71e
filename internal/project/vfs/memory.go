package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Mem implements FS with an in-memory tree. It exists for tests and is
// safe for concurrent use. Paths are slash-separated and rooted at "/".
type Mem struct {
	mu    sync.RWMutex
	files map[string]*memFile
	dirs  map[string]bool
	now   func() time.Time
}

type memFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMem returns an empty in-memory file system.
func NewMem() *Mem {
	return &Mem{
		files: make(map[string]*memFile),
		dirs:  map[string]bool{"/": true},
		now:   time.Now,
	}
}

var _ FS = (*Mem)(nil)

func (m *Mem) clean(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func (m *Mem) ReadFile(p string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = m.clean(p)
	f, ok := m.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: p, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(f.content))
	copy(out, f.content)
	return out, nil
}

func (m *Mem) WriteFile(p string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = m.clean(p)
	if m.dirs[p] {
		return &fs.PathError{Op: "write", Path: p, Err: fs.ErrInvalid}
	}
	if dir := path.Dir(p); !m.dirs[dir] {
		return &fs.PathError{Op: "write", Path: p, Err: fs.ErrNotExist}
	}
	content := make([]byte, len(data))
	copy(content, data)
	m.files[p] = &memFile{content: content, mode: perm, modTime: m.now()}
	return nil
}

func (m *Mem) Stat(p string) (FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = m.clean(p)
	if f, ok := m.files[p]; ok {
		return FileInfo{
			Path:    p,
			Name:    path.Base(p),
			Size:    int64(len(f.content)),
			Mode:    f.mode,
			ModTime: f.modTime,
		}, nil
	}
	if m.dirs[p] {
		return FileInfo{
			Path: p,
			Name: path.Base(p),
			Mode: fs.ModeDir | 0o755,
			Dir:  true,
		}, nil
	}
	return FileInfo{}, &fs.PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
}

func (m *Mem) ReadDir(p string) ([]FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p = m.clean(p)
	if !m.dirs[p] {
		return nil, &fs.PathError{Op: "readdir", Path: p, Err: fs.ErrNotExist}
	}
	var infos []FileInfo
	for name := range m.dirs {
		if name != p && path.Dir(name) == p {
			infos = append(infos, FileInfo{
				Path: name,
				Name: path.Base(name),
				Mode: fs.ModeDir | 0o755,
				Dir:  true,
			})
		}
	}
	for name, f := range m.files {
		if path.Dir(name) == p {
			infos = append(infos, FileInfo{
				Path:    name,
				Name:    path.Base(name),
				Size:    int64(len(f.content)),
				Mode:    f.mode,
				ModTime: f.modTime,
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (m *Mem) MkdirAll(p string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = m.clean(p)
	if _, ok := m.files[p]; ok {
		return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrExist}
	}
	for cur := p; cur != "/"; cur = path.Dir(cur) {
		m.dirs[cur] = true
	}
	return nil
}

func (m *Mem) Remove(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = m.clean(p)
	if _, ok := m.files[p]; ok {
		delete(m.files, p)
		return nil
	}
	if m.dirs[p] {
		for name := range m.files {
			if strings.HasPrefix(name, p+"/") {
				return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrInvalid}
			}
		}
		for name := range m.dirs {
			if name != p && strings.HasPrefix(name, p+"/") {
				return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrInvalid}
			}
		}
		delete(m.dirs, p)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
}

func (m *Mem) Rename(oldPath, newPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	oldPath = m.clean(oldPath)
	newPath = m.clean(newPath)
	f, ok := m.files[oldPath]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldPath, Err: fs.ErrNotExist}
	}
	if dir := path.Dir(newPath); !m.dirs[dir] {
		return &fs.PathError{Op: "rename", Path: newPath, Err: fs.ErrNotExist}
	}
	delete(m.files, oldPath)
	m.files[newPath] = f
	return nil
}

func (m *Mem) Abs(p string) (string, error) {
	return m.clean(p), nil
}

func (m *Mem) Walk(root string, fn WalkFunc) error {
	root = m.clean(root)

	m.mu.RLock()
	var paths []string
	for name := range m.dirs {
		if name == root || strings.HasPrefix(name, root+"/") || root == "/" {
			paths = append(paths, name)
		}
	}
	for name := range m.files {
		if strings.HasPrefix(name, root+"/") || root == "/" || name == root {
			paths = append(paths, name)
		}
	}
	m.mu.RUnlock()

	sort.Strings(paths)

	skipped := ""
	for _, p := range paths {
		if skipped != "" && strings.HasPrefix(p, skipped+"/") {
			continue
		}
		info, err := m.Stat(p)
		if err != nil {
			continue
		}
		if err := fn(p, info, nil); err != nil {
			if err == SkipAll {
				return nil
			}
			if err == SkipDir && info.Dir {
				skipped = p
				continue
			}
			if err == SkipDir {
				continue
			}
			return err
		}
	}
	return nil
}
