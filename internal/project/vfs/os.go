package vfs

import (
	"io/fs"
	"os"
	"path/filepath"
)

// OS implements FS against the real file system.
type OS struct{}

// NewOS returns the OS-backed file system.
func NewOS() *OS {
	return &OS{}
}

var _ FS = (*OS)(nil)

func (*OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (*OS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (*OS) Stat(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return fromOSInfo(path, info), nil
}

func (*OS) ReadDir(path string) ([]FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// Entry vanished between ReadDir and Info.
			continue
		}
		infos = append(infos, fromOSInfo(filepath.Join(path, entry.Name()), info))
	}
	return infos, nil
}

func (*OS) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (*OS) Remove(path string) error {
	return os.Remove(path)
}

func (*OS) Rename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

func (*OS) Abs(path string) (string, error) {
	return filepath.Abs(path)
}

func (*OS) Walk(root string, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fn(path, FileInfo{Path: path}, err)
		}
		info, ierr := d.Info()
		if ierr != nil {
			return fn(path, FileInfo{Path: path}, ierr)
		}
		return fn(path, fromOSInfo(path, info), nil)
	})
}

func fromOSInfo(path string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		Mode:    info.Mode(),
		ModTime: info.ModTime(),
		Dir:     info.IsDir(),
	}
}
