// Package vfs abstracts the file system under the buffer manager and
// project search so tests run against an in-memory tree instead of disk.
package vfs

import (
	"io/fs"
	"time"
)

// FS is the file system surface the editor core needs. OS backs real
// files; Mem backs tests and scratch workspaces.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm fs.FileMode) error
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]FileInfo, error)
	MkdirAll(path string, perm fs.FileMode) error
	Remove(path string) error
	Rename(oldPath, newPath string) error

	// Abs resolves path to the absolute form used as a registry key.
	Abs(path string) (string, error)

	// Walk visits every file under root in lexical order. The walk
	// function may return SkipDir to prune a directory or SkipAll to
	// stop early.
	Walk(root string, fn WalkFunc) error
}

// FileInfo describes one file or directory.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
	Dir     bool
}

// IsRegular reports whether this is a regular file.
func (fi FileInfo) IsRegular() bool { return fi.Mode.IsRegular() }

// WalkFunc is called by Walk for each visited path. err is non-nil when
// the entry could not be statted; the function decides whether that
// aborts the walk.
type WalkFunc func(path string, info FileInfo, err error) error

// SkipDir prunes the directory being visited.
var SkipDir = fs.SkipDir

// SkipAll stops the walk without error.
var SkipAll = fs.SkipAll
