package search

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/project/vfs"
)

// DefaultMaxMatches caps a project search before it floods the UI.
const DefaultMaxMatches = 10000

// skipDirs are directory names never worth searching.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// FileMatch is one hit inside one file. Line and Column are zero-based;
// Span is byte offsets within the file content as read from disk.
type FileMatch struct {
	Path     string
	Line     int
	Column   int
	Span     buffer.Range
	LineText string
}

// ProjectOptions filters a project-wide search.
type ProjectOptions struct {
	// Include limits the search to paths whose base name matches one of
	// these globs. Empty means all files.
	Include []string

	// Exclude drops paths whose base name matches one of these globs.
	Exclude []string

	// MaxMatches stops the search once this many hits are collected.
	// Zero means DefaultMaxMatches.
	MaxMatches int
}

// Project searches file content across a directory tree. Every file is
// read from disk through the FS, so results reflect saved state, not
// unsaved buffer edits.
type Project struct {
	fsys vfs.FS
}

// NewProject builds a project searcher over fsys.
func NewProject(fsys vfs.FS) *Project {
	return &Project{fsys: fsys}
}

// Search walks root and returns matches for the pattern in every
// decodable text file. Cancellation is checked between files; a search
// superseded by a newer query is abandoned at the next file boundary.
func (p *Project) Search(ctx context.Context, root string, pat *Pattern, opts ProjectOptions) ([]FileMatch, error) {
	maxMatches := opts.MaxMatches
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}

	var matches []FileMatch
	err := p.fsys.Walk(root, func(path string, info vfs.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}
		if info.Dir {
			if skipDirs[info.Name] {
				return vfs.SkipDir
			}
			return nil
		}
		if !info.IsRegular() || !includePath(info.Name, opts) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		content, err := p.fsys.ReadFile(path)
		if err != nil {
			return nil
		}
		sniff := vfs.Detect(content)
		if sniff.Binary {
			return nil
		}
		text, err := vfs.Decode(content, sniff.Encoding)
		if err != nil {
			return nil
		}

		matches = append(matches, matchFile(path, text, pat)...)
		if len(matches) >= maxMatches {
			matches = matches[:maxMatches]
			return vfs.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// matchFile runs the pattern over one file's text and resolves line and
// column positions for each hit.
func matchFile(path, text string, pat *Pattern) []FileMatch {
	idx := pat.re.FindAllStringIndex(text, -1)
	if len(idx) == 0 {
		return nil
	}

	lineStarts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	out := make([]FileMatch, 0, len(idx))
	line := 0
	for _, m := range idx {
		if m[0] == m[1] {
			continue
		}
		for line+1 < len(lineStarts) && lineStarts[line+1] <= m[0] {
			line++
		}
		start := lineStarts[line]
		end := len(text)
		if line+1 < len(lineStarts) {
			end = lineStarts[line+1] - 1
		}
		out = append(out, FileMatch{
			Path:     path,
			Line:     line,
			Column:   m[0] - start,
			Span:     buffer.NewRange(buffer.ByteOffset(m[0]), buffer.ByteOffset(m[1])),
			LineText: strings.TrimSuffix(text[start:end], "\r"),
		})
	}
	return out
}

func includePath(name string, opts ProjectOptions) bool {
	for _, glob := range opts.Exclude {
		if ok, _ := filepath.Match(glob, name); ok {
			return false
		}
	}
	if len(opts.Include) == 0 {
		return true
	}
	for _, glob := range opts.Include {
		if ok, _ := filepath.Match(glob, name); ok {
			return true
		}
	}
	return false
}
