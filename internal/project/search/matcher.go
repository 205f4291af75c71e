// Package search finds and replaces text, both inside one buffer and
// across a project tree. One compiled Pattern serves both paths.
package search

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/dshills/loom/internal/engine"
	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/engine/rope"
)

// ErrEmptyPattern rejects queries that would match everywhere.
var ErrEmptyPattern = errors.New("search: empty pattern")

// Options controls how a query compiles.
type Options struct {
	// Regex treats the query as a regular expression instead of a
	// literal string.
	Regex bool

	// CaseSensitive disables the default case folding.
	CaseSensitive bool

	// WholeWord anchors matches to word boundaries.
	WholeWord bool
}

// Pattern is a compiled query.
type Pattern struct {
	re *regexp.Regexp
}

// Compile builds a Pattern from a query string.
func Compile(query string, opts Options) (*Pattern, error) {
	if query == "" {
		return nil, ErrEmptyPattern
	}
	expr := query
	if !opts.Regex {
		expr = regexp.QuoteMeta(query)
	}
	if opts.WholeWord {
		expr = `\b(?:` + expr + `)\b`
	}
	if !opts.CaseSensitive {
		expr = `(?i)` + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile query %q: %w", query, err)
	}
	return &Pattern{re: re}, nil
}

func (p *Pattern) String() string { return p.re.String() }

// FindAll returns every non-overlapping match in the rope, in order.
func (p *Pattern) FindAll(r rope.Rope) []buffer.Range {
	text := r.String()
	idx := p.re.FindAllStringIndex(text, -1)
	if len(idx) == 0 {
		return nil
	}
	spans := make([]buffer.Range, 0, len(idx))
	for _, m := range idx {
		if m[0] == m[1] {
			// Zero-width regex matches are useless as search results.
			continue
		}
		spans = append(spans, buffer.NewRange(buffer.ByteOffset(m[0]), buffer.ByteOffset(m[1])))
	}
	return spans
}

// Direction selects which way Find scans from the start offset.
type Direction int

const (
	Forward Direction = iota
	Backward
)

// Find returns the nearest match scanning from start in the given
// direction, wrapping around the buffer end when nothing lies ahead. It
// reports false only when the rope holds no match at all.
func (p *Pattern) Find(r rope.Rope, start buffer.ByteOffset, dir Direction) (buffer.Range, bool) {
	spans := p.FindAll(r)
	if len(spans) == 0 {
		return buffer.Range{}, false
	}
	if dir == Forward {
		for _, sp := range spans {
			if sp.Start >= start {
				return sp, true
			}
		}
		return spans[0], true
	}
	for i := len(spans) - 1; i >= 0; i-- {
		if spans[i].End <= start {
			return spans[i], true
		}
	}
	return spans[len(spans)-1], true
}

// Replace builds the edit that substitutes text for one match span. The
// caller applies it through the engine so it lands in the undo history.
func Replace(span buffer.Range, text string) buffer.Edit {
	return buffer.NewReplace(span.Start, span.End, text)
}

// ReplaceAll substitutes text for every match as one undoable
// transaction. Matches are computed once against the rope as it was
// before any substitution, so replacement text that re-matches the
// pattern cannot cascade. Returns the number of replacements.
func ReplaceAll(eng *engine.Engine, p *Pattern, text string) (int, error) {
	spans := p.FindAll(eng.Rope())
	if len(spans) == 0 {
		return 0, nil
	}
	// Descending order keeps earlier offsets valid while later spans
	// are rewritten.
	edits := make([]buffer.Edit, 0, len(spans))
	for i := len(spans) - 1; i >= 0; i-- {
		edits = append(edits, Replace(spans[i], text))
	}
	if err := eng.ApplyEdits(edits); err != nil {
		return 0, err
	}
	return len(spans), nil
}
