package syntax

import (
	"context"
	"errors"
	"fmt"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/dshills/loom/internal/engine/buffer"
)

// ErrNoGrammar is returned when no tree-sitter grammar is bundled for a
// language. Callers treat it as "leave the buffer unhighlighted".
var ErrNoGrammar = errors.New("syntax: no grammar for language")

// Edit describes one buffer edit for incremental re-parsing: the byte
// range it replaced, the range the new text occupies, and the new text.
// Edits replay in the order they were applied.
type Edit struct {
	OldRange buffer.Range
	NewRange buffer.Range
	NewText  string
}

// Request asks a provider for highlight spans covering a snapshot.
//
// Edits carries the edits applied since the previous request so the
// provider can re-parse incrementally. Full signals that the edit trail
// is not replayable (undo, reload, replace-all) and the provider must
// parse from scratch.
type Request struct {
	Snapshot   buffer.Snapshot
	Generation buffer.Generation
	Edits      []Edit
	Full       bool
}

// Result is a completed highlight pass. Spans are sorted by start offset
// and non-overlapping. Err is set when the pass failed; consumers then
// keep whatever spans they had or fall back to plain text.
type Result struct {
	Generation buffer.Generation
	Spans      []Span
	Err        error
}

// TreeSitter highlights one buffer with a tree-sitter grammar. It keeps
// the last parse tree and the source it was built from, applies recorded
// edits to the tree, and re-parses only the changed regions. It is not
// safe for concurrent use; the Scheduler serializes calls to it.
type TreeSitter struct {
	parser *sitter.Parser
	query  *sitter.Query
	tree   *sitter.Tree
	source []byte
}

// NewTreeSitter builds a provider for lang. It returns ErrNoGrammar when
// no grammar is bundled. A grammar whose highlight query fails to compile
// is reported as an error rather than silently dropping scopes.
func NewTreeSitter(lang Language) (*TreeSitter, error) {
	g, ok := grammars[lang]
	if !ok {
		return nil, ErrNoGrammar
	}
	parser := sitter.NewParser()
	parser.SetLanguage(g.language)

	query, err := sitter.NewQuery([]byte(g.highlights), g.language)
	if err != nil {
		parser.Close()
		return nil, fmt.Errorf("compile highlight query for %s: %w", lang, err)
	}
	return &TreeSitter{parser: parser, query: query}, nil
}

// Highlight parses the snapshot and returns its highlight spans. When the
// request carries a replayable edit trail the previous tree seeds an
// incremental parse; otherwise the buffer is parsed from scratch.
func (t *TreeSitter) Highlight(ctx context.Context, req Request) ([]Span, error) {
	newSource := []byte(req.Snapshot.Text())

	oldTree := t.tree
	if oldTree != nil {
		if req.Full || !t.applyEdits(req.Edits, newSource) {
			oldTree.Close()
			oldTree = nil
			t.tree = nil
		}
	}

	tree, err := t.parser.ParseCtx(ctx, oldTree, newSource)
	if err != nil {
		t.drop()
		return nil, fmt.Errorf("parse: %w", err)
	}
	if oldTree != nil {
		oldTree.Close()
	}
	t.tree = tree
	t.source = newSource
	return t.captureSpans(tree, newSource), nil
}

// applyEdits replays the edit trail against the old tree so tree-sitter
// can reuse unchanged subtrees. It reports false when the trail does not
// reconcile the old source with the new one, which forces a full parse.
func (t *TreeSitter) applyEdits(edits []Edit, newSource []byte) bool {
	if len(edits) == 0 {
		return false
	}
	src := t.source
	for _, e := range edits {
		start := int(e.OldRange.Start)
		oldEnd := int(e.OldRange.End)
		if start < 0 || oldEnd < start || oldEnd > len(src) {
			return false
		}
		startPoint := pointAt(src, start)
		oldEndPoint := pointAt(src, oldEnd)

		spliced := make([]byte, 0, len(src)-(oldEnd-start)+len(e.NewText))
		spliced = append(spliced, src[:start]...)
		spliced = append(spliced, e.NewText...)
		spliced = append(spliced, src[oldEnd:]...)

		newEnd := start + len(e.NewText)
		t.tree.Edit(sitter.EditInput{
			StartIndex:  uint32(start),
			OldEndIndex: uint32(oldEnd),
			NewEndIndex: uint32(newEnd),
			StartPoint:  startPoint,
			OldEndPoint: oldEndPoint,
			NewEndPoint: pointAt(spliced, newEnd),
		})
		src = spliced
	}
	if len(src) != len(newSource) {
		return false
	}
	return true
}

// pointAt computes the row/column position of a byte offset. Columns are
// byte columns, which is what tree-sitter expects.
func pointAt(src []byte, offset int) sitter.Point {
	var row, lineStart int
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			row++
			lineStart = i + 1
		}
	}
	return sitter.Point{Row: uint32(row), Column: uint32(offset - lineStart)}
}

// captureSpans runs the highlight query over the tree and flattens the
// captures into sorted, non-overlapping spans.
func (t *TreeSitter) captureSpans(tree *sitter.Tree, source []byte) []Span {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(t.query, tree.RootNode())

	var raw []Span
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, source)
		for _, c := range m.Captures {
			start := buffer.ByteOffset(c.Node.StartByte())
			end := buffer.ByteOffset(c.Node.EndByte())
			if start >= end {
				continue
			}
			raw = append(raw, Span{
				Range: buffer.Range{Start: start, End: end},
				Scope: t.query.CaptureNameForId(c.Index),
			})
		}
	}
	return flattenSpans(raw)
}

// flattenSpans resolves overlapping captures so the result is sorted and
// disjoint. When captures nest, the inner capture wins and the outer one
// is split around it, so a string inside a comment keeps the comment
// scope on either side.
func flattenSpans(spans []Span) []Span {
	if len(spans) <= 1 {
		return spans
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Range.Start != spans[j].Range.Start {
			return spans[i].Range.Start < spans[j].Range.Start
		}
		return spans[i].Range.End > spans[j].Range.End
	})

	out := make([]Span, 0, len(spans))
	var stack []Span
	emit := func(start, end buffer.ByteOffset, scope string) {
		if start >= end {
			return
		}
		if n := len(out); n > 0 && out[n-1].Range.End == start && out[n-1].Scope == scope {
			out[n-1].Range.End = end
			return
		}
		out = append(out, Span{Range: buffer.Range{Start: start, End: end}, Scope: scope})
	}

	cursor := buffer.ByteOffset(0)
	for _, sp := range spans {
		for len(stack) > 0 && stack[len(stack)-1].Range.End <= sp.Range.Start {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.Range.End > cursor {
				emit(max64(cursor, top.Range.Start), top.Range.End, top.Scope)
				cursor = top.Range.End
			}
		}
		if len(stack) > 0 && sp.Range.Start > cursor {
			top := stack[len(stack)-1]
			emit(cursor, sp.Range.Start, top.Scope)
		}
		if sp.Range.Start > cursor {
			cursor = sp.Range.Start
		}
		if sp.Range.End <= cursor {
			continue
		}
		stack = append(stack, sp)
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.Range.End > cursor {
			emit(max64(cursor, top.Range.Start), top.Range.End, top.Scope)
			cursor = top.Range.End
		}
	}
	return out
}

func max64(a, b buffer.ByteOffset) buffer.ByteOffset {
	if a > b {
		return a
	}
	return b
}

func (t *TreeSitter) drop() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
	t.source = nil
}

// Close releases the parser and any retained tree.
func (t *TreeSitter) Close() {
	t.drop()
	if t.query != nil {
		t.query.Close()
		t.query = nil
	}
	if t.parser != nil {
		t.parser.Close()
		t.parser = nil
	}
}
