package engine

import (
	"fmt"
	"io"
	"sync"

	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/engine/cursor"
	"github.com/dshills/loom/internal/engine/history"
	"github.com/dshills/loom/internal/engine/rope"
)

// Re-export commonly used types for convenience.
type (
	// ByteOffset is a byte position in the buffer.
	ByteOffset = buffer.ByteOffset

	// Point represents a line/column position.
	Point = buffer.Point

	// Range represents a byte range in the buffer.
	Range = buffer.Range

	// Edit represents an edit operation.
	Edit = buffer.Edit

	// EditResult contains information about a completed edit.
	EditResult = buffer.EditResult

	// Selection represents a cursor selection.
	Selection = cursor.Selection

	// Motion identifies a cursor movement strategy.
	Motion = cursor.Motion

	// LineEnding specifies the line ending style.
	LineEnding = buffer.LineEnding

	// Generation counts committed transactions on a buffer.
	Generation = buffer.Generation
)

// Re-export constants.
const (
	LineEndingLF   = buffer.LineEndingLF
	LineEndingCRLF = buffer.LineEndingCRLF
	LineEndingCR   = buffer.LineEndingCR

	MotionLeft             = cursor.MotionLeft
	MotionRight            = cursor.MotionRight
	MotionUp               = cursor.MotionUp
	MotionDown             = cursor.MotionDown
	MotionWordLeft         = cursor.MotionWordLeft
	MotionWordRight        = cursor.MotionWordRight
	MotionLineStart        = cursor.MotionLineStart
	MotionLineEnd          = cursor.MotionLineEnd
	MotionParagraphBack    = cursor.MotionParagraphBack
	MotionParagraphForward = cursor.MotionParagraphForward
	MotionBufferStart      = cursor.MotionBufferStart
	MotionBufferEnd        = cursor.MotionBufferEnd
)

// ChangeEdit describes one applied edit: the range it replaced, the range
// its new text occupies, and the new text itself. Offsets are in the
// coordinates current when the edit was applied, so a sequence of
// ChangeEdits replays in order.
type ChangeEdit struct {
	OldRange Range
	NewRange Range
	NewText  string
}

// Change describes the most recent mutation, tagged with the generation it
// produced. Background consumers use it to invalidate derived state (parse
// trees, highlight caches). Full marks mutations whose edits are not
// individually representable (undo, redo, reload); consumers rebuild from
// scratch.
type Change struct {
	Edits      []ChangeEdit
	Generation Generation
	Full       bool
}

// Engine is the editing core for one buffer: rope-backed text, a cursor
// set, and transaction-scoped undo/redo behind a single handle.
//
// Reads are guarded for background callers, but all mutation must happen
// on the buffer's single editing goroutine.
type Engine struct {
	mu sync.RWMutex

	buf     *buffer.Buffer
	cursors *cursor.Set
	hist    *history.History

	dirty      bool
	lastChange Change
	hasChange  bool

	// Configuration
	tabWidth       int
	lineEnding     buffer.LineEnding
	maxUndoEntries int
	readOnly       bool
	noCoalesce     bool

	initContent string
}

// New creates a new Engine with the given options.
func New(opts ...Option) *Engine {
	e := &Engine{
		tabWidth:       DefaultTabWidth,
		lineEnding:     buffer.LineEndingLF,
		maxUndoEntries: DefaultMaxUndoEntries,
	}
	for _, opt := range opts {
		opt(e)
	}

	bufOpts := []buffer.Option{
		buffer.WithTabWidth(e.tabWidth),
		buffer.WithLineEnding(e.lineEnding),
	}
	if e.initContent != "" {
		e.buf = buffer.FromString(e.initContent, bufOpts...)
	} else {
		e.buf = buffer.New(bufOpts...)
	}

	e.cursors = cursor.NewSetAt(0)
	e.hist = history.NewHistory(e.maxUndoEntries)
	if e.noCoalesce {
		e.hist.SetCoalescing(false)
	}
	return e
}

// NewFromReader creates an Engine from an io.Reader.
func NewFromReader(r io.Reader, opts ...Option) (*Engine, error) {
	e := &Engine{
		tabWidth:       DefaultTabWidth,
		lineEnding:     buffer.LineEndingLF,
		maxUndoEntries: DefaultMaxUndoEntries,
	}
	for _, opt := range opts {
		opt(e)
	}

	buf, err := buffer.FromReader(r,
		buffer.WithTabWidth(e.tabWidth),
		buffer.WithLineEnding(e.lineEnding),
	)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	e.buf = buf
	e.cursors = cursor.NewSetAt(0)
	e.hist = history.NewHistory(e.maxUndoEntries)
	if e.noCoalesce {
		e.hist.SetCoalescing(false)
	}
	return e, nil
}

// Text returns the full buffer content.
func (e *Engine) Text() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.Text()
}

// TextRange returns text in the given byte range.
func (e *Engine) TextRange(start, end ByteOffset) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.TextRange(start, end)
}

// Len returns the total byte length of the buffer.
func (e *Engine) Len() ByteOffset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.Len()
}

// LenChars returns the total character count of the buffer.
func (e *Engine) LenChars() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.LenChars()
}

// LineCount returns the number of lines.
func (e *Engine) LineCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.LineCount()
}

// LineText returns the text of a specific line without its line ending.
func (e *Engine) LineText(line int) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.LineText(line)
}

// IsEmpty returns true if the buffer is empty.
func (e *Engine) IsEmpty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.IsEmpty()
}

// OffsetToPoint converts a byte offset to line/column.
func (e *Engine) OffsetToPoint(offset ByteOffset) Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.OffsetToPoint(offset)
}

// PointToOffset converts line/column to byte offset.
func (e *Engine) PointToOffset(point Point) ByteOffset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.PointToOffset(point)
}

// LineStartOffset returns the byte offset of the start of a line.
func (e *Engine) LineStartOffset(line int) ByteOffset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.LineStartOffset(line)
}

// LineEndOffset returns the byte offset of the end of a line, before its
// line ending.
func (e *Engine) LineEndOffset(line int) ByteOffset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.LineEndOffset(line)
}

// Rope returns the current rope. Ropes are immutable, so the returned
// value is a stable snapshot of content.
func (e *Engine) Rope() rope.Rope {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.Rope()
}

// Snapshot returns a read-only snapshot of the current buffer state for
// background workers.
func (e *Engine) Snapshot() buffer.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.Snapshot()
}

// Generation returns the buffer's edit generation.
func (e *Engine) Generation() Generation {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.Generation()
}

// LastChange returns the ranges touched by the most recent mutation. The
// second result is false before any mutation.
func (e *Engine) LastChange() (Change, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastChange, e.hasChange
}

// Dirty reports whether the buffer has unsaved changes.
func (e *Engine) Dirty() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dirty
}

// MarkSaved clears the dirty flag after a successful save.
func (e *Engine) MarkSaved() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirty = false
}

// IsReadOnly returns true if the engine rejects writes.
func (e *Engine) IsReadOnly() bool {
	return e.readOnly
}

// LineEnding returns the line ending style.
func (e *Engine) LineEnding() LineEnding {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.LineEnding()
}

// SetLineEnding sets the line ending style used on save.
func (e *Engine) SetLineEnding(ending LineEnding) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buf.SetLineEnding(ending)
}

// TabWidth returns the tab width.
func (e *Engine) TabWidth() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.TabWidth()
}

// SetTabWidth sets the tab width.
func (e *Engine) SetTabWidth(width int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buf.SetTabWidth(width)
}

// Cursors returns a copy of the cursor set.
func (e *Engine) Cursors() *cursor.Set {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursors.Clone()
}

// SetCursors replaces the cursor set, clamping to the buffer.
func (e *Engine) SetCursors(cs *cursor.Set) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors = cs.Clone()
	e.cursors.Clamp(e.buf.Len())
}

// PrimarySelection returns the primary selection.
func (e *Engine) PrimarySelection() Selection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursors.Primary()
}

// SetPrimarySelection replaces all selections with one.
func (e *Engine) SetPrimarySelection(sel Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors.Set(sel.Clamp(e.buf.Len()))
}

// AddCursor adds a cursor at the given offset.
func (e *Engine) AddCursor(offset ByteOffset) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors.Add(cursor.NewCursor(offset).Clamp(e.buf.Len()))
}

// AddSelection adds a selection to the set.
func (e *Engine) AddSelection(sel Selection) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors.Add(sel.Clamp(e.buf.Len()))
}

// ClearSecondary removes all cursors except the primary.
func (e *Engine) ClearSecondary() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors.Clear()
}

// CursorCount returns the number of cursors.
func (e *Engine) CursorCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cursors.Count()
}

// Move applies a motion to every selection. With extend true only the
// heads move, growing the selections.
func (e *Engine) Move(m Motion, extend bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.buf.Rope()
	e.cursors.MapInPlace(func(sel Selection) Selection {
		return cursor.Move(r, sel, m, extend)
	})
}

// SelectAll selects the whole buffer with a single selection.
func (e *Engine) SelectAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursors.Set(cursor.SelectAll(e.buf.Rope()))
}

// SelectLine expands every selection to cover its line, including the
// line ending.
func (e *Engine) SelectLine() {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.buf.Rope()
	e.cursors.MapInPlace(func(sel Selection) Selection {
		return cursor.SelectLine(r, sel.Head)
	})
}

// SelectWord expands every selection to the word under its head.
func (e *Engine) SelectWord() {
	e.mu.Lock()
	defer e.mu.Unlock()
	r := e.buf.Rope()
	e.cursors.MapInPlace(func(sel Selection) Selection {
		return cursor.SelectWord(r, sel.Head)
	})
}

// runTransaction wraps fn in a history transaction. The apply callback
// applies one edit, remaps the cursor set through it, and records the
// touched range. On error the transaction is aborted and the buffer
// restored.
func (e *Engine) runTransaction(fn func(apply func(Edit) (EditResult, error)) error) error {
	if e.readOnly {
		return ErrReadOnly
	}
	if err := e.hist.Begin(e.cursors); err != nil {
		return err
	}

	var edits []ChangeEdit
	apply := func(edit Edit) (EditResult, error) {
		res, err := e.hist.Apply(e.buf, edit)
		if err != nil {
			return res, err
		}
		cursor.TransformSet(e.cursors, edit)
		edits = append(edits, ChangeEdit{
			OldRange: res.OldRange,
			NewRange: res.NewRange,
			NewText:  edit.NewText,
		})
		return res, nil
	}

	if err := fn(apply); err != nil {
		cs, abortErr := e.hist.Abort(e.buf)
		if abortErr != nil {
			return fmt.Errorf("abort after failed edit: %w", abortErr)
		}
		// The rope is back at its Begin state, so the cursor set must
		// come back too; the partially applied edits already remapped it.
		e.restoreCursors(cs)
		return err
	}

	if _, err := e.hist.Commit(e.cursors); err != nil {
		return err
	}
	if len(edits) > 0 {
		e.dirty = true
		e.lastChange = Change{Edits: edits, Generation: e.buf.Generation()}
		e.hasChange = true
	}
	return nil
}

// InsertText inserts text at every cursor, replacing any selected text.
// The whole multi-cursor insert is one undo transaction; each cursor
// collapses to the end of its inserted text.
func (e *Engine) InsertText(text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runTransaction(func(apply func(Edit) (EditResult, error)) error {
		for i := 0; i < e.cursors.Count(); i++ {
			sel := e.cursors.Get(i)
			res, err := apply(buffer.NewReplace(sel.Start(), sel.End(), text))
			if err != nil {
				return err
			}
			sels := e.cursors.All()
			sels[i] = cursor.NewCursor(res.NewRange.End)
			e.cursors.SetAll(sels)
		}
		return nil
	})
}

// DeleteBackward deletes the selection at every cursor, or the grapheme
// cluster before an empty cursor. One undo transaction.
func (e *Engine) DeleteBackward() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runTransaction(func(apply func(Edit) (EditResult, error)) error {
		for i := 0; i < e.cursors.Count(); i++ {
			sel := e.cursors.Get(i)
			start, end := sel.Start(), sel.End()
			if sel.IsEmpty() {
				start = cursor.PrevGraphemeBoundary(e.buf.Rope(), sel.Head)
				if start == end {
					continue
				}
			}
			if _, err := apply(buffer.NewDelete(start, end)); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteForward deletes the selection at every cursor, or the grapheme
// cluster after an empty cursor. One undo transaction.
func (e *Engine) DeleteForward() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runTransaction(func(apply func(Edit) (EditResult, error)) error {
		for i := 0; i < e.cursors.Count(); i++ {
			sel := e.cursors.Get(i)
			start, end := sel.Start(), sel.End()
			if sel.IsEmpty() {
				end = cursor.NextGraphemeBoundary(e.buf.Rope(), sel.Head)
				if start == end {
					continue
				}
			}
			if _, err := apply(buffer.NewDelete(start, end)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Insert inserts text at an explicit offset as one transaction.
func (e *Engine) Insert(offset ByteOffset, text string) (ByteOffset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var end ByteOffset
	err := e.runTransaction(func(apply func(Edit) (EditResult, error)) error {
		res, err := apply(buffer.NewInsert(offset, text))
		if err != nil {
			return err
		}
		end = res.NewRange.End
		return nil
	})
	return end, err
}

// Delete removes the byte range as one transaction.
func (e *Engine) Delete(start, end ByteOffset) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.runTransaction(func(apply func(Edit) (EditResult, error)) error {
		_, err := apply(buffer.NewDelete(start, end))
		return err
	})
}

// Replace replaces the byte range with text as one transaction. Returns
// the end offset of the replacement.
func (e *Engine) Replace(start, end ByteOffset, text string) (ByteOffset, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var newEnd ByteOffset
	err := e.runTransaction(func(apply func(Edit) (EditResult, error)) error {
		res, err := apply(buffer.NewReplace(start, end, text))
		if err != nil {
			return err
		}
		newEnd = res.NewRange.End
		return nil
	})
	return newEnd, err
}

// ApplyEdits applies a batch of edits as one atomic transaction. Edits
// must be sorted by descending offset and non-overlapping, so applying
// one never shifts the coordinates of the rest.
func (e *Engine) ApplyEdits(edits []Edit) error {
	if len(edits) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := 1; i < len(edits); i++ {
		if edits[i].Range.End > edits[i-1].Range.Start {
			return ErrEditsOverlap
		}
	}

	return e.runTransaction(func(apply func(Edit) (EditResult, error)) error {
		for _, edit := range edits {
			if _, err := apply(edit); err != nil {
				return err
			}
		}
		return nil
	})
}

// Undo reverts the most recent transaction, restoring the cursor set
// captured when it began.
func (e *Engine) Undo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}
	restored, err := e.hist.Undo(e.buf)
	if err != nil {
		return err
	}
	e.restoreCursors(restored)
	e.dirty = true
	e.recordFullChange()
	return nil
}

// Redo reapplies the most recently undone transaction, restoring the
// cursor set captured at its commit.
func (e *Engine) Redo() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}
	restored, err := e.hist.Redo(e.buf)
	if err != nil {
		return err
	}
	e.restoreCursors(restored)
	e.dirty = true
	e.recordFullChange()
	return nil
}

// restoreCursors installs a cursor set from history, clamped to the
// buffer and snapped to character boundaries.
func (e *Engine) restoreCursors(cs *cursor.Set) {
	r := e.buf.Rope()
	cs.Clamp(e.buf.Len())
	cs.MapInPlace(func(sel Selection) Selection {
		sel.Anchor = r.SnapToCharBoundary(sel.Anchor)
		sel.Head = r.SnapToCharBoundary(sel.Head)
		return sel
	})
	e.cursors = cs
}

// recordFullChange marks the whole buffer changed. Used for mutations
// whose edit list is not replayable by consumers.
func (e *Engine) recordFullChange() {
	e.lastChange = Change{
		Generation: e.buf.Generation(),
		Full:       true,
	}
	e.hasChange = true
}

// CanUndo returns true if undo is available.
func (e *Engine) CanUndo() bool {
	return e.hist.CanUndo()
}

// CanRedo returns true if redo is available.
func (e *Engine) CanRedo() bool {
	return e.hist.CanRedo()
}

// UndoCount returns the number of available undo operations.
func (e *Engine) UndoCount() int {
	return e.hist.UndoCount()
}

// RedoCount returns the number of available redo operations.
func (e *Engine) RedoCount() int {
	return e.hist.RedoCount()
}

// ClearHistory removes all undo/redo history.
func (e *Engine) ClearHistory() {
	e.hist.Clear()
}

// SetContent replaces all content, resetting cursors, history, and the
// dirty flag. Used for reload from disk.
func (e *Engine) SetContent(content string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.readOnly {
		return ErrReadOnly
	}
	e.buf.SetText(content)
	e.cursors = cursor.NewSetAt(0)
	e.hist.Clear()
	e.dirty = false
	e.recordFullChange()
	return nil
}

// EncodedText returns the buffer content with the configured line ending
// applied, ready to write to disk.
func (e *Engine) EncodedText() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.buf.EncodedText()
}
