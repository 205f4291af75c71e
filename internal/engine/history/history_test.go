package history

import (
	"errors"
	"testing"

	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/engine/cursor"
)

// typeText commits one transaction inserting text at offset, remapping the
// cursor set the way the editing loop does.
func typeText(t *testing.T, h *History, buf *buffer.Buffer, cursors *cursor.Set, offset buffer.ByteOffset, text string) {
	t.Helper()
	if err := h.Begin(cursors); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	edit := buffer.NewInsert(offset, text)
	if _, err := h.Apply(buf, edit); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	cursor.TransformSet(cursors, edit)
	if _, err := h.Commit(cursors); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestCommitUndoRedo(t *testing.T) {
	buf := buffer.FromString("hello")
	cursors := cursor.NewSetAt(5)
	h := NewHistory(0)

	typeText(t, h, buf, cursors, 5, " world")
	if buf.Text() != "hello world" {
		t.Fatalf("after commit: %q", buf.Text())
	}

	txn, ok := h.PeekUndo()
	if !ok {
		t.Fatal("PeekUndo: no transaction")
	}
	if span := txn.Span(); span.Start != 5 || span.End != 11 {
		t.Errorf("transaction span = %v, want [5,11)", span)
	}

	restored, err := h.Undo(buf)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if buf.Text() != "hello" {
		t.Errorf("after undo: %q, want %q", buf.Text(), "hello")
	}
	if restored.Primary().Head != 5 {
		t.Errorf("restored cursor = %d, want 5", restored.Primary().Head)
	}

	restored, err = h.Redo(buf)
	if err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if buf.Text() != "hello world" {
		t.Errorf("after redo: %q, want %q", buf.Text(), "hello world")
	}
	if restored.Primary().Head != 11 {
		t.Errorf("redone cursor = %d, want 11", restored.Primary().Head)
	}
}

func TestUndoUndoRedoMatchesFirstCommit(t *testing.T) {
	buf := buffer.FromString("")
	cursors := cursor.NewSetAt(0)
	h := NewHistory(0)
	h.SetCoalescing(false)

	typeText(t, h, buf, cursors, 0, "one")
	wantText := buf.Text()
	wantCursors := cursors.Clone()

	typeText(t, h, buf, cursors, 3, " two")

	if _, err := h.Undo(buf); err != nil {
		t.Fatalf("first undo: %v", err)
	}
	if _, err := h.Undo(buf); err != nil {
		t.Fatalf("second undo: %v", err)
	}
	restored, err := h.Redo(buf)
	if err != nil {
		t.Fatalf("redo: %v", err)
	}

	if buf.Text() != wantText {
		t.Errorf("text = %q, want %q", buf.Text(), wantText)
	}
	if !restored.Equals(wantCursors) {
		t.Errorf("cursors = %v, want %v", restored.All(), wantCursors.All())
	}
}

func TestCommitTruncatesRedo(t *testing.T) {
	buf := buffer.FromString("")
	cursors := cursor.NewSetAt(0)
	h := NewHistory(0)
	h.SetCoalescing(false)

	typeText(t, h, buf, cursors, 0, "one")
	typeText(t, h, buf, cursors, 3, "two")

	if _, err := h.Undo(buf); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !h.CanRedo() {
		t.Fatal("expected redo to be available after undo")
	}

	cursors = cursor.NewSetAt(3)
	typeText(t, h, buf, cursors, 3, "new")

	if h.CanRedo() {
		t.Error("redo suffix survived a new commit")
	}
	if got := h.UndoCount(); got != 2 {
		t.Errorf("undo count = %d, want 2", got)
	}
	if _, err := h.Redo(buf); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo = %v, want ErrNothingToRedo", err)
	}
}

func TestUndoRedoAtBounds(t *testing.T) {
	buf := buffer.FromString("x")
	h := NewHistory(0)

	if _, err := h.Undo(buf); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("Undo on empty history = %v, want ErrNothingToUndo", err)
	}
	if _, err := h.Redo(buf); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("Redo on empty history = %v, want ErrNothingToRedo", err)
	}
	if buf.Text() != "x" {
		t.Errorf("no-op undo/redo changed buffer: %q", buf.Text())
	}
}

func TestAbortRevertsEdits(t *testing.T) {
	buf := buffer.FromString("hello")
	cursors := cursor.NewSetAt(0)
	h := NewHistory(0)

	if err := h.Begin(cursors); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := h.Apply(buf, buffer.NewInsert(0, "xx")); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, err := h.Apply(buf, buffer.NewDelete(2, 4)); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	cs, err := h.Abort(buf)
	if err != nil {
		t.Fatalf("Abort: %v", err)
	}

	if buf.Text() != "hello" {
		t.Errorf("after abort: %q, want %q", buf.Text(), "hello")
	}
	if cs == nil || cs.Count() != 1 || cs.Get(0).Head != 0 {
		t.Errorf("Abort returned %v, want the cursor set snapshotted at Begin", cs)
	}
	if h.UndoCount() != 0 {
		t.Errorf("aborted transaction reached history")
	}
}

func TestEmptyCommit(t *testing.T) {
	buf := buffer.FromString("hello")
	cursors := cursor.NewSetAt(0)
	h := NewHistory(0)

	if err := h.Begin(cursors); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	id, err := h.Commit(cursors)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if id != 0 {
		t.Errorf("empty commit id = %d, want 0", id)
	}
	if h.UndoCount() != 0 {
		t.Errorf("empty transaction reached history")
	}
	_ = buf
}

func TestApplyOutsideTransaction(t *testing.T) {
	buf := buffer.FromString("hello")
	h := NewHistory(0)

	if _, err := h.Apply(buf, buffer.NewInsert(0, "x")); !errors.Is(err, ErrNoTransaction) {
		t.Errorf("Apply = %v, want ErrNoTransaction", err)
	}
}

func TestNestedBegin(t *testing.T) {
	h := NewHistory(0)
	cursors := cursor.NewSetAt(0)

	if err := h.Begin(cursors); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := h.Begin(cursors); !errors.Is(err, ErrOpenTransaction) {
		t.Errorf("nested Begin = %v, want ErrOpenTransaction", err)
	}
}

func TestTypingCoalescesByWord(t *testing.T) {
	buf := buffer.FromString("")
	cursors := cursor.NewSetAt(0)
	h := NewHistory(0)

	// "ab cd" typed one keystroke at a time.
	for i, ch := range []string{"a", "b", " ", "c", "d"} {
		typeText(t, h, buf, cursors, buffer.ByteOffset(i), ch)
	}
	if buf.Text() != "ab cd" {
		t.Fatalf("text = %q", buf.Text())
	}

	// Word, space, word: three undo units.
	if got := h.UndoCount(); got != 3 {
		t.Fatalf("undo count = %d, want 3", got)
	}

	steps := []string{"ab ", "ab", ""}
	for _, want := range steps {
		if _, err := h.Undo(buf); err != nil {
			t.Fatalf("Undo: %v", err)
		}
		if buf.Text() != want {
			t.Errorf("after undo: %q, want %q", buf.Text(), want)
		}
	}
}

func TestBackspaceCoalesces(t *testing.T) {
	buf := buffer.FromString("abc")
	cursors := cursor.NewSetAt(3)
	h := NewHistory(0)

	for end := buffer.ByteOffset(3); end > 0; end-- {
		if err := h.Begin(cursors); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		edit := buffer.NewDelete(end-1, end)
		if _, err := h.Apply(buf, edit); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		cursor.TransformSet(cursors, edit)
		if _, err := h.Commit(cursors); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}
	if buf.Text() != "" {
		t.Fatalf("text = %q, want empty", buf.Text())
	}
	if got := h.UndoCount(); got != 1 {
		t.Fatalf("undo count = %d, want 1", got)
	}

	restored, err := h.Undo(buf)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if buf.Text() != "abc" {
		t.Errorf("after undo: %q, want %q", buf.Text(), "abc")
	}
	if restored.Primary().Head != 3 {
		t.Errorf("restored cursor = %d, want 3", restored.Primary().Head)
	}
}

func TestMultiEditTransactionDoesNotCoalesce(t *testing.T) {
	buf := buffer.FromString("aa bb")
	cursors := cursor.NewSetFromSlice([]cursor.Selection{
		cursor.NewCursor(2),
		cursor.NewCursor(5),
	})
	h := NewHistory(0)

	// Multi-cursor insert: two edits in one transaction.
	if err := h.Begin(cursors); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, edit := range []buffer.Edit{
		buffer.NewInsert(2, "x"),
		buffer.NewInsert(6, "x"),
	} {
		if _, err := h.Apply(buf, edit); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		cursor.TransformSet(cursors, edit)
	}
	if _, err := h.Commit(cursors); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	typeText(t, h, buf, cursors, 3, "y")

	if got := h.UndoCount(); got != 2 {
		t.Errorf("undo count = %d, want 2", got)
	}
}

func TestInverseRestoresExactly(t *testing.T) {
	buf := buffer.FromString("the quick brown fox")
	cursors := cursor.NewSetFromSlice([]cursor.Selection{
		cursor.NewSelection(4, 9),
		cursor.NewCursor(16),
	})
	wantText := buf.Text()
	wantCursors := cursors.Clone()
	h := NewHistory(0)

	if err := h.Begin(cursors); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, edit := range []buffer.Edit{
		buffer.NewReplace(4, 9, "slow"),
		buffer.NewDelete(9, 15),
		buffer.NewInsert(0, ">> "),
	} {
		if _, err := h.Apply(buf, edit); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		cursor.TransformSet(cursors, edit)
	}
	if _, err := h.Commit(cursors); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	restored, err := h.Undo(buf)
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if buf.Text() != wantText {
		t.Errorf("text = %q, want %q", buf.Text(), wantText)
	}
	if !restored.Equals(wantCursors) {
		t.Errorf("cursors = %v, want %v", restored.All(), wantCursors.All())
	}
}

func TestUndoRedoBlocksCoalescing(t *testing.T) {
	buf := buffer.FromString("")
	cursors := cursor.NewSetAt(0)
	h := NewHistory(0)

	typeText(t, h, buf, cursors, 0, "ab")
	if _, err := h.Undo(buf); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if _, err := h.Redo(buf); err != nil {
		t.Fatalf("Redo: %v", err)
	}

	// The insert is class-compatible and adjacent, but undo/redo drew a
	// boundary: it must not merge into the redone transaction.
	cursors = cursor.NewSetAt(2)
	typeText(t, h, buf, cursors, 2, "cd")
	if got := h.UndoCount(); got != 2 {
		t.Fatalf("undo count = %d, want 2", got)
	}

	// Coalescing resumes for subsequent typing.
	typeText(t, h, buf, cursors, 4, "ef")
	if got := h.UndoCount(); got != 2 {
		t.Errorf("undo count = %d, want 2 (coalescing resumed)", got)
	}

	if _, err := h.Undo(buf); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if buf.Text() != "ab" {
		t.Errorf("after undo: %q, want %q", buf.Text(), "ab")
	}
}

func TestMaxEntriesEvictsOldest(t *testing.T) {
	buf := buffer.FromString("")
	cursors := cursor.NewSetAt(0)
	h := NewHistory(2)
	h.SetCoalescing(false)

	typeText(t, h, buf, cursors, 0, "a")
	typeText(t, h, buf, cursors, 1, "b")
	typeText(t, h, buf, cursors, 2, "c")

	if got := h.UndoCount(); got != 2 {
		t.Errorf("undo count = %d, want 2", got)
	}
}
