package cursor

import (
	"testing"

	"github.com/dshills/loom/internal/engine/buffer"
)

func TestSetNormalizeSortsAndMerges(t *testing.T) {
	s := NewSetFromSlice([]Selection{
		NewSelection(10, 14),
		NewSelection(2, 5),
		NewSelection(4, 8), // overlaps [2,5)
	})
	if s.Count() != 2 {
		t.Fatalf("count = %d, want 2", s.Count())
	}
	first := s.Get(0)
	if first.Start() != 2 || first.End() != 8 {
		t.Errorf("merged selection = [%d,%d), want [2,8)", first.Start(), first.End())
	}
	second := s.Get(1)
	if second.Start() != 10 || second.End() != 14 {
		t.Errorf("second selection = [%d,%d), want [10,14)", second.Start(), second.End())
	}
}

func TestSetAdjacentStaySeparate(t *testing.T) {
	s := NewSetFromSlice([]Selection{
		NewSelection(0, 3),
		NewSelection(3, 6),
	})
	if s.Count() != 2 {
		t.Errorf("adjacent selections merged: count = %d, want 2", s.Count())
	}
}

func TestSetDuplicateCursorsMerge(t *testing.T) {
	s := NewSetFromSlice([]Selection{
		NewCursor(5),
		NewCursor(5),
		NewCursor(7),
	})
	if s.Count() != 2 {
		t.Errorf("count = %d, want 2", s.Count())
	}
}

func TestSetCollapseAll(t *testing.T) {
	s := NewSetFromSlice([]Selection{
		NewSelection(0, 3),
		NewSelection(5, 9),
	})
	s.CollapseAll()
	for i, sel := range s.All() {
		if !sel.IsEmpty() {
			t.Errorf("selection %d not collapsed: %v", i, sel)
		}
	}
}

func TestSetClamp(t *testing.T) {
	s := NewSetFromSlice([]Selection{
		NewCursor(3),
		NewSelection(8, 20),
	})
	s.Clamp(10)
	last := s.Get(s.Count() - 1)
	if last.End() != 10 {
		t.Errorf("clamped end = %d, want 10", last.End())
	}
}

func TestSetCloneIsIndependent(t *testing.T) {
	s := NewSetAt(3)
	c := s.Clone()
	c.Add(NewCursor(7))
	if s.Count() != 1 {
		t.Errorf("original mutated by clone: count = %d, want 1", s.Count())
	}
	if !s.Equals(NewSetAt(3)) {
		t.Errorf("original changed: %v", s.All())
	}
}

func TestTransformOffset(t *testing.T) {
	tests := []struct {
		name   string
		offset ByteOffset
		edit   Edit
		want   ByteOffset
	}{
		{"insert before", 10, buffer.NewInsert(2, "abc"), 13},
		{"insert after", 10, buffer.NewInsert(12, "abc"), 10},
		{"insert at offset", 10, buffer.NewInsert(10, "abc"), 13},
		{"delete before", 10, buffer.NewDelete(2, 5), 7},
		{"delete after", 10, buffer.NewDelete(12, 15), 10},
		{"delete spanning", 10, buffer.NewDelete(8, 14), 8},
		{"replace spanning", 10, buffer.NewReplace(8, 14, "xy"), 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TransformOffset(tt.offset, tt.edit); got != tt.want {
				t.Errorf("TransformOffset(%d, %v) = %d, want %d", tt.offset, tt.edit, got, tt.want)
			}
		})
	}
}

func TestTransformOffsetSticky(t *testing.T) {
	edit := buffer.NewInsert(10, "abc")
	if got := TransformOffsetSticky(10, edit, true); got != 10 {
		t.Errorf("sticky insert at offset = %d, want 10", got)
	}
	if got := TransformOffsetSticky(10, edit, false); got != 13 {
		t.Errorf("non-sticky insert at offset = %d, want 13", got)
	}
}

// Typing "x" at two cursors remaps the later cursor past both insertions.
func TestTransformSetMultiCursorInsert(t *testing.T) {
	s := NewSetFromSlice([]Selection{NewCursor(2), NewCursor(5)})

	// Edits as applied: the second insertion's offset already accounts
	// for the first.
	TransformSet(s, buffer.NewInsert(2, "x"))
	TransformSet(s, buffer.NewInsert(6, "x"))

	if s.Count() != 2 {
		t.Fatalf("count = %d, want 2", s.Count())
	}
	if got := s.Get(0).Head; got != 3 {
		t.Errorf("first cursor = %d, want 3", got)
	}
	if got := s.Get(1).Head; got != 7 {
		t.Errorf("second cursor = %d, want 7", got)
	}
}

func TestTransformSelectionResetsGoal(t *testing.T) {
	sel := NewCursor(4)
	sel.goalColumn = 4
	sel = TransformSelection(sel, buffer.NewInsert(0, "ab"))
	if sel.goalColumn != -1 {
		t.Errorf("goal column survived an edit: %d", sel.goalColumn)
	}
	if sel.Head != 6 {
		t.Errorf("head = %d, want 6", sel.Head)
	}
}

func TestTransformRange(t *testing.T) {
	r := buffer.NewRange(5, 10)

	shifted := TransformRange(r, buffer.NewInsert(0, "ab"))
	if shifted.Start != 7 || shifted.End != 12 {
		t.Errorf("shifted range = %v, want [7,12)", shifted)
	}

	// Insertion at the range start stays outside a sticky range.
	sticky := TransformRange(r, buffer.NewInsert(5, "ab"))
	if sticky.Start != 5 || sticky.End != 12 {
		t.Errorf("sticky range = %v, want [5,12)", sticky)
	}
}
