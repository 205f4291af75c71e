package cursor

import "github.com/dshills/loom/internal/engine/buffer"

// Edit is an alias for buffer.Edit.
type Edit = buffer.Edit

// TransformOffset remaps an offset through an edit:
//   - edit entirely before the offset: shift by the edit's delta
//   - edit at or after the offset: unchanged
//   - edit spanning the offset: move to the end of the new text
//
// Insertions exactly at the offset push the offset to the end of the
// inserted text, which is what a typing cursor expects.
func TransformOffset(offset ByteOffset, edit Edit) ByteOffset {
	if edit.Range.End <= offset {
		return offset + edit.Delta()
	}
	if edit.Range.Start >= offset {
		if edit.Range.Start == offset && edit.Range.IsEmpty() {
			return offset + ByteOffset(len(edit.NewText))
		}
		return offset
	}
	return edit.Range.Start + ByteOffset(len(edit.NewText))
}

// TransformOffsetSticky is TransformOffset with explicit behavior for an
// insertion exactly at the offset: sticky offsets stay put, non-sticky
// offsets ride to the end of the insertion.
func TransformOffsetSticky(offset ByteOffset, edit Edit, sticky bool) ByteOffset {
	if edit.Range.Start == offset && edit.Range.IsEmpty() && sticky {
		return offset
	}
	return TransformOffset(offset, edit)
}

// TransformSelection remaps a selection's anchor and head through an edit.
func TransformSelection(sel Selection, edit Edit) Selection {
	sel.Anchor = TransformOffset(sel.Anchor, edit)
	sel.Head = TransformOffset(sel.Head, edit)
	sel.goalColumn = -1
	return sel
}

// TransformSet remaps every selection in the set through an edit.
func TransformSet(s *Set, edit Edit) {
	for i := range s.selections {
		s.selections[i] = TransformSelection(s.selections[i], edit)
	}
	s.normalize()
}

// TransformSetMulti remaps the set through a sequence of edits, given in
// application order.
func TransformSetMulti(s *Set, edits []Edit) {
	for _, edit := range edits {
		TransformSet(s, edit)
	}
}

// TransformRange remaps a byte range through an edit, normalizing so
// Start <= End afterwards.
func TransformRange(r Range, edit Edit) Range {
	start := TransformOffsetSticky(r.Start, edit, true)
	end := TransformOffsetSticky(r.End, edit, true)
	if start > end {
		start, end = end, start
	}
	return Range{Start: start, End: end}
}
