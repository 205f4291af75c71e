package buffer

import "fmt"

// Edit is the primitive mutation: replace the byte range with new text.
// Inserts have an empty range; deletes have empty NewText. An Edit together
// with the text it replaced (EditResult.OldText) is fully invertible.
type Edit struct {
	Range   Range
	NewText string
}

// NewInsert creates an Edit that inserts text at offset.
func NewInsert(offset ByteOffset, text string) Edit {
	return Edit{Range: Range{Start: offset, End: offset}, NewText: text}
}

// NewDelete creates an Edit that deletes the range [start, end).
func NewDelete(start, end ByteOffset) Edit {
	return Edit{Range: NewRange(start, end)}
}

// NewReplace creates an Edit that replaces [start, end) with text.
func NewReplace(start, end ByteOffset, text string) Edit {
	return Edit{Range: NewRange(start, end), NewText: text}
}

// IsInsert returns true for a pure insertion.
func (e Edit) IsInsert() bool {
	return e.Range.IsEmpty() && e.NewText != ""
}

// IsDelete returns true for a pure deletion.
func (e Edit) IsDelete() bool {
	return !e.Range.IsEmpty() && e.NewText == ""
}

// IsNoOp returns true if the edit changes nothing.
func (e Edit) IsNoOp() bool {
	return e.Range.IsEmpty() && e.NewText == ""
}

// Delta returns the change in buffer length caused by this edit.
func (e Edit) Delta() ByteOffset {
	return ByteOffset(len(e.NewText)) - e.Range.Len()
}

// NewRangeAfter returns the range the new text occupies after application.
func (e Edit) NewRangeAfter() Range {
	return Range{Start: e.Range.Start, End: e.Range.Start + ByteOffset(len(e.NewText))}
}

// String returns a human-readable representation.
func (e Edit) String() string {
	if e.Range.IsEmpty() {
		return fmt.Sprintf("Insert(%d, %q)", e.Range.Start, e.NewText)
	}
	if e.NewText == "" {
		return fmt.Sprintf("Delete%s", e.Range)
	}
	return fmt.Sprintf("Replace%s with %q", e.Range, e.NewText)
}

// EditResult describes an applied edit.
type EditResult struct {
	// OldRange is the range that was replaced.
	OldRange Range

	// NewRange is the range the replacement text occupies.
	NewRange Range

	// OldText is the text that was replaced. Needed to invert the edit.
	OldText string

	// Delta is the change in buffer length.
	Delta ByteOffset
}

// Inverse returns the Edit that undoes the applied edit.
func (res EditResult) Inverse() Edit {
	return Edit{Range: res.NewRange, NewText: res.OldText}
}
