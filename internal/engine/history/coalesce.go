package history

import "unicode"

// editClass buckets a transaction's content for coalescing. Typing a word
// produces a run of classWord transactions that merge into one undo unit;
// the transition to whitespace (or punctuation) starts a new unit, so undo
// peels back whole words rather than single keystrokes.
type editClass uint8

const (
	// classOther never coalesces.
	classOther editClass = iota

	// classWord is an insertion of word characters only.
	classWord

	// classSpace is an insertion of whitespace only.
	classSpace

	// classDelete is a pure deletion.
	classDelete
)

func isWordRune(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}

// classify buckets a transaction by its edits. Only single-edit
// transactions participate in coalescing; multi-edit groups (multi-cursor
// typing, replace-all) stay their own undo unit.
func classify(t *Transaction) editClass {
	if len(t.records) != 1 {
		return classOther
	}
	fwd := t.records[0].forward

	if fwd.IsDelete() {
		return classDelete
	}
	if !fwd.IsInsert() {
		return classOther
	}

	allWord, allSpace := true, true
	for _, c := range fwd.NewText {
		if !isWordRune(c) {
			allWord = false
		}
		if !unicode.IsSpace(c) {
			allSpace = false
		}
	}
	switch {
	case allWord:
		return classWord
	case allSpace:
		return classSpace
	default:
		return classOther
	}
}

// canCoalesce reports whether next can merge into prev. Classes must match
// and the edits must be contiguous: an insertion starts where the previous
// insertion ended, a backward deletion ends where the previous one started.
func canCoalesce(prev, next *Transaction) bool {
	if prev.class == classOther || prev.class != next.class {
		return false
	}

	switch next.class {
	case classWord, classSpace:
		return next.startOffset() == prev.endOffset()
	case classDelete:
		// Backspacing: each deletion ends where the previous began.
		// Forward delete: each deletion starts at the same offset.
		nextFwd := next.records[0].forward
		prevLast := prev.records[len(prev.records)-1].forward
		return nextFwd.Range.End == prevLast.Range.Start ||
			nextFwd.Range.Start == prevLast.Range.Start
	default:
		return false
	}
}

// coalesceInto folds next into prev. prev keeps its begin snapshot and
// identifier; next contributes its records and end snapshot.
func coalesceInto(prev, next *Transaction) {
	prev.records = append(prev.records, next.records...)
	prev.after = next.after
	prev.at = next.at
}
