// Package cursor implements the selection model: anchor/head selections,
// multi-cursor sets, movement, and offset remapping through edits.
//
// A Selection is an anchor/head pair of byte offsets over a rope; a cursor
// is simply an empty selection. CursorSet keeps selections sorted and
// non-overlapping (overlaps merge). Movement operations are pure functions
// over (rope, selection) dispatched by a Motion tag; none of them ever land
// inside a character or grapheme cluster.
//
// After an edit, every selection in a set is remapped through the Edit that
// produced it rather than recomputed, so multi-cursor edits stay consistent
// when earlier cursors shift the offsets of later ones.
package cursor
