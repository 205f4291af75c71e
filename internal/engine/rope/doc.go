// Package rope implements an immutable rope for text storage.
//
// The rope is a B+ tree whose leaves hold small UTF-8 text segments. Every
// node carries an aggregated Summary (bytes, chars, newlines), so length
// queries and line/offset conversions run in O(log n). Edit operations
// return a new Rope that shares all unaffected subtrees with the original,
// which makes snapshots free and lets background workers read a rope while
// the editing goroutine builds the next revision.
//
// All offsets are byte offsets and must fall on UTF-8 character boundaries.
// Operations given a mis-aligned offset return ErrNotCharBoundary instead of
// splitting a multi-byte character.
package rope
