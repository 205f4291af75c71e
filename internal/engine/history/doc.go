// Package history implements the undo/redo log for a buffer.
//
// The unit of undo is a Transaction: an ordered group of edits applied
// atomically from the user's point of view, together with the cursor set
// before and after the group. Edits inside an open transaction hit the
// buffer immediately, so intermediate state is visible to incremental
// consumers, but undo reverts the whole group at once.
//
// The log keeps committed transactions in a single slice with a movable
// pointer. Undo moves the pointer back, redo moves it forward, and a new
// commit while the pointer is not at the end truncates the redo suffix.
//
// Consecutive small transactions from ordinary typing are coalesced by
// edit class: runs of word characters merge with runs of word characters,
// whitespace with whitespace, deletions with adjacent deletions. The
// boundary is purely content-based, so grouping is deterministic.
package history
