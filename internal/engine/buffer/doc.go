// Package buffer wraps a rope with editor-level bookkeeping.
//
// A Buffer owns one rope plus a generation counter that increments on every
// mutation. Background workers (syntax parsing, search) take a Snapshot,
// which captures the rope and generation at a point in time; because ropes
// are immutable the snapshot stays valid while the editing goroutine keeps
// mutating the buffer, and the generation lets consumers detect and discard
// stale results.
//
// All mutation goes through Edit values so the same representation feeds
// the undo log, cursor remapping, and the syntax layer's changed-range
// tracking.
package buffer
