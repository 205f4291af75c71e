// Package engine is the editing core facade. It combines the rope-backed
// buffer, the multi-cursor selection model, and the transaction log into a
// single handle that outer layers (rendering, key handling, file
// management) drive without touching the sub-packages directly.
//
// # Architecture
//
// The engine is built on several sub-packages:
//
//   - rope: persistent B+ tree rope for text storage (O(log n) edits)
//   - buffer: buffer abstraction with position conversion and edits
//   - cursor: multi-cursor selections, transforms, and movement
//   - history: transaction-scoped undo/redo with keystroke coalescing
//
// # Concurrency
//
// One goroutine owns each Engine for mutation: all write operations,
// cursor changes, and undo/redo run on that editing goroutine. Background
// consumers (syntax parsing, search) take a Snapshot and work against it;
// results carry the generation observed at dispatch and are dropped when
// the buffer has moved on. Read accessors are guarded so background code
// may call them, but sequencing across calls is only guaranteed on the
// editing goroutine.
//
// # Editing
//
// Every write operation is one undo transaction:
//
//	e := engine.New(engine.WithContent("hello"))
//	e.InsertText(" world")  // typed at the cursor
//	e.Undo()                // back to "hello", cursor restored
//
// Multi-cursor editing applies one edit per selection inside the same
// transaction, remapping every cursor through each edit as it lands.
package engine
