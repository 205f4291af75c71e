package history

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/engine/cursor"
)

// Common errors for history operations.
var (
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToRedo   = errors.New("nothing to redo")
	ErrNoTransaction   = errors.New("no open transaction")
	ErrOpenTransaction = errors.New("transaction already open")
)

// History is the transaction log for one buffer. Committed transactions
// live in a single slice; current points one past the last applied one, so
// the redo suffix is entries[current:].
//
// History is safe for concurrent queries, but Begin/Apply/Commit/Abort and
// Undo/Redo must be driven by the buffer's single editing goroutine, since
// they mutate the buffer itself.
type History struct {
	mu sync.Mutex

	entries []*Transaction
	current int

	open   *Transaction
	nextID TransactionID

	maxEntries int
	coalesce   bool

	// barrier blocks coalescing for the next commit. Set by undo and
	// redo so retyping after an undo never merges into older history.
	barrier bool
}

// NewHistory creates a transaction log. maxEntries bounds the number of
// retained transactions; zero or negative selects the default of 1000.
func NewHistory(maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &History{
		maxEntries: maxEntries,
		coalesce:   true,
		nextID:     1,
	}
}

// SetCoalescing enables or disables keystroke coalescing. Disabling it
// makes every committed transaction its own undo unit.
func (h *History) SetCoalescing(enabled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.coalesce = enabled
}

// Begin opens a transaction, snapshotting the cursor set. Fails if a
// transaction is already open.
func (h *History) Begin(cursors *cursor.Set) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.open != nil {
		return ErrOpenTransaction
	}
	h.open = &Transaction{before: cursors.Clone()}
	return nil
}

// Apply applies an edit to the buffer inside the open transaction and
// records it for undo. The buffer changes immediately; atomicity applies
// only to the undo unit. A failed edit leaves the transaction open with
// its earlier records intact.
func (h *History) Apply(buf *buffer.Buffer, edit buffer.Edit) (buffer.EditResult, error) {
	h.mu.Lock()
	open := h.open
	h.mu.Unlock()

	if open == nil {
		return buffer.EditResult{}, ErrNoTransaction
	}

	res, err := buf.ApplyEdit(edit)
	if err != nil {
		return buffer.EditResult{}, fmt.Errorf("apply edit: %w", err)
	}

	h.mu.Lock()
	open.records = append(open.records, editRecord{
		forward: buffer.Edit{Range: res.OldRange, NewText: edit.NewText},
		inverse: res.Inverse(),
	})
	h.mu.Unlock()
	return res, nil
}

// Commit closes the open transaction, snapshotting the final cursor set,
// truncating any redo suffix, and coalescing with the previous transaction
// when the edits form one typing run. An empty transaction commits to
// nothing and returns ID zero.
func (h *History) Commit(cursors *cursor.Set) (TransactionID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.open == nil {
		return 0, ErrNoTransaction
	}
	txn := h.open
	h.open = nil

	if len(txn.records) == 0 {
		return 0, nil
	}

	txn.after = cursors.Clone()
	txn.at = time.Now()
	txn.class = classify(txn)

	// A new commit invalidates everything beyond the pointer.
	h.entries = h.entries[:h.current]

	barrier := h.barrier
	h.barrier = false

	if h.coalesce && !barrier && h.current > 0 {
		prev := h.entries[h.current-1]
		if canCoalesce(prev, txn) {
			coalesceInto(prev, txn)
			return prev.id, nil
		}
	}

	txn.id = h.nextID
	h.nextID++
	h.entries = append(h.entries, txn)
	h.current = len(h.entries)

	if len(h.entries) > h.maxEntries {
		excess := len(h.entries) - h.maxEntries
		h.entries = h.entries[excess:]
		h.current -= excess
	}
	return txn.id, nil
}

// Abort reverts the open transaction's edits and discards it. The buffer
// is restored to its state at Begin, and the cursor snapshot taken at
// Begin is returned so the caller can restore cursors to match.
func (h *History) Abort(buf *buffer.Buffer) (*cursor.Set, error) {
	h.mu.Lock()
	txn := h.open
	h.open = nil
	h.mu.Unlock()

	if txn == nil {
		return nil, ErrNoTransaction
	}
	if err := txn.revert(buf); err != nil {
		return nil, fmt.Errorf("abort transaction: %w", err)
	}
	return txn.before.Clone(), nil
}

// InTransaction reports whether a transaction is open.
func (h *History) InTransaction() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open != nil
}

// Undo reverts the transaction before the pointer and returns the cursor
// set to restore. Returns ErrNothingToUndo at the start of history.
func (h *History) Undo(buf *buffer.Buffer) (*cursor.Set, error) {
	h.mu.Lock()
	if h.current == 0 {
		h.mu.Unlock()
		return nil, ErrNothingToUndo
	}
	txn := h.entries[h.current-1]
	h.mu.Unlock()

	// Revert without holding the lock; rope edits can be slow on huge
	// buffers.
	if err := txn.revert(buf); err != nil {
		return nil, fmt.Errorf("undo: %w", err)
	}

	h.mu.Lock()
	h.current--
	h.barrier = true
	h.mu.Unlock()
	return txn.CursorsBefore(), nil
}

// Redo reapplies the transaction at the pointer and returns the cursor set
// to restore. Returns ErrNothingToRedo at the end of history.
func (h *History) Redo(buf *buffer.Buffer) (*cursor.Set, error) {
	h.mu.Lock()
	if h.current >= len(h.entries) {
		h.mu.Unlock()
		return nil, ErrNothingToRedo
	}
	txn := h.entries[h.current]
	h.mu.Unlock()

	if err := txn.replay(buf); err != nil {
		return nil, fmt.Errorf("redo: %w", err)
	}

	h.mu.Lock()
	h.current++
	h.barrier = true
	h.mu.Unlock()
	return txn.CursorsAfter(), nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current < len(h.entries)
}

// UndoCount returns the number of transactions behind the pointer.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

// RedoCount returns the number of transactions beyond the pointer.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries) - h.current
}

// PeekUndo returns the transaction that would be undone next.
func (h *History) PeekUndo() (*Transaction, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == 0 {
		return nil, false
	}
	return h.entries[h.current-1], true
}

// PeekRedo returns the transaction that would be redone next.
func (h *History) PeekRedo() (*Transaction, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current >= len(h.entries) {
		return nil, false
	}
	return h.entries[h.current], true
}

// Clear removes all history. Any open transaction is discarded without
// reverting its edits.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.current = 0
	h.open = nil
}
