package history

import (
	"time"

	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/engine/cursor"
)

// TransactionID identifies a committed transaction.
type TransactionID uint64

// editRecord pairs an applied edit with its inverse. Forward edits replay
// in order for redo; inverses replay in reverse order for undo.
type editRecord struct {
	forward buffer.Edit
	inverse buffer.Edit
}

// Transaction is an atomic, invertible group of edits plus the cursor-set
// snapshots taken at begin and commit time.
type Transaction struct {
	id      TransactionID
	records []editRecord
	before  *cursor.Set
	after   *cursor.Set
	class   editClass
	at      time.Time
}

// ID returns the transaction's identifier.
func (t *Transaction) ID() TransactionID {
	return t.id
}

// EditCount returns the number of edits in the transaction.
func (t *Transaction) EditCount() int {
	return len(t.records)
}

// Edits returns the forward edits in application order.
func (t *Transaction) Edits() []buffer.Edit {
	edits := make([]buffer.Edit, len(t.records))
	for i, rec := range t.records {
		edits[i] = rec.forward
	}
	return edits
}

// CursorsBefore returns the cursor set captured when the transaction began.
func (t *Transaction) CursorsBefore() *cursor.Set {
	return t.before.Clone()
}

// CursorsAfter returns the cursor set captured at commit.
func (t *Transaction) CursorsAfter() *cursor.Set {
	return t.after.Clone()
}

// Timestamp returns when the transaction was committed.
func (t *Transaction) Timestamp() time.Time {
	return t.at
}

// revert applies the inverse edits in reverse order.
func (t *Transaction) revert(buf *buffer.Buffer) error {
	for i := len(t.records) - 1; i >= 0; i-- {
		if _, err := buf.ApplyEdit(t.records[i].inverse); err != nil {
			return err
		}
	}
	return nil
}

// replay applies the forward edits in order.
func (t *Transaction) replay(buf *buffer.Buffer) error {
	for _, rec := range t.records {
		if _, err := buf.ApplyEdit(rec.forward); err != nil {
			return err
		}
	}
	return nil
}

// Span returns a byte range covering every edit in the transaction, in
// both pre- and post-application coordinates. Consumers use it to
// invalidate derived state such as parse trees.
func (t *Transaction) Span() buffer.Range {
	if len(t.records) == 0 {
		return buffer.Range{}
	}
	span := t.records[0].forward.Range
	for _, rec := range t.records {
		span = span.Union(rec.forward.Range)
		span = span.Union(rec.forward.NewRangeAfter())
	}
	return span
}

// endOffset returns the offset just past the last forward edit's new text.
// Used by coalescing to test adjacency.
func (t *Transaction) endOffset() buffer.ByteOffset {
	if len(t.records) == 0 {
		return 0
	}
	last := t.records[len(t.records)-1].forward
	return last.NewRangeAfter().End
}

// startOffset returns the start of the first forward edit's range.
func (t *Transaction) startOffset() buffer.ByteOffset {
	if len(t.records) == 0 {
		return 0
	}
	return t.records[0].forward.Range.Start
}
