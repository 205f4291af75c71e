package engine

import (
	"errors"

	"github.com/dshills/loom/internal/engine/history"
	"github.com/dshills/loom/internal/engine/rope"
)

// Errors returned by engine operations. The boundary and range errors
// originate in the rope and are re-exported so callers can match them
// without importing the sub-package.
var (
	// ErrNotCharBoundary indicates an offset inside a multi-byte character.
	ErrNotCharBoundary = rope.ErrNotCharBoundary

	// ErrOffsetOutOfRange indicates an offset outside the buffer.
	ErrOffsetOutOfRange = rope.ErrOffsetOutOfRange

	// ErrRangeInvalid indicates a range with end before start.
	ErrRangeInvalid = rope.ErrRangeInvalid

	// ErrNothingToUndo indicates the history pointer is at the start.
	ErrNothingToUndo = history.ErrNothingToUndo

	// ErrNothingToRedo indicates the history pointer is at the end.
	ErrNothingToRedo = history.ErrNothingToRedo

	// ErrEditsOverlap indicates batch edits overlap or are out of order.
	ErrEditsOverlap = errors.New("edits overlap or are not in reverse order")

	// ErrReadOnly indicates a write on a read-only engine.
	ErrReadOnly = errors.New("engine is read-only")
)
