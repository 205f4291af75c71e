package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPathError(t *testing.T) {
	err := NewPathError("open", "/tmp/file.txt", ErrNotFound)

	if got := err.Error(); got != "open /tmp/file.txt: not found" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is should see the wrapped sentinel")
	}

	var pe *PathError
	if !errors.As(err, &pe) {
		t.Fatal("errors.As should match *PathError")
	}
	if pe.Path != "/tmp/file.txt" || pe.Op != "open" {
		t.Errorf("fields = %+v", pe)
	}
}

func TestPathErrorThroughWrapping(t *testing.T) {
	inner := NewPathError("save", "/tmp/a.go", ErrExternallyModified)
	outer := fmt.Errorf("saving workspace: %w", inner)

	if !errors.Is(outer, ErrExternallyModified) {
		t.Error("sentinel lost through wrapping")
	}
	var pe *PathError
	if !errors.As(outer, &pe) || pe.Path != "/tmp/a.go" {
		t.Errorf("PathError lost through wrapping: %v", outer)
	}
}
