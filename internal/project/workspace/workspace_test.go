package workspace

import (
	"errors"
	"testing"

	"github.com/dshills/loom/internal/project/vfs"
)

func testWorkspace(t *testing.T) *Workspace {
	t.Helper()
	m := vfs.NewMem()
	for _, dir := range []string{"/proj", "/proj/nested", "/other"} {
		if err := m.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.WriteFile("/proj/file.go", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return New(m)
}

func TestAddRoot(t *testing.T) {
	w := testWorkspace(t)

	if err := w.AddRoot("/proj"); err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	if err := w.AddRoot("/proj"); err != nil {
		t.Errorf("re-add: %v", err)
	}
	if got := w.Roots(); len(got) != 1 || got[0] != "/proj" {
		t.Errorf("roots = %v", got)
	}

	if err := w.AddRoot("/proj/file.go"); !errors.Is(err, ErrNotDirectory) {
		t.Errorf("file as root: err = %v", err)
	}
	if err := w.AddRoot("/missing"); err == nil {
		t.Error("missing dir accepted as root")
	}
}

func TestContainsAndRootOf(t *testing.T) {
	w := testWorkspace(t)
	if err := w.AddRoot("/proj"); err != nil {
		t.Fatal(err)
	}
	if err := w.AddRoot("/proj/nested"); err != nil {
		t.Fatal(err)
	}

	if !w.Contains("/proj/file.go") {
		t.Error("Contains(/proj/file.go) = false")
	}
	if w.Contains("/elsewhere/file.go") {
		t.Error("Contains outside root = true")
	}

	root, err := w.RootOf("/proj/nested/deep/a.go")
	if err != nil || root != "/proj/nested" {
		t.Errorf("RootOf = %q, %v; deepest root should win", root, err)
	}
	root, err = w.RootOf("/proj/file.go")
	if err != nil || root != "/proj" {
		t.Errorf("RootOf = %q, %v", root, err)
	}
	if _, err := w.RootOf("/other/x.go"); !errors.Is(err, ErrNoRoot) {
		t.Errorf("err = %v, want ErrNoRoot", err)
	}

	// "/projother" shares a string prefix but is not under "/proj".
	if w.Contains("/projother/x.go") {
		t.Error("prefix sibling treated as contained")
	}
}

func TestRemoveRoot(t *testing.T) {
	w := testWorkspace(t)
	if err := w.AddRoot("/proj"); err != nil {
		t.Fatal(err)
	}
	if err := w.RemoveRoot("/proj"); err != nil {
		t.Fatal(err)
	}
	if !w.IsEmpty() {
		t.Errorf("roots = %v after remove", w.Roots())
	}
	if err := w.RemoveRoot("/proj"); err != nil {
		t.Errorf("removing unknown root: %v", err)
	}
}

func TestRel(t *testing.T) {
	w := testWorkspace(t)
	if err := w.AddRoot("/proj"); err != nil {
		t.Fatal(err)
	}
	rel, err := w.Rel("/proj/sub/a.go")
	if err != nil {
		t.Fatal(err)
	}
	if rel != "sub/a.go" {
		t.Errorf("rel = %q", rel)
	}
}
