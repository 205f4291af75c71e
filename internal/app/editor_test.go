package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/engine/cursor"
	perrors "github.com/dshills/loom/internal/project/errors"
	"github.com/dshills/loom/internal/project/search"
	"github.com/dshills/loom/internal/project/vfs"
	"github.com/dshills/loom/internal/syntax"
)

func testEditor(t *testing.T, fsys vfs.FS) *Editor {
	t.Helper()
	ed, err := New(Config{FS: fsys, SessionPath: "/state/session.json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(ed.Shutdown)
	return ed
}

func seedFile(t *testing.T, fsys vfs.FS, path, content string) {
	t.Helper()
	if err := fsys.MkdirAll("/src", 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := fsys.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// stubProvider records requests and returns canned spans.
type stubProvider struct {
	mu       sync.Mutex
	requests []syntax.Request
	spans    []syntax.Span
	err      error
}

func (p *stubProvider) Highlight(_ context.Context, req syntax.Request) ([]syntax.Span, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	spans := make([]syntax.Span, len(p.spans))
	copy(spans, p.spans)
	return spans, p.err
}

func (p *stubProvider) requestCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *stubProvider) lastRequest() syntax.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

func TestOpenEditSave(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/notes.txt", "hello\n")
	ed := testEditor(t, fsys)

	buf, err := ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if buf.Dirty() {
		t.Fatal("fresh buffer reported dirty")
	}

	if err := ed.Insert("/src/notes.txt", "well, "); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if !buf.Dirty() {
		t.Fatal("buffer not dirty after insert")
	}
	if err := ed.Save("/src/notes.txt"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if buf.Dirty() {
		t.Fatal("buffer dirty after save")
	}

	data, err := fsys.ReadFile("/src/notes.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := string(data); got != "well, hello\n" {
		t.Fatalf("saved content = %q", got)
	}

	snap := ed.Metrics().Snapshot()
	if snap.Opens != 1 || snap.Saves != 1 || snap.Edits != 1 {
		t.Fatalf("metrics = %+v", snap)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/notes.txt", "hello\n")
	ed := testEditor(t, fsys)

	first, err := ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	second, err := ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if first != second {
		t.Fatal("reopen returned a different buffer")
	}
	if ed.Store().Count() != 1 {
		t.Fatalf("Count = %d, want 1", ed.Store().Count())
	}
}

func TestOpenMissingFileThenSaveCreates(t *testing.T) {
	fsys := vfs.NewMem()
	if err := fsys.MkdirAll("/src", 0o755); err != nil {
		t.Fatal(err)
	}
	ed := testEditor(t, fsys)

	buf, err := ed.Open("/src/new.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !buf.Engine().IsEmpty() {
		t.Fatal("missing file did not open empty")
	}

	if err := ed.Insert("/src/new.txt", "fresh\n"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := ed.Save("/src/new.txt"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := fsys.Stat("/src/new.txt"); err != nil {
		t.Fatalf("file not created: %v", err)
	}
}

func TestEditUnopenedBuffer(t *testing.T) {
	fsys := vfs.NewMem()
	ed := testEditor(t, fsys)

	err := ed.Insert("/src/ghost.txt", "boo")
	if !errors.Is(err, perrors.ErrNotOpen) {
		t.Fatalf("err = %v, want ErrNotOpen", err)
	}
}

func TestCursorPersistsAcrossReopen(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/notes.txt", "hello world\n")
	ed := testEditor(t, fsys)

	buf, err := ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf.Engine().SetPrimarySelection(cursor.NewSelection(2, 7))
	if err := ed.Close("/src/notes.txt", false); err != nil {
		t.Fatalf("Close: %v", err)
	}

	buf, err = ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sel := buf.Engine().PrimarySelection()
	if sel.Anchor != 2 || sel.Head != 7 {
		t.Fatalf("restored selection = %d..%d, want 2..7", sel.Anchor, sel.Head)
	}
}

func TestCursorRestoreClampsToContent(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/notes.txt", "hello world\n")
	ed := testEditor(t, fsys)

	buf, err := ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf.Engine().SetPrimarySelection(cursor.NewCursor(11))
	if err := ed.Close("/src/notes.txt", false); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Shrink the file behind the session's back.
	if err := fsys.WriteFile("/src/notes.txt", []byte("hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	buf, err = ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sel := buf.Engine().PrimarySelection()
	if sel.Head > buf.Engine().Len() {
		t.Fatalf("cursor %d beyond content length %d", sel.Head, buf.Engine().Len())
	}
}

func TestCursorRestoreSnapsToCharBoundary(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/notes.txt", "hello")
	ed := testEditor(t, fsys)

	buf, err := ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf.Engine().SetPrimarySelection(cursor.NewCursor(2))
	if err := ed.Close("/src/notes.txt", false); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// The file changed between runs, so the saved offset 2 now lands
	// inside the two-byte é.
	if err := fsys.WriteFile("/src/notes.txt", []byte("héllo"), 0o644); err != nil {
		t.Fatal(err)
	}
	buf, err = ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	sel := buf.Engine().PrimarySelection()
	if sel.Head != 1 {
		t.Errorf("restored cursor = %d, want 1 (snapped before é)", sel.Head)
	}
	if err := ed.Insert("/src/notes.txt", "x"); err != nil {
		t.Fatalf("insert at restored cursor: %v", err)
	}
	if got := buf.Engine().Text(); got != "hxéllo" {
		t.Errorf("text = %q", got)
	}
}

func TestCloseDirtyRefusedWithoutForce(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/notes.txt", "hello\n")
	ed := testEditor(t, fsys)

	if _, err := ed.Open("/src/notes.txt"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := ed.Insert("/src/notes.txt", "x"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	err := ed.Close("/src/notes.txt", false)
	if !errors.Is(err, perrors.ErrDirty) {
		t.Fatalf("err = %v, want ErrDirty", err)
	}
	if !ed.Store().IsOpen("/src/notes.txt") {
		t.Fatal("refused close still removed the buffer")
	}
	if err := ed.Close("/src/notes.txt", true); err != nil {
		t.Fatalf("forced close: %v", err)
	}
	if ed.Store().IsOpen("/src/notes.txt") {
		t.Fatal("forced close left the buffer open")
	}
}

func TestHighlightPipeline(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/main.go", "package main\n")
	ed := testEditor(t, fsys)

	stub := &stubProvider{spans: []syntax.Span{
		{Range: buffer.Range{Start: 0, End: 7}, Scope: "keyword"},
	}}
	ed.newProvider = func(syntax.Language) (syntax.Provider, error) { return stub, nil }

	if _, err := ed.Open("/src/main.go"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitFor(t, "initial highlight", func() bool {
		return len(ed.Highlights("/src/main.go", buffer.Range{Start: 0, End: 13})) > 0
	})

	spans := ed.Highlights("/src/main.go", buffer.Range{Start: 0, End: 13})
	if len(spans) != 1 || spans[0].Scope != "keyword" {
		t.Fatalf("spans = %+v", spans)
	}
	if stub.lastRequest().Full != true {
		t.Fatal("initial request was not a full parse")
	}

	// Viewport clipping.
	clipped := ed.Highlights("/src/main.go", buffer.Range{Start: 3, End: 5})
	if len(clipped) != 1 || clipped[0].Range.Start != 3 || clipped[0].Range.End != 5 {
		t.Fatalf("clipped spans = %+v", clipped)
	}
}

func TestEditSubmitsIncrementalRequest(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/main.go", "package main\n")
	ed := testEditor(t, fsys)

	stub := &stubProvider{}
	ed.newProvider = func(syntax.Language) (syntax.Provider, error) { return stub, nil }

	buf, err := ed.Open("/src/main.go")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitFor(t, "initial parse", func() bool { return stub.requestCount() >= 1 })

	if err := ed.Insert("/src/main.go", "// x\n"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	waitFor(t, "incremental parse", func() bool { return stub.requestCount() >= 2 })

	req := stub.lastRequest()
	if req.Full {
		t.Fatal("edit request flagged Full")
	}
	if len(req.Edits) == 0 {
		t.Fatal("edit request carried no edits")
	}
	if req.Generation != buf.Engine().Generation() {
		t.Fatalf("request generation = %d, engine = %d", req.Generation, buf.Engine().Generation())
	}
}

func TestUndoSubmitsFullRequest(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/main.go", "package main\n")
	ed := testEditor(t, fsys)

	stub := &stubProvider{}
	ed.newProvider = func(syntax.Language) (syntax.Provider, error) { return stub, nil }

	if _, err := ed.Open("/src/main.go"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitFor(t, "initial parse", func() bool { return stub.requestCount() >= 1 })
	if err := ed.Insert("/src/main.go", "x"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	waitFor(t, "edit parse", func() bool { return stub.requestCount() >= 2 })
	if err := ed.Undo("/src/main.go"); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	waitFor(t, "full request after undo", func() bool {
		return stub.requestCount() >= 3 && stub.lastRequest().Full
	})
}

func TestHighlightErrorKeepsOldSpans(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/main.go", "package main\n")
	ed := testEditor(t, fsys)

	stub := &stubProvider{spans: []syntax.Span{
		{Range: buffer.Range{Start: 0, End: 7}, Scope: "keyword"},
	}}
	ed.newProvider = func(syntax.Language) (syntax.Provider, error) { return stub, nil }

	if _, err := ed.Open("/src/main.go"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	waitFor(t, "initial highlight", func() bool {
		return len(ed.Highlights("/src/main.go", buffer.Range{Start: 0, End: 13})) > 0
	})

	stub.mu.Lock()
	stub.err = errors.New("parser exploded")
	stub.mu.Unlock()
	if err := ed.Insert("/src/main.go", "y"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	waitFor(t, "failed parse observed", func() bool {
		return ed.HighlightError("/src/main.go") != nil
	})

	// Stale spans survive the failure.
	spans := ed.Highlights("/src/main.go", buffer.Range{Start: 0, End: 14})
	if len(spans) == 0 {
		t.Fatal("failed parse discarded previous spans")
	}
}

func TestPlainBufferHasNoHighlights(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/notes.txt", "hello\n")
	ed := testEditor(t, fsys)

	called := false
	ed.newProvider = func(syntax.Language) (syntax.Provider, error) {
		called = true
		return &stubProvider{}, nil
	}
	if _, err := ed.Open("/src/notes.txt"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if called {
		t.Fatal("provider built for a language with no grammar")
	}
	if spans := ed.Highlights("/src/notes.txt", buffer.Range{Start: 0, End: 6}); spans != nil {
		t.Fatalf("spans = %+v, want nil", spans)
	}
}

func TestFindAndReplaceAll(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/notes.txt", "foo bar foo\n")
	ed := testEditor(t, fsys)

	buf, err := ed.Open("/src/notes.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	span, found, err := ed.Find("/src/notes.txt", "foo", search.Options{}, search.Forward)
	if err != nil || !found {
		t.Fatalf("Find: found=%v err=%v", found, err)
	}
	if span.Start != 0 || span.End != 3 {
		t.Fatalf("span = %+v", span)
	}

	n, err := ed.ReplaceAll("/src/notes.txt", "foo", search.Options{}, "qux")
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if n != 2 {
		t.Fatalf("replaced %d, want 2", n)
	}
	if got := buf.Engine().Text(); got != "qux bar qux\n" {
		t.Fatalf("text = %q", got)
	}

	// The whole replace is one undo step.
	if err := ed.Undo("/src/notes.txt"); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if got := buf.Engine().Text(); got != "foo bar foo\n" {
		t.Fatalf("text after undo = %q", got)
	}
}

func TestWorkspaceSearchAndFuzzy(t *testing.T) {
	fsys := vfs.NewMem()
	seedFile(t, fsys, "/src/main.go", "package main\n\nfunc main() {}\n")
	if err := fsys.MkdirAll("/src/util", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := fsys.WriteFile("/src/util/strings.go", []byte("package util\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ed := testEditor(t, fsys)

	if err := ed.AddWorkspaceRoot("/src"); err != nil {
		t.Fatalf("AddWorkspaceRoot: %v", err)
	}

	matches, err := ed.SearchWorkspace(context.Background(), "package", search.Options{}, search.ProjectOptions{})
	if err != nil {
		t.Fatalf("SearchWorkspace: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}

	files, err := ed.FuzzyFiles("strgo")
	if err != nil {
		t.Fatalf("FuzzyFiles: %v", err)
	}
	if len(files) == 0 || files[0].Path != "util/strings.go" {
		t.Fatalf("fuzzy results = %+v", files)
	}
}

func TestWorkspaceRootsPersist(t *testing.T) {
	fsys := vfs.NewMem()
	if err := fsys.MkdirAll("/proj", 0o755); err != nil {
		t.Fatal(err)
	}

	ed := testEditor(t, fsys)
	if err := ed.AddWorkspaceRoot("/proj"); err != nil {
		t.Fatalf("AddWorkspaceRoot: %v", err)
	}
	ed.Shutdown()

	again, err := New(Config{FS: fsys, SessionPath: "/state/session.json"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer again.Shutdown()
	roots := again.Workspace().Roots()
	if len(roots) != 1 || roots[0] != "/proj" {
		t.Fatalf("restored roots = %v", roots)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	fsys := vfs.NewMem()
	ed := testEditor(t, fsys)
	ed.Shutdown()
	ed.Shutdown()
}
