package search

import (
	"errors"
	"testing"

	"github.com/dshills/loom/internal/engine"
	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/engine/rope"
)

func TestCompileLiteralEscapesMetaChars(t *testing.T) {
	p, err := Compile("a.b", Options{})
	if err != nil {
		t.Fatal(err)
	}
	r := rope.FromString("a.b axb")
	spans := p.FindAll(r)
	if len(spans) != 1 || spans[0].Start != 0 || spans[0].End != 3 {
		t.Errorf("spans = %v, want one match at [0,3)", spans)
	}
}

func TestCompileRegex(t *testing.T) {
	p, err := Compile(`fo+`, Options{Regex: true})
	if err != nil {
		t.Fatal(err)
	}
	spans := p.FindAll(rope.FromString("f fo foo"))
	if len(spans) != 2 {
		t.Fatalf("spans = %v, want 2 matches", spans)
	}
}

func TestCompileBadRegex(t *testing.T) {
	if _, err := Compile(`(`, Options{Regex: true}); err == nil {
		t.Error("expected compile error")
	}
	if _, err := Compile("", Options{}); !errors.Is(err, ErrEmptyPattern) {
		t.Errorf("err = %v, want ErrEmptyPattern", err)
	}
}

func TestCaseFolding(t *testing.T) {
	p, err := Compile("hello", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if spans := p.FindAll(rope.FromString("Hello HELLO hello")); len(spans) != 3 {
		t.Errorf("default case folding found %d matches, want 3", len(spans))
	}

	p, err = Compile("hello", Options{CaseSensitive: true})
	if err != nil {
		t.Fatal(err)
	}
	if spans := p.FindAll(rope.FromString("Hello HELLO hello")); len(spans) != 1 {
		t.Errorf("case sensitive found %d matches, want 1", len(spans))
	}
}

func TestWholeWord(t *testing.T) {
	p, err := Compile("cat", Options{WholeWord: true})
	if err != nil {
		t.Fatal(err)
	}
	spans := p.FindAll(rope.FromString("cat catalog concat cat"))
	if len(spans) != 2 {
		t.Fatalf("spans = %v, want 2 whole-word matches", spans)
	}
	if spans[0].Start != 0 || spans[1].Start != 19 {
		t.Errorf("spans = %v", spans)
	}
}

func TestFindForwardAndBackward(t *testing.T) {
	p, err := Compile("ab", Options{})
	if err != nil {
		t.Fatal(err)
	}
	r := rope.FromString("ab..ab..ab")

	sp, ok := p.Find(r, 1, Forward)
	if !ok || sp.Start != 4 {
		t.Errorf("forward from 1 = %v, %v; want start 4", sp, ok)
	}
	sp, ok = p.Find(r, 4, Forward)
	if !ok || sp.Start != 4 {
		t.Errorf("forward from 4 = %v; want the match at 4 itself", sp)
	}
	sp, ok = p.Find(r, 4, Backward)
	if !ok || sp.Start != 0 {
		t.Errorf("backward from 4 = %v; want start 0", sp)
	}
}

func TestFindWrapsAround(t *testing.T) {
	p, err := Compile("x", Options{})
	if err != nil {
		t.Fatal(err)
	}
	r := rope.FromString("..x.....")

	// Forward from past the only match wraps to it.
	sp, ok := p.Find(r, r.Len(), Forward)
	if !ok || sp.Start != 2 {
		t.Errorf("forward wrap = %v, %v; want start 2", sp, ok)
	}
	// Backward from before it wraps to it too.
	sp, ok = p.Find(r, 0, Backward)
	if !ok || sp.Start != 2 {
		t.Errorf("backward wrap = %v, %v; want start 2", sp, ok)
	}
}

func TestFindNoMatch(t *testing.T) {
	p, err := Compile("zzz", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Find(rope.FromString("abc"), 0, Forward); ok {
		t.Error("found a match in content without one")
	}
}

func TestReplaceBuildsEdit(t *testing.T) {
	edit := Replace(buffer.NewRange(3, 6), "new")
	if edit.Range.Start != 3 || edit.Range.End != 6 || edit.NewText != "new" {
		t.Errorf("edit = %+v", edit)
	}
}

func TestReplaceAllIsOneTransaction(t *testing.T) {
	eng := engine.New(engine.WithContent("foo foo"))
	p, err := Compile("foo", Options{})
	if err != nil {
		t.Fatal(err)
	}

	n, err := ReplaceAll(eng, p, "barbaz")
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if n != 2 {
		t.Errorf("n = %d, want 2", n)
	}
	if eng.Text() != "barbaz barbaz" {
		t.Errorf("text = %q, want %q", eng.Text(), "barbaz barbaz")
	}

	if err := eng.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if eng.Text() != "foo foo" {
		t.Errorf("after undo = %q, want original in a single step", eng.Text())
	}
}

func TestReplaceAllDoesNotCascade(t *testing.T) {
	// Replacement text containing the pattern must not be re-matched.
	eng := engine.New(engine.WithContent("aa"))
	p, err := Compile("a", Options{})
	if err != nil {
		t.Fatal(err)
	}
	n, err := ReplaceAll(eng, p, "aa")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || eng.Text() != "aaaa" {
		t.Errorf("n = %d, text = %q; want 2, %q", n, eng.Text(), "aaaa")
	}
}

func TestReplaceAllNoMatches(t *testing.T) {
	eng := engine.New(engine.WithContent("hello"))
	p, err := Compile("zzz", Options{})
	if err != nil {
		t.Fatal(err)
	}
	n, err := ReplaceAll(eng, p, "x")
	if err != nil || n != 0 {
		t.Errorf("n = %d, err = %v", n, err)
	}
	if eng.CanUndo() {
		t.Error("no-op replace created an undo entry")
	}
}
