package app

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/loom/internal/engine/buffer"
	"github.com/dshills/loom/internal/engine/cursor"
	perrors "github.com/dshills/loom/internal/project/errors"
	"github.com/dshills/loom/internal/project/filestore"
	"github.com/dshills/loom/internal/project/search"
	"github.com/dshills/loom/internal/project/session"
	"github.com/dshills/loom/internal/project/vfs"
	"github.com/dshills/loom/internal/project/watcher"
	"github.com/dshills/loom/internal/project/workspace"
	"github.com/dshills/loom/internal/syntax"
)

// Config configures an Editor.
type Config struct {
	// FS defaults to the real filesystem.
	FS vfs.FS
	// SessionPath is where session state is persisted. Empty disables
	// session persistence.
	SessionPath string
	// Logger defaults to NullLogger.
	Logger *Logger
	// MaxFileSize overrides the buffer store's open limit when positive.
	MaxFileSize int64
	// Debounce overrides the file watcher's coalescing window when
	// positive.
	Debounce time.Duration
}

// Editor owns the open buffers and everything derived from them: the
// workspace roots, persisted session state, on-disk change watching, and
// a highlight scheduler per buffer with a grammar.
type Editor struct {
	log     *Logger
	fsys    vfs.FS
	store   *filestore.Store
	ws      *workspace.Workspace
	sess    *session.Session
	watch   *watcher.Watcher
	metrics *Metrics

	// newProvider builds the highlight provider for a language. Tests
	// swap it out; everything else gets tree-sitter.
	newProvider func(lang syntax.Language) (syntax.Provider, error)

	mu       sync.Mutex
	views    map[string]*view
	external map[string]watcher.Op
	closed   bool

	done chan struct{}
	wg   sync.WaitGroup
}

// view is the per-buffer highlight state.
type view struct {
	buf   *filestore.Buffer
	sched *syntax.Scheduler

	mu    sync.Mutex
	spans []syntax.Span
	gen   buffer.Generation
	err   error
}

// New creates an Editor, restoring workspace roots from the session file
// if one exists.
func New(cfg Config) (*Editor, error) {
	fsys := cfg.FS
	if fsys == nil {
		fsys = vfs.NewOS()
	}
	log := cfg.Logger
	if log == nil {
		log = NullLogger
	}

	var storeOpts []filestore.Option
	if cfg.MaxFileSize > 0 {
		storeOpts = append(storeOpts, filestore.WithMaxFileSize(cfg.MaxFileSize))
	}

	var watchOpts []watcher.Option
	if cfg.Debounce > 0 {
		watchOpts = append(watchOpts, watcher.WithDebounce(cfg.Debounce))
	}
	watch, err := watcher.New(watchOpts...)
	if err != nil {
		return nil, err
	}

	ed := &Editor{
		log:      log,
		fsys:     fsys,
		store:    filestore.NewStore(fsys, storeOpts...),
		ws:       workspace.New(fsys),
		watch:    watch,
		metrics:  NewMetrics(),
		views:    make(map[string]*view),
		external: make(map[string]watcher.Op),
		done:     make(chan struct{}),
	}
	ed.newProvider = func(lang syntax.Language) (syntax.Provider, error) {
		p, err := syntax.NewTreeSitter(lang)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	if cfg.SessionPath != "" {
		sess, err := session.Load(fsys, cfg.SessionPath)
		if err != nil {
			log.Warn("session load: %v", err)
		}
		if sess != nil {
			ed.sess = sess
			for _, dir := range sess.Workspaces() {
				if err := ed.ws.AddRoot(dir); err != nil {
					log.Warn("restore workspace %s: %v", dir, err)
				}
			}
		}
	}

	ed.wg.Add(1)
	go ed.watchLoop()

	return ed, nil
}

// Metrics returns the editor's activity counters.
func (ed *Editor) Metrics() *Metrics { return ed.metrics }

// Store returns the underlying buffer store.
func (ed *Editor) Store() *filestore.Store { return ed.store }

// Workspace returns the workspace root set.
func (ed *Editor) Workspace() *workspace.Workspace { return ed.ws }

// Open opens the file at path, restoring the saved cursor position and
// starting a highlight scheduler when the language has a grammar. Opening
// an already open path returns the existing buffer.
func (ed *Editor) Open(path string) (*filestore.Buffer, error) {
	buf, err := ed.store.Open(path)
	if err != nil {
		return nil, err
	}
	abs := buf.Path()

	ed.mu.Lock()
	defer ed.mu.Unlock()
	if v, ok := ed.views[abs]; ok {
		return v.buf, nil
	}

	ed.restoreCursor(buf)

	v := &view{buf: buf}
	if syntax.Grammar(buf.Language()) {
		provider, err := ed.newProvider(buf.Language())
		if err != nil {
			ed.log.Warn("highlight provider for %s: %v", abs, err)
		} else {
			v.sched = syntax.NewScheduler(timedProvider{provider, ed.metrics})
			ed.wg.Add(1)
			go ed.resultLoop(v)
			v.sched.Submit(syntax.Request{
				Snapshot:   buf.Engine().Snapshot(),
				Generation: buf.Engine().Generation(),
				Full:       true,
			})
		}
	}
	ed.views[abs] = v

	if err := ed.watch.Watch(abs); err != nil {
		// New files have nothing on disk to watch yet.
		ed.log.Debug("watch %s: %v", abs, err)
	}

	if ed.sess != nil {
		if root, err := ed.ws.RootOf(abs); err == nil {
			if err := ed.sess.AttachBuffer(root, abs); err != nil {
				ed.log.Warn("session attach %s: %v", abs, err)
			}
		}
	}

	ed.metrics.RecordOpen()
	ed.log.WithComponent("store").Info("opened %s (%s, %s)", abs, buf.Language(), buf.Encoding())
	return buf, nil
}

// restoreCursor clamps the session's saved selection to the current
// buffer and applies it. The file may have changed since the record was
// written, so offsets are snapped to character boundaries too; a stale
// record must never plant a cursor inside a multi-byte character. Called
// with ed.mu held.
func (ed *Editor) restoreCursor(buf *filestore.Buffer) {
	if ed.sess == nil {
		return
	}
	st, ok := ed.sess.Buffer(buf.Path())
	if !ok {
		return
	}
	eng := buf.Engine()
	r := eng.Rope()
	max := int64(eng.Len())
	head := r.SnapToCharBoundary(buffer.ByteOffset(clamp(st.Cursor, max)))
	anchor := r.SnapToCharBoundary(buffer.ByteOffset(clamp(st.Anchor, max)))
	sel := cursor.NewSelection(anchor, head)
	sel.Affinity = st.Affinity
	eng.SetPrimarySelection(sel)
}

func clamp(v, max int64) int64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// Buffer returns the open buffer for path.
func (ed *Editor) Buffer(path string) (*filestore.Buffer, bool) {
	return ed.store.Get(path)
}

// Insert inserts text at every cursor in the buffer and refreshes
// highlighting.
func (ed *Editor) Insert(path, text string) error {
	buf, ok := ed.store.Get(path)
	if !ok {
		return perrors.NewPathError("edit", path, perrors.ErrNotOpen)
	}
	if err := buf.Engine().InsertText(text); err != nil {
		return err
	}
	ed.afterEdit(buf)
	return nil
}

// DeleteBackward deletes before every cursor, or the selection when one
// is active, and refreshes highlighting.
func (ed *Editor) DeleteBackward(path string) error {
	buf, ok := ed.store.Get(path)
	if !ok {
		return perrors.NewPathError("edit", path, perrors.ErrNotOpen)
	}
	if err := buf.Engine().DeleteBackward(); err != nil {
		return err
	}
	ed.afterEdit(buf)
	return nil
}

// Undo reverts the newest transaction and refreshes highlighting.
func (ed *Editor) Undo(path string) error {
	buf, ok := ed.store.Get(path)
	if !ok {
		return perrors.NewPathError("undo", path, perrors.ErrNotOpen)
	}
	if err := buf.Engine().Undo(); err != nil {
		return err
	}
	ed.afterEdit(buf)
	return nil
}

// Redo reapplies the most recently undone transaction and refreshes
// highlighting.
func (ed *Editor) Redo(path string) error {
	buf, ok := ed.store.Get(path)
	if !ok {
		return perrors.NewPathError("redo", path, perrors.ErrNotOpen)
	}
	if err := buf.Engine().Redo(); err != nil {
		return err
	}
	ed.afterEdit(buf)
	return nil
}

// Refresh submits the buffer's most recent change to its highlight
// scheduler. Callers that mutate the engine directly call this afterward;
// the Editor's own editing methods do it for them.
func (ed *Editor) Refresh(path string) {
	buf, ok := ed.store.Get(path)
	if !ok {
		return
	}
	ed.afterEdit(buf)
}

func (ed *Editor) afterEdit(buf *filestore.Buffer) {
	ed.metrics.RecordEdit()

	ed.mu.Lock()
	v, ok := ed.views[buf.Path()]
	ed.mu.Unlock()
	if !ok || v.sched == nil {
		return
	}

	eng := buf.Engine()
	req := syntax.Request{
		Snapshot:   eng.Snapshot(),
		Generation: eng.Generation(),
	}
	if ch, has := eng.LastChange(); has && !ch.Full {
		req.Edits = make([]syntax.Edit, len(ch.Edits))
		for i, e := range ch.Edits {
			req.Edits[i] = syntax.Edit{
				OldRange: e.OldRange,
				NewRange: e.NewRange,
				NewText:  e.NewText,
			}
		}
	} else {
		req.Full = true
	}
	v.sched.Submit(req)
}

// Highlights returns the spans overlapping the viewport, clipped to it,
// from the buffer's most recent completed highlight pass. A buffer
// without a grammar, or whose last parse failed before any succeeded,
// yields nil.
func (ed *Editor) Highlights(path string, viewport buffer.Range) []syntax.Span {
	buf, ok := ed.store.Get(path)
	if !ok {
		return nil
	}
	ed.mu.Lock()
	v, ok := ed.views[buf.Path()]
	ed.mu.Unlock()
	if !ok {
		return nil
	}
	v.mu.Lock()
	spans := v.spans
	v.mu.Unlock()
	return syntax.FilterViewport(spans, viewport)
}

// HighlightGeneration returns the buffer generation of the most recent
// completed highlight pass.
func (ed *Editor) HighlightGeneration(path string) (buffer.Generation, bool) {
	buf, ok := ed.store.Get(path)
	if !ok {
		return 0, false
	}
	ed.mu.Lock()
	v, ok := ed.views[buf.Path()]
	ed.mu.Unlock()
	if !ok || v.sched == nil {
		return 0, false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.gen, true
}

// HighlightError returns the error from the most recent highlight pass,
// or nil when it succeeded. Status bars show it; nothing else reacts to
// it, since highlighting degrades rather than fails.
func (ed *Editor) HighlightError(path string) error {
	buf, ok := ed.store.Get(path)
	if !ok {
		return nil
	}
	ed.mu.Lock()
	v, ok := ed.views[buf.Path()]
	ed.mu.Unlock()
	if !ok {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// resultLoop consumes one scheduler's results. Results for a generation
// older than one already applied are discarded; the scheduler can emit
// them when a merged request was split across a timeout.
func (ed *Editor) resultLoop(v *view) {
	defer ed.wg.Done()
	for res := range v.sched.Results() {
		v.mu.Lock()
		if res.Generation < v.gen {
			v.mu.Unlock()
			continue
		}
		v.gen = res.Generation
		if res.Err != nil {
			// Keep the stale spans; they are better than nothing
			// until the next clean pass.
			v.err = res.Err
			v.mu.Unlock()
			ed.log.WithComponent("syntax").Warn("highlight %s: %v", v.buf.Path(), res.Err)
			continue
		}
		v.err = nil
		v.spans = res.Spans
		v.mu.Unlock()
	}
}

// Save writes the buffer to disk. It fails with ErrExternallyModified
// when the file changed on disk since it was loaded; SaveForce
// overwrites anyway.
func (ed *Editor) Save(path string) error {
	return ed.saveWith(path, ed.store.Save)
}

// SaveForce writes the buffer to disk even over external changes.
func (ed *Editor) SaveForce(path string) error {
	return ed.saveWith(path, ed.store.SaveForce)
}

func (ed *Editor) saveWith(path string, save func(string) error) error {
	if err := save(path); err != nil {
		return err
	}
	if buf, ok := ed.store.Get(path); ok {
		ed.clearExternal(buf.Path())
		ed.recordSession(buf)
		ed.persistSession()
		// Saving may create the file, so the watch can attach now.
		if !ed.watch.IsWatching(buf.Path()) {
			if err := ed.watch.Watch(buf.Path()); err != nil {
				ed.log.Debug("watch %s: %v", buf.Path(), err)
			}
		}
	}
	ed.metrics.RecordSave()
	return nil
}

// Reload replaces the buffer's content from disk. A dirty buffer is only
// reloaded when force is set. Highlighting restarts from scratch.
func (ed *Editor) Reload(path string, force bool) error {
	if err := ed.store.Reload(path, force); err != nil {
		return err
	}
	buf, _ := ed.store.Get(path)
	ed.clearExternal(buf.Path())
	ed.metrics.RecordReload()

	ed.mu.Lock()
	v, ok := ed.views[buf.Path()]
	ed.mu.Unlock()
	if ok && v.sched != nil {
		eng := buf.Engine()
		v.sched.Submit(syntax.Request{
			Snapshot:   eng.Snapshot(),
			Generation: eng.Generation(),
			Full:       true,
		})
	}
	return nil
}

// Close closes the buffer, persisting its cursor to the session. A dirty
// buffer is only closed when force is set.
func (ed *Editor) Close(path string, force bool) error {
	buf, ok := ed.store.Get(path)
	if !ok {
		return perrors.NewPathError("close", path, perrors.ErrNotOpen)
	}
	abs := buf.Path()

	ed.recordSession(buf)
	if err := ed.store.Close(path, force); err != nil {
		return err
	}

	ed.mu.Lock()
	v := ed.views[abs]
	delete(ed.views, abs)
	delete(ed.external, abs)
	ed.mu.Unlock()

	if err := ed.watch.Unwatch(abs); err != nil {
		ed.log.Debug("unwatch %s: %v", abs, err)
	}
	if v != nil && v.sched != nil {
		v.sched.Close()
	}
	if ed.sess != nil {
		if root, err := ed.ws.RootOf(abs); err == nil {
			if err := ed.sess.DetachBuffer(root, abs); err != nil {
				ed.log.Warn("session detach %s: %v", abs, err)
			}
		}
	}

	ed.persistSession()
	ed.metrics.RecordClose()
	return nil
}

// persistSession writes the session file. Session state is also kept in
// memory, so a write failure costs nothing but durability.
func (ed *Editor) persistSession() {
	if ed.sess == nil {
		return
	}
	if err := ed.sess.Save(); err != nil {
		ed.log.Warn("session save: %v", err)
	}
}

// recordSession persists the buffer's primary selection so the cursor
// comes back on the next open.
func (ed *Editor) recordSession(buf *filestore.Buffer) {
	if ed.sess == nil {
		return
	}
	sel := buf.Engine().PrimarySelection()
	err := ed.sess.SetBuffer(buf.Path(), session.BufferState{
		Cursor:   int64(sel.Head),
		Anchor:   int64(sel.Anchor),
		Affinity: sel.Affinity,
	})
	if err != nil {
		ed.log.Warn("session record %s: %v", buf.Path(), err)
	}
}

// AddWorkspaceRoot adds a directory as a workspace root and persists it.
func (ed *Editor) AddWorkspaceRoot(dir string) error {
	if err := ed.ws.AddRoot(dir); err != nil {
		return err
	}
	if ed.sess != nil {
		abs, _ := ed.fsys.Abs(dir)
		if err := ed.sess.AddWorkspace(abs); err != nil {
			ed.log.Warn("session workspace %s: %v", dir, err)
		}
	}
	return nil
}

// RemoveWorkspaceRoot removes a workspace root and its session record.
func (ed *Editor) RemoveWorkspaceRoot(dir string) error {
	if err := ed.ws.RemoveRoot(dir); err != nil {
		return err
	}
	if ed.sess != nil {
		abs, _ := ed.fsys.Abs(dir)
		if err := ed.sess.RemoveWorkspace(abs); err != nil {
			ed.log.Warn("session workspace %s: %v", dir, err)
		}
	}
	return nil
}

// Find searches the buffer from the primary cursor, wrapping around.
func (ed *Editor) Find(path, query string, opts search.Options, dir search.Direction) (buffer.Range, bool, error) {
	buf, ok := ed.store.Get(path)
	if !ok {
		return buffer.Range{}, false, perrors.NewPathError("find", path, perrors.ErrNotOpen)
	}
	pat, err := search.Compile(query, opts)
	if err != nil {
		return buffer.Range{}, false, err
	}
	ed.metrics.RecordSearch()
	start := buf.Engine().PrimarySelection().Head
	span, found := pat.Find(buf.Engine().Rope(), start, dir)
	return span, found, nil
}

// ReplaceAll replaces every match in the buffer as one undoable
// transaction and refreshes highlighting. Returns the match count.
func (ed *Editor) ReplaceAll(path, query string, opts search.Options, replacement string) (int, error) {
	buf, ok := ed.store.Get(path)
	if !ok {
		return 0, perrors.NewPathError("replace", path, perrors.ErrNotOpen)
	}
	pat, err := search.Compile(query, opts)
	if err != nil {
		return 0, err
	}
	ed.metrics.RecordSearch()
	n, err := search.ReplaceAll(buf.Engine(), pat, replacement)
	if err != nil {
		return n, err
	}
	if n > 0 {
		ed.afterEdit(buf)
	}
	return n, nil
}

// SearchWorkspace searches every workspace root for the pattern.
func (ed *Editor) SearchWorkspace(ctx context.Context, query string, opts search.Options, popts search.ProjectOptions) ([]search.FileMatch, error) {
	pat, err := search.Compile(query, opts)
	if err != nil {
		return nil, err
	}
	ed.metrics.RecordSearch()
	proj := search.NewProject(ed.fsys)
	var all []search.FileMatch
	for _, root := range ed.ws.Roots() {
		matches, err := proj.Search(ctx, root, pat, popts)
		if err != nil {
			return all, err
		}
		all = append(all, matches...)
	}
	return all, nil
}

// FuzzyFiles ranks workspace file paths against a fuzzy query. Paths are
// relative to their root.
func (ed *Editor) FuzzyFiles(query string) ([]search.PathMatch, error) {
	var paths []string
	for _, root := range ed.ws.Roots() {
		err := ed.fsys.Walk(root, func(path string, info vfs.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.Dir {
				if skipDir(info.Name) {
					return vfs.SkipDir
				}
				return nil
			}
			if rel, err := ed.ws.Rel(path); err == nil {
				paths = append(paths, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return search.FuzzyPaths(query, paths), nil
}

func skipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	return name == "node_modules" || name == "vendor" || name == "__pycache__"
}

// ExternalChanges returns the open paths whose files changed on disk
// since they were loaded or last saved, sorted.
func (ed *Editor) ExternalChanges() []string {
	ed.mu.Lock()
	defer ed.mu.Unlock()
	paths := make([]string, 0, len(ed.external))
	for p := range ed.external {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ExternallyModified reports whether the open buffer's file changed on
// disk.
func (ed *Editor) ExternallyModified(path string) bool {
	buf, ok := ed.store.Get(path)
	if !ok {
		return false
	}
	ed.mu.Lock()
	defer ed.mu.Unlock()
	_, flagged := ed.external[buf.Path()]
	return flagged
}

func (ed *Editor) clearExternal(abs string) {
	ed.mu.Lock()
	delete(ed.external, abs)
	ed.mu.Unlock()
}

// watchLoop flags open buffers when their files change on disk. It never
// reloads; the caller decides what to do with a flagged buffer.
func (ed *Editor) watchLoop() {
	defer ed.wg.Done()
	for {
		select {
		case <-ed.done:
			return
		case ev := <-ed.watch.Events():
			ed.observeExternal(ev)
		case err := <-ed.watch.Errors():
			ed.log.WithComponent("watcher").Warn("%v", err)
		}
	}
}

func (ed *Editor) observeExternal(ev watcher.Event) {
	buf, ok := ed.store.Get(ev.Path)
	if !ok {
		return
	}
	// A write we just did ourselves shows up here too; the recorded disk
	// state filters it out.
	if ev.Op == watcher.OpWrite {
		info, err := ed.fsys.Stat(buf.Path())
		if err == nil && !buf.ExternallyModified(info) {
			return
		}
	}
	ed.metrics.RecordExternalEvent()
	ed.mu.Lock()
	ed.external[buf.Path()] |= ev.Op
	ed.mu.Unlock()
	ed.log.WithComponent("watcher").Info("%s changed on disk (%s)", buf.Path(), ev.Op)
}

// Shutdown persists session state and stops the background goroutines.
// Dirty buffers are left open in memory and logged; Shutdown never
// discards unsaved work.
func (ed *Editor) Shutdown() {
	ed.mu.Lock()
	if ed.closed {
		ed.mu.Unlock()
		return
	}
	ed.closed = true
	views := make([]*view, 0, len(ed.views))
	for _, v := range ed.views {
		views = append(views, v)
	}
	ed.mu.Unlock()

	for _, v := range views {
		ed.recordSession(v.buf)
	}
	if ed.sess != nil {
		if err := ed.sess.Save(); err != nil {
			ed.log.Error("session save: %v", err)
		}
	}
	for _, buf := range ed.store.DirtyBuffers() {
		ed.log.Warn("unsaved changes in %s", buf.Path())
	}

	if err := ed.watch.Close(); err != nil {
		ed.log.Warn("watcher close: %v", err)
	}
	close(ed.done)
	for _, v := range views {
		if v.sched != nil {
			v.sched.Close()
		}
	}
	ed.wg.Wait()

	snap := ed.metrics.Snapshot()
	ed.log.Info("shutdown: %d opens, %d saves, %d edits, %d parses (avg %.2fms)",
		snap.Opens, snap.Saves, snap.Edits, snap.Parses, snap.AvgParseMs())
}

// timedProvider wraps a provider to record parse timing.
type timedProvider struct {
	inner   syntax.Provider
	metrics *Metrics
}

func (t timedProvider) Highlight(ctx context.Context, req syntax.Request) ([]syntax.Span, error) {
	timer := StartTimer()
	spans, err := t.inner.Highlight(ctx, req)
	t.metrics.RecordParse(timer.Elapsed(), err)
	return spans, err
}

// Close forwards resource release to the wrapped provider.
func (t timedProvider) Close() {
	if c, ok := t.inner.(interface{ Close() }); ok {
		c.Close()
	}
}
