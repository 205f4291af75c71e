// Package watcher reports external file system changes to open buffers.
//
// Events are debounced per path: an editor or build tool rewriting a
// file produces a burst of notifications, and the buffer manager only
// needs one "this path changed" signal per burst to run its external
// modification check.
package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

var (
	// ErrClosed reports use after Close.
	ErrClosed = errors.New("watcher closed")

	// ErrNotWatching reports an Unwatch for a path never watched.
	ErrNotWatching = errors.New("path not watched")
)

// DefaultDebounce is the coalescing window for change bursts.
const DefaultDebounce = 100 * time.Millisecond

// Op is the kind of change observed, possibly several OR-ed together
// when a burst coalesced.
type Op uint8

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) Has(o Op) bool { return op&o != 0 }

func (op Op) String() string {
	names := []struct {
		op   Op
		name string
	}{
		{OpCreate, "create"},
		{OpWrite, "write"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
	}
	out := ""
	for _, n := range names {
		if op.Has(n.op) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// Event is one debounced change notification.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Watcher wraps fsnotify with per-path debouncing. Paths are watched
// individually; the buffer manager watches exactly its open files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	events   chan Event
	errs     chan error

	mu      sync.Mutex
	paths   map[string]bool
	pending map[string]*pending
	closed  bool

	done chan struct{}
}

type pending struct {
	op    Op
	timer *time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides the coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New starts a watcher. The caller must drain Events and Errors.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		debounce: DefaultDebounce,
		events:   make(chan Event, 64),
		errs:     make(chan error, 16),
		paths:    make(map[string]bool),
		pending:  make(map[string]*pending),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w, nil
}

// Events delivers debounced change notifications.
func (w *Watcher) Events() <-chan Event { return w.events }

// Errors delivers watch backend errors.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Watch adds a file or directory. Watching an already-watched path is a
// no-op, so the buffer manager can call it on every open.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if w.paths[abs] {
		return nil
	}
	if err := w.fsw.Add(abs); err != nil {
		return err
	}
	w.paths[abs] = true
	return nil
}

// Unwatch removes a path.
func (w *Watcher) Unwatch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if !w.paths[abs] {
		return ErrNotWatching
	}
	delete(w.paths, abs)
	if p, ok := w.pending[abs]; ok {
		p.timer.Stop()
		delete(w.pending, abs)
	}
	return w.fsw.Remove(abs)
}

// IsWatching reports whether path is currently watched.
func (w *Watcher) IsWatching(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paths[abs]
}

// Close stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	// The event channels stay open: a late debounce timer may still be
	// in flight, and consumers select with their own lifecycle anyway.
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.observe(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}

func (w *Watcher) observe(ev fsnotify.Event) {
	op := mapOp(ev.Op)
	if op == 0 {
		return
	}
	path := ev.Name

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if p, ok := w.pending[path]; ok {
		p.op |= op
		p.timer.Reset(w.debounce)
		return
	}
	p := &pending{op: op}
	p.timer = time.AfterFunc(w.debounce, func() { w.flush(path) })
	w.pending[path] = p
}

func (w *Watcher) flush(path string) {
	w.mu.Lock()
	p, ok := w.pending[path]
	if ok {
		delete(w.pending, path)
	}
	closed := w.closed
	w.mu.Unlock()
	if !ok || closed {
		return
	}

	ev := Event{Path: path, Op: p.op, Time: time.Now()}
	select {
	case w.events <- ev:
	default:
		// Consumer is not draining; dropping is better than blocking
		// the notify loop.
	}
}

func mapOp(op fsnotify.Op) Op {
	var out Op
	if op.Has(fsnotify.Create) {
		out |= OpCreate
	}
	if op.Has(fsnotify.Write) {
		out |= OpWrite
	}
	if op.Has(fsnotify.Remove) {
		out |= OpRemove
	}
	if op.Has(fsnotify.Rename) {
		out |= OpRename
	}
	return out
}
