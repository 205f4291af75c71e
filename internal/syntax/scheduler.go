package syntax

import (
	"context"
	"sync"
	"time"
)

// DefaultParseTimeout bounds a single highlight pass. A pathological file
// that cannot parse in time degrades to plain text instead of stalling
// the result loop.
const DefaultParseTimeout = 2 * time.Second

// Provider turns a snapshot into highlight spans. Implementations are
// called from a single goroutine per Scheduler and may keep state between
// calls, which is how incremental parsing works.
type Provider interface {
	Highlight(ctx context.Context, req Request) ([]Span, error)
}

// Scheduler runs a Provider on its own goroutine and delivers results on
// a channel. Submitting while a parse is in flight does not queue: the
// pending request absorbs the new one, concatenating edit trails and
// keeping the newest snapshot, so the provider always sees a replayable
// history and at most one parse waits.
type Scheduler struct {
	provider Provider
	timeout  time.Duration
	results  chan Result

	mu      sync.Mutex
	pending *Request
	wake    chan struct{}
	closed  bool
	done    chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithParseTimeout overrides the per-parse deadline.
func WithParseTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewScheduler starts the worker goroutine. The caller owns the provider
// until Close returns, after which the scheduler has closed it if it
// implements io.Closer-style Close.
func NewScheduler(provider Provider, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		provider: provider,
		timeout:  DefaultParseTimeout,
		results:  make(chan Result, 1),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Results delivers completed highlight passes. The channel has capacity
// one; when the consumer lags, older unread results are replaced by newer
// ones, never the other way round.
func (s *Scheduler) Results() <-chan Result {
	return s.results
}

// Submit hands the worker a new request. It never blocks. When a request
// is already pending the two are merged: edit trails concatenate in
// order, the Full flag is sticky, and the newer snapshot and generation
// win.
func (s *Scheduler) Submit(req Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.pending != nil {
		req.Edits = append(s.pending.Edits, req.Edits...)
		req.Full = req.Full || s.pending.Full
	}
	s.pending = &req
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close stops the worker and waits for any in-flight parse to finish.
// Pending requests are discarded. If the provider has a Close method it
// is closed on the worker goroutine, after the last parse.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.pending = nil
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	<-s.done
	// The worker has exited, so nothing can send anymore and consumers
	// ranging over Results see it end.
	close(s.results)
}

func (s *Scheduler) run() {
	defer close(s.done)
	for {
		<-s.wake

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			if c, ok := s.provider.(interface{ Close() }); ok {
				c.Close()
			}
			return
		}
		req := s.pending
		s.pending = nil
		s.mu.Unlock()

		if req == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		spans, err := s.provider.Highlight(ctx, *req)
		cancel()

		res := Result{Generation: req.Generation, Spans: spans, Err: err}
		for {
			select {
			case s.results <- res:
			default:
				select {
				case <-s.results:
				default:
				}
				continue
			}
			break
		}
	}
}
