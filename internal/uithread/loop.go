package uithread

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/dshills/multiwin/internal/metrics"
)

// Dispatcher runs callbacks on the UI goroutine. Post never blocks and
// reports false if the callback was not accepted.
type Dispatcher interface {
	Post(fn func()) bool
}

// PanicHook receives a recovered callback panic. The fault handler installed
// by the application does not return.
type PanicHook func(value any, stack []byte)

// Loop is a single-goroutine FIFO executor with an unbounded queue.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	stopped bool

	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool

	logger    zerolog.Logger
	metrics   *metrics.Metrics
	panicHook PanicHook

	posted   atomic.Uint64
	executed atomic.Uint64
	panicked atomic.Uint64
	rejected atomic.Uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the loop's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(loop *Loop) {
		loop.logger = l
	}
}

// WithMetrics records queue depth and panics in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(loop *Loop) {
		loop.metrics = m
	}
}

// WithPanicHook sets the hook called for a panicking callback.
func WithPanicHook(h PanicHook) Option {
	return func(loop *Loop) {
		loop.panicHook = h
	}
}

// New creates a loop. It does nothing until Run is called, but Post
// already queues.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn. It returns false if fn is nil or the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.rejected.Add(1)
		return false
	}
	l.queue = append(l.queue, fn)
	depth := len(l.queue)
	l.mu.Unlock()

	l.posted.Add(1)
	l.metrics.SetQueueDepth(depth)

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Invoke posts fn and waits for it to finish. It must not be called from
// the loop goroutine.
func (l *Loop) Invoke(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// The loop drains before closing done, so fn either ran or never will.
		select {
		case <-finished:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes callbacks until Stop is called or ctx is done. Callbacks
// already queued at that point still run; later Posts are rejected.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(l.done)

	l.logger.Debug().Str("event", "ui.loop_started").Msg("ui loop started")
	for {
		l.drain()

		select {
		case <-l.wake:
		case <-l.stopCh:
			l.shutdown()
			return nil
		case <-ctx.Done():
			l.shutdown()
			return nil
		}
	}
}

func (l *Loop) shutdown() {
	l.mu.Lock()
	l.stopped = true
	l.mu.Unlock()
	l.drain()
	l.logger.Debug().Str("event", "ui.loop_stopped").Uint64("executed", l.executed.Load()).Msg("ui loop stopped")
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return
		}
		fn := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		depth := len(l.queue)
		l.mu.Unlock()

		l.metrics.SetQueueDepth(depth)
		l.execute(fn)
	}
}

func (l *Loop) execute(fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		stack := debug.Stack()
		l.panicked.Add(1)
		l.metrics.IncUIPanic()
		l.logger.Error().
			Str("event", "ui.callback_panic").
			Interface("panic", r).
			Str("stack", string(stack)).
			Msg("ui callback panicked")
		if l.panicHook != nil {
			l.panicHook(r, stack)
		}
	}()

	fn()
	l.executed.Add(1)
}

// Stop asks Run to return after draining the queue. It is idempotent.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Stats is a snapshot of loop counters.
type Stats struct {
	Posted     uint64
	Executed   uint64
	Panicked   uint64
	Rejected   uint64
	QueueDepth int
}

// Stats returns the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	depth := len(l.queue)
	l.mu.Unlock()

	return Stats{
		Posted:     l.posted.Load(),
		Executed:   l.executed.Load(),
		Panicked:   l.panicked.Load(),
		Rejected:   l.rejected.Load(),
		QueueDepth: depth,
	}
}

// Inline runs callbacks immediately on the caller's goroutine.
type Inline struct{}

// Post runs fn now.
func (Inline) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	fn()
	return true
}
