package lifecycle

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/event/messages"
	"github.com/dshills/multiwin/internal/metrics"
	"github.com/dshills/multiwin/internal/uithread"
)

// DefaultWindowTimeout bounds the wait for window acknowledgements.
const DefaultWindowTimeout = 5 * time.Second

const tracerName = "github.com/dshills/multiwin/internal/lifecycle"

// Task is a background task the coordinator waits for.
type Task interface {
	Done() <-chan struct{}
}

// starter is implemented by tasks that may not have been started yet. An
// unstarted task never finishes, so it is treated like no task at all.
type starter interface {
	Started() bool
}

// Closer is the main window. Close must run on the UI goroutine and raises
// the window's closing hook, which calls OnClosing.
type Closer interface {
	Close()
}

// Bus is the part of the message bus the coordinator needs.
type Bus interface {
	event.Publisher
	event.Subscriber
}

// Coordinator drives the shutdown state machine. OnClosing, RequestShutdown
// and the internal continuations run on the UI goroutine; Track and the
// WindowClosed handler may run anywhere.
type Coordinator struct {
	bus           Bus
	ui            uithread.Dispatcher
	scope         *event.Scope
	logger        zerolog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	windowTimeout time.Duration

	mu          sync.Mutex
	state       State
	producer    Task
	main        Closer
	tracked     map[string]struct{}
	timer       *time.Timer
	span        trace.Span
	requestedAt time.Time

	done      chan struct{}
	quit      chan struct{}
	closeOnce sync.Once
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = l
	}
}

// WithMetrics records state changes and shutdown duration in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTracerProvider sets where the lifecycle.shutdown span goes.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithWindowTimeout bounds the wait for window acknowledgements. Zero
// waits forever.
func WithWindowTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.windowTimeout = d
		}
	}
}

// New creates a coordinator in StateIdle.
func New(bus Bus, ui uithread.Dispatcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		bus:           bus,
		ui:            ui,
		scope:         event.NewScope(bus, "lifecycle.coordinator"),
		logger:        zerolog.Nop(),
		tracer:        otel.Tracer(tracerName),
		windowTimeout: DefaultWindowTimeout,
		tracked:       make(map[string]struct{}),
		done:          make(chan struct{}),
		quit:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.metrics.SetShutdownState(int(StateIdle))
	return c
}

// Start subscribes to window acknowledgements.
func (c *Coordinator) Start() error {
	_, err := event.ScopeSubscribe(c.scope, c.onWindowClosed)
	return err
}

// SetProducer sets the task awaited before windows. nil means none.
func (c *Coordinator) SetProducer(t Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producer = t
}

// SetMainWindow sets the window whose close is vetoed and later released.
func (c *Coordinator) SetMainWindow(w Closer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.main = w
}

// Track adds a window that must acknowledge before shutdown completes.
func (c *Coordinator) Track(windowID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsTerminal() {
		return
	}
	c.tracked[windowID] = struct{}{}
	c.logger.Debug().Str("event", "lifecycle.track").Str("window_id", windowID).Msg("window tracked")
}

// Pending returns the tracked windows that have not acknowledged, sorted.
func (c *Coordinator) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *Coordinator) pendingLocked() []string {
	ids := make([]string, 0, len(c.tracked))
	for id := range c.tracked {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// OnClosing is the main window's closing hook. It returns true to veto
// the close. The first call starts the shutdown sequence; calls while it
// runs are vetoed; once Complete the close is allowed.
func (c *Coordinator) OnClosing() bool {
	c.mu.Lock()
	switch c.state {
	case StateComplete:
		c.mu.Unlock()
		return false
	case StateIdle:
	default:
		state := c.state
		c.mu.Unlock()
		c.logger.Info().
			Str("event", "lifecycle.close_vetoed").
			Str("state", state.String()).
			Msg("close requested while shutting down")
		return true
	}

	_, c.span = c.tracer.Start(context.Background(), "lifecycle.shutdown")
	c.requestedAt = time.Now()
	_ = c.transitionLocked(StateRequested)
	c.mu.Unlock()

	if err := c.bus.Publish(context.Background(), messages.Shutdown{}); err != nil {
		c.logger.Error().Err(err).Str("event", "lifecycle.broadcast_failed").Msg("shutdown broadcast failed")
	}
	return c.advance()
}

// RequestShutdown raises the main window's close on the UI goroutine.
func (c *Coordinator) RequestShutdown() {
	c.mu.Lock()
	main := c.main
	state := c.state
	c.mu.Unlock()

	c.logger.Info().Str("event", "lifecycle.shutdown_requested").Str("state", state.String()).Msg("shutdown requested")
	if main == nil {
		c.ui.Post(func() { c.OnClosing() })
		return
	}
	c.ui.Post(main.Close)
}

func (c *Coordinator) advance() bool {
	c.mu.Lock()
	task := c.producer
	if task != nil && started(task) && !finished(task) {
		_ = c.transitionLocked(StateAwaitingProducer)
		c.mu.Unlock()
		go c.awaitProducer(task)
		return true
	}

	c.producer = nil
	_ = c.transitionLocked(StateAwaitingWindows)
	if len(c.tracked) > 0 {
		c.armWindowTimerLocked()
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	// Nothing to wait for: let the current close go through.
	c.complete(false)
	return false
}

func started(t Task) bool {
	s, ok := t.(starter)
	return !ok || s.Started()
}

func finished(t Task) bool {
	select {
	case <-t.Done():
		return true
	default:
		return false
	}
}

func (c *Coordinator) awaitProducer(task Task) {
	select {
	case <-task.Done():
	case <-c.quit:
		return
	}
	c.logger.Debug().Str("event", "lifecycle.producer_stopped").Msg("producer stopped")
	c.post(c.producerStopped)
}

func (c *Coordinator) producerStopped() {
	c.mu.Lock()
	if c.state != StateAwaitingProducer {
		c.mu.Unlock()
		return
	}
	c.producer = nil
	_ = c.transitionLocked(StateAwaitingWindows)
	if len(c.tracked) > 0 {
		c.armWindowTimerLocked()
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.complete(true)
}

func (c *Coordinator) onWindowClosed(_ context.Context, m messages.WindowClosed) error {
	c.mu.Lock()
	_, known := c.tracked[m.WindowID]
	delete(c.tracked, m.WindowID)
	ready := known && c.state == StateAwaitingWindows && len(c.tracked) == 0
	remaining := len(c.tracked)
	c.mu.Unlock()

	c.logger.Debug().
		Str("event", "lifecycle.window_ack").
		Str("window_id", m.WindowID).
		Bool("tracked", known).
		Int("remaining", remaining).
		Msg("window acknowledged close")

	if ready {
		c.post(func() { c.complete(true) })
	}
	return nil
}

func (c *Coordinator) armWindowTimerLocked() {
	c.logger.Info().
		Str("event", "lifecycle.awaiting_windows").
		Strs("pending", c.pendingLocked()).
		Msg("waiting for windows to close")
	if c.windowTimeout <= 0 {
		return
	}
	c.timer = time.AfterFunc(c.windowTimeout, func() {
		c.post(c.windowsTimedOut)
	})
}

func (c *Coordinator) windowsTimedOut() {
	c.mu.Lock()
	if c.state != StateAwaitingWindows {
		c.mu.Unlock()
		return
	}
	pending := c.pendingLocked()
	clear(c.tracked)
	if c.span != nil {
		c.span.AddEvent("window_timeout", trace.WithAttributes(attribute.StringSlice("pending_windows", pending)))
		c.span.SetStatus(codes.Error, "windows did not acknowledge close")
	}
	c.mu.Unlock()

	c.logger.Warn().
		Str("event", "lifecycle.window_timeout").
		Strs("pending", pending).
		Dur("timeout", c.windowTimeout).
		Msg("windows did not acknowledge close, continuing")
	c.complete(true)
}

// complete finishes the sequence. With release set it closes the main
// window, whose hook now allows the close.
func (c *Coordinator) complete(release bool) {
	c.mu.Lock()
	if c.state != StateAwaitingWindows {
		c.mu.Unlock()
		return
	}
	_ = c.transitionLocked(StateComplete)
	if c.timer != nil {
		c.timer.Stop()
	}
	span := c.span
	elapsed := time.Since(c.requestedAt)
	main := c.main
	c.mu.Unlock()

	_ = c.scope.Close()
	c.metrics.ObserveShutdown(elapsed)
	if span != nil {
		span.End()
	}
	close(c.done)

	c.logger.Info().
		Str("event", "lifecycle.complete").
		Dur("elapsed", elapsed).
		Msg("shutdown complete")

	if release && main != nil {
		c.post(main.Close)
	}
}

// post runs fn on the UI goroutine, or inline if the loop is gone.
func (c *Coordinator) post(fn func()) {
	if !c.ui.Post(fn) {
		c.logger.Warn().Str("event", "lifecycle.post_rejected").Msg("ui dispatcher rejected callback, running inline")
		fn()
	}
}

func (c *Coordinator) transitionLocked(to State) error {
	from := c.state
	if !CanTransition(from, to) {
		err := &TransitionError{From: from, To: to}
		c.logger.Error().Err(err).Msg("rejected shutdown transition")
		return err
	}
	c.state = to
	c.metrics.SetShutdownState(int(to))
	if c.span != nil {
		c.span.AddEvent("transition", trace.WithAttributes(
			attribute.String("from", from.String()),
			attribute.String("to", to.String()),
		))
	}
	c.logger.Info().
		Str("event", "lifecycle.transition").
		Str("old_state", from.String()).
		Str("new_state", to.String()).
		Msg("shutdown state changed")
	return nil
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed when the state reaches Complete.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until Complete or ctx is done.
func (c *Coordinator) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close abandons any wait in progress and releases the bus subscription.
// It does not complete the state machine.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
		c.mu.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		c.mu.Unlock()
		_ = c.scope.Close()
	})
	return nil
}
