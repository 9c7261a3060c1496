package window

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ClosingEvent is passed to closing handlers, which may cancel the close.
type ClosingEvent struct {
	cancelled bool
}

// Cancel vetoes the close.
func (e *ClosingEvent) Cancel() {
	e.cancelled = true
}

// Cancelled reports whether a handler vetoed the close.
func (e *ClosingEvent) Cancelled() bool {
	return e.cancelled
}

// Base holds what every window has: identity, open state and the
// closing/closed hooks.
type Base struct {
	id     string
	title  string
	open   atomic.Bool
	active atomic.Bool
	logger zerolog.Logger

	closing []func(*ClosingEvent)
	closed  []func()
}

// NewID returns a fresh window ID with the given prefix.
func NewID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// NewBase creates an open, inactive window.
func NewBase(id, title string, logger zerolog.Logger) *Base {
	b := &Base{
		id:     id,
		title:  title,
		logger: logger.With().Str("window_id", id).Logger(),
	}
	b.open.Store(true)
	return b
}

// ID returns the window ID.
func (b *Base) ID() string { return b.id }

// Title returns the window title.
func (b *Base) Title() string { return b.title }

// IsOpen reports whether the window has not been closed.
func (b *Base) IsOpen() bool { return b.open.Load() }

// IsActive reports whether the window has been activated and is still open.
func (b *Base) IsActive() bool { return b.active.Load() && b.open.Load() }

// Activate shows the window.
func (b *Base) Activate() {
	if !b.open.Load() {
		return
	}
	b.active.Store(true)
	b.logger.Debug().Str("event", "window.activated").Msg("window activated")
}

// OnClosing adds a hook run before the window closes.
func (b *Base) OnClosing(h func(*ClosingEvent)) {
	b.closing = append(b.closing, h)
}

// OnClosed adds a hook run after the window closes.
func (b *Base) OnClosed(h func()) {
	b.closed = append(b.closed, h)
}

// Close runs the closing hooks and, unless one cancels, closes the window
// and runs the closed hooks. Closing a closed window does nothing.
func (b *Base) Close() {
	if !b.open.Load() {
		return
	}

	ev := &ClosingEvent{}
	for _, h := range b.closing {
		h(ev)
	}
	if ev.Cancelled() {
		b.logger.Debug().Str("event", "window.close_cancelled").Msg("close cancelled")
		return
	}

	if !b.open.CompareAndSwap(true, false) {
		return
	}
	b.active.Store(false)
	b.logger.Debug().Str("event", "window.closed").Msg("window closed")
	for _, h := range b.closed {
		h()
	}
}
