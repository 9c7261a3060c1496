package window

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/event/messages"
	"github.com/dshills/multiwin/internal/uithread"
)

// DefaultStatusTitle is the status window's default title.
const DefaultStatusTitle = "Prosper Status"

// Bus is the part of the message bus windows need.
type Bus interface {
	event.Publisher
	event.Subscriber
}

// StatusWindow shows trace lines. It closes on CloseWindow or Shutdown and
// acknowledges with WindowClosed.
type StatusWindow struct {
	*Base

	bus      Bus
	ui       uithread.Dispatcher
	scope    *event.Scope
	lines    []string
	limit    int
	onChange func()
	loaded   bool
	// through is the newest Seq the loaded history covered.
	through uint64
}

// StatusOption configures a StatusWindow.
type StatusOption func(*StatusWindow)

// WithLineLimit caps the number of lines kept. Zero keeps everything.
func WithLineLimit(n int) StatusOption {
	return func(w *StatusWindow) {
		w.limit = n
	}
}

// WithOnChange sets a hook run on the UI goroutine after lines change.
func WithOnChange(fn func()) StatusOption {
	return func(w *StatusWindow) {
		w.onChange = fn
	}
}

// NewStatusWindow creates the window and subscribes it to CloseWindow and
// Shutdown. Both directives close it through the UI dispatcher.
func NewStatusWindow(bus Bus, ui uithread.Dispatcher, title string, logger zerolog.Logger, opts ...StatusOption) (*StatusWindow, error) {
	if title == "" {
		title = DefaultStatusTitle
	}
	id := NewID("status")
	w := &StatusWindow{
		Base:  NewBase(id, title, logger),
		bus:   bus,
		ui:    ui,
		scope: event.NewScope(bus, id),
	}
	for _, opt := range opts {
		opt(w)
	}

	if _, err := event.ScopeSubscribe(w.scope, func(context.Context, messages.CloseWindow) error {
		ui.Post(w.Close)
		return nil
	}); err != nil {
		_ = w.scope.Close()
		return nil, err
	}
	if _, err := event.ScopeSubscribe(w.scope, func(context.Context, messages.Shutdown) error {
		ui.Post(w.Close)
		return nil
	}); err != nil {
		_ = w.scope.Close()
		return nil, err
	}

	w.OnClosed(w.closed)
	return w, nil
}

// Load fills the window with the trace history and subscribes to new
// traces. Later calls do nothing.
func (w *StatusWindow) Load(ctx context.Context) error {
	if w.loaded || !w.IsOpen() {
		return nil
	}
	w.loaded = true

	// Subscribe before asking for history so no trace falls between the
	// two. Traces arrive on the producer goroutine; the posted appends run
	// after Load and skip what the history already covered.
	if _, err := event.ScopeSubscribe(w.scope, func(_ context.Context, m messages.Trace) error {
		w.ui.Post(func() {
			if !w.IsOpen() || (w.through > 0 && m.Seq <= w.through) {
				return
			}
			w.appendLine(m.Line)
			w.changed()
		})
		return nil
	}); err != nil {
		return err
	}

	replies, err := event.Request(ctx, w.bus, messages.NewTraceHistoryRequest())
	if err != nil {
		return err
	}
	for _, h := range replies {
		for _, line := range h.Lines {
			w.appendLine(line)
		}
		w.through = max(w.through, h.LastSeq)
	}
	w.changed()
	return nil
}

func (w *StatusWindow) appendLine(line string) {
	w.lines = append(w.lines, line)
	if w.limit > 0 && len(w.lines) > w.limit {
		w.lines = append(w.lines[:0:0], w.lines[len(w.lines)-w.limit:]...)
	}
}

func (w *StatusWindow) changed() {
	if w.onChange != nil {
		w.onChange()
	}
}

func (w *StatusWindow) closed() {
	_ = w.scope.Close()
	if err := w.bus.Publish(context.Background(), messages.WindowClosed{Value: true, WindowID: w.ID()}); err != nil {
		w.logger.Warn().Err(err).Str("event", "window.ack_failed").Msg("could not acknowledge close")
	}
}

// Lines returns a copy of the displayed lines.
func (w *StatusWindow) Lines() []string {
	out := make([]string, len(w.lines))
	copy(out, w.lines)
	return out
}

// Owner returns the window's bus owner token.
func (w *StatusWindow) Owner() *event.Owner {
	return w.scope.Owner()
}
