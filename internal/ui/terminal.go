package ui

import (
	"context"
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/dshills/multiwin/internal/uithread"
)

// Snapshot is what the frontend draws. It is built on the UI goroutine.
type Snapshot struct {
	Title         string
	ToggleOn      bool
	ShutdownState string
	ProducerState string
	Emitted       uint64
	StatusOpen    bool
	StatusTitle   string
	Lines         []string
}

// Actions are the operations bound to keys. They run on the UI goroutine.
type Actions interface {
	ToggleStatus()
	Shutdown()
	Close()
}

// Terminal drives a tcell screen.
type Terminal struct {
	screen   tcell.Screen
	ui       uithread.Dispatcher
	actions  Actions
	snapshot func() Snapshot
	logger   zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Terminal) {
		t.logger = l
	}
}

// NewScreen creates the real terminal screen.
func NewScreen() (tcell.Screen, error) {
	return tcell.NewScreen()
}

// New creates a frontend on screen. snapshot is called on the UI goroutine.
func New(screen tcell.Screen, ui uithread.Dispatcher, actions Actions, snapshot func() Snapshot, opts ...Option) *Terminal {
	t := &Terminal{
		screen:   screen,
		ui:       ui,
		actions:  actions,
		snapshot: snapshot,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Init initializes the screen.
func (t *Terminal) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	t.screen.HideCursor()
	return nil
}

// Run polls input until Close is called or ctx is done.
func (t *Terminal) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, t.Close)
	defer stop()

	t.ui.Post(t.Redraw)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return nil
		}
		t.handle(ev)
	}
}

func (t *Terminal) handle(ev tcell.Event) {
	switch e := ev.(type) {
	case *tcell.EventKey:
		if fn := t.action(e); fn != nil {
			t.ui.Post(fn)
		}
	case *tcell.EventResize:
		t.mu.Lock()
		if !t.closed {
			t.screen.Sync()
		}
		t.mu.Unlock()
		t.ui.Post(t.Redraw)
	}
}

func (t *Terminal) action(e *tcell.EventKey) func() {
	switch e.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return t.actions.Close
	case tcell.KeyRune:
		switch e.Rune() {
		case 's', 'S':
			return t.actions.ToggleStatus
		case 'x', 'X':
			return t.actions.Shutdown
		case 'q', 'Q':
			return t.actions.Close
		}
	}
	return nil
}

// Close restores the terminal and ends Run. It is idempotent.
func (t *Terminal) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	t.screen.Fini()
	t.logger.Debug().Str("event", "ui.closed").Msg("terminal closed")
}

// Redraw draws the current snapshot. Call it on the UI goroutine.
func (t *Terminal) Redraw() {
	snap := t.snapshot()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	draw(t.screen, snap)
	t.screen.Show()
}
