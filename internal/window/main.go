package window

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dshills/multiwin/internal/event/messages"
	"github.com/dshills/multiwin/internal/uithread"
)

// DefaultMainTitle is the main window's default title.
const DefaultMainTitle = "Prosper"

// Coordinator is the part of the shutdown coordinator the main page uses.
type Coordinator interface {
	Track(windowID string)
	RequestShutdown()
}

// Toggle is a two-state switch.
type Toggle struct {
	IsOn bool
}

// PageConfig configures a MainPage.
type PageConfig struct {
	Bus         Bus
	UI          uithread.Dispatcher
	Coordinator Coordinator
	Logger      zerolog.Logger
	StatusTitle string
	LineLimit   int
	// OnChange runs on the UI goroutine whenever page or status content changes.
	OnChange func()
}

// MainPage holds the main window's controls.
type MainPage struct {
	StatusToggle Toggle
	// SettingsStatusWindow is set while a status window opened by the
	// toggle is alive.
	SettingsStatusWindow bool

	cfg    PageConfig
	status *StatusWindow
}

// NewMainPage creates a page with the toggle off.
func NewMainPage(cfg PageConfig) *MainPage {
	return &MainPage{cfg: cfg}
}

// SetToggle flips the status toggle. Turning it on opens, tracks and loads
// a status window if none is open. Turning it off broadcasts CloseWindow;
// the flag is cleared when the window acknowledges.
func (p *MainPage) SetToggle(ctx context.Context, on bool) error {
	p.StatusToggle.IsOn = on
	defer p.changed()

	switch {
	case on && !p.SettingsStatusWindow:
		w, err := NewStatusWindow(p.cfg.Bus, p.cfg.UI, p.cfg.StatusTitle, p.cfg.Logger,
			WithLineLimit(p.cfg.LineLimit),
			WithOnChange(p.changed),
		)
		if err != nil {
			p.StatusToggle.IsOn = false
			return err
		}
		if p.cfg.Coordinator != nil {
			p.cfg.Coordinator.Track(w.ID())
		}
		p.status = w
		p.SettingsStatusWindow = true
		if err := w.Load(ctx); err != nil {
			p.cfg.Logger.Warn().Err(err).Str("event", "window.load_failed").Msg("status history unavailable")
		}
		w.Activate()
	case !on && p.SettingsStatusWindow:
		return p.cfg.Bus.Publish(ctx, messages.CloseWindow{Value: true})
	}
	return nil
}

// StatusWindowClosed clears the toggle after a status window acknowledged
// its close. The application calls it on the UI goroutine.
func (p *MainPage) StatusWindowClosed(windowID string) {
	if p.status != nil && p.status.ID() != windowID {
		return
	}
	p.SettingsStatusWindow = false
	p.StatusToggle.IsOn = false
	p.status = nil
	p.changed()
}

// ShutdownButton starts the application shutdown.
func (p *MainPage) ShutdownButton() {
	if p.cfg.Coordinator != nil {
		p.cfg.Coordinator.RequestShutdown()
	}
}

// StatusWindow returns the open status window, or nil.
func (p *MainPage) StatusWindow() *StatusWindow {
	return p.status
}

func (p *MainPage) changed() {
	if p.cfg.OnChange != nil {
		p.cfg.OnChange()
	}
}

// MainWindow hosts the MainPage. Its closing hook asks the coordinator
// whether the close may proceed.
type MainWindow struct {
	*Base
	Page *MainPage
}

// NewMainWindow creates the main window. veto is called on every close
// attempt; returning true cancels it.
func NewMainWindow(title string, page *MainPage, veto func() bool, logger zerolog.Logger) *MainWindow {
	if title == "" {
		title = DefaultMainTitle
	}
	w := &MainWindow{
		Base: NewBase(NewID("main"), title, logger),
		Page: page,
	}
	if veto != nil {
		w.OnClosing(func(e *ClosingEvent) {
			if veto() {
				e.Cancel()
			}
		})
	}
	return w
}
