// Package app wires the multiwin components together and runs them.
package app

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/dshills/multiwin/internal/config"
	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/lifecycle"
	xlog "github.com/dshills/multiwin/internal/log"
	"github.com/dshills/multiwin/internal/metrics"
	"github.com/dshills/multiwin/internal/trace"
	"github.com/dshills/multiwin/internal/ui"
	"github.com/dshills/multiwin/internal/uithread"
	"github.com/dshills/multiwin/internal/window"
)

// Application owns every component and the main window.
type Application struct {
	cfg    config.Config
	logger zerolog.Logger

	// Injected
	registerer     prometheus.Registerer
	tracerProvider oteltrace.TracerProvider
	screen         tcell.Screen
	configPath     string
	exit           func(int)
	seed           uint64

	// Core infrastructure
	metrics *metrics.Metrics
	bus     event.Bus
	loop    *uithread.Loop
	faults  *lifecycle.Faults
	scope   *event.Scope

	// Trace pipeline
	history   *trace.History
	producer  *trace.Producer
	formatter *trace.LuaFormatter

	// Windows
	coordinator *lifecycle.Coordinator
	page        *window.MainPage
	main        *window.MainWindow
	terminal    *ui.Terminal

	metricsServer *http.Server

	running         atomic.Bool
	producerStarted atomic.Bool
	closed          chan struct{}
	closeOnce       sync.Once
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the base logger. Components log with a "component" field.
func WithLogger(l zerolog.Logger) Option {
	return func(app *Application) {
		app.logger = l
	}
}

// WithRegisterer sets where metrics are registered.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(app *Application) {
		app.registerer = reg
	}
}

// WithTracerProvider sets the tracer provider for shutdown spans.
func WithTracerProvider(tp oteltrace.TracerProvider) Option {
	return func(app *Application) {
		app.tracerProvider = tp
	}
}

// WithScreen sets the terminal screen. Without it a real terminal is opened
// unless the UI is headless.
func WithScreen(s tcell.Screen) Option {
	return func(app *Application) {
		app.screen = s
	}
}

// WithConfigPath enables live reload of the given file.
func WithConfigPath(path string) Option {
	return func(app *Application) {
		app.configPath = path
	}
}

// WithExit replaces os.Exit for fault handling.
func WithExit(exit func(int)) Option {
	return func(app *Application) {
		app.exit = exit
	}
}

// WithSeed fixes the producer's interval randomness.
func WithSeed(seed uint64) Option {
	return func(app *Application) {
		app.seed = seed
	}
}

// New builds the application. Nothing runs until Run.
func New(cfg config.Config, opts ...Option) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		logger: xlog.Base(),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(app)
	}

	if err := newBootstrapper(app).bootstrap(); err != nil {
		app.release()
		return nil, err
	}
	return app, nil
}

// Close raises the main window close, as a window manager or signal
// would. The shutdown sequence decides when the window really closes.
func (app *Application) Close() {
	if !app.loop.Post(app.main.Close) {
		app.logger.Debug().Str("event", "app.close_ignored").Msg("close requested after ui loop stopped")
	}
}

// Done is closed once the main window has closed.
func (app *Application) Done() <-chan struct{} {
	return app.closed
}

// Config returns the configuration the application was built with.
func (app *Application) Config() config.Config { return app.cfg }

// Bus returns the message bus.
func (app *Application) Bus() event.Bus { return app.bus }

// Loop returns the UI dispatcher.
func (app *Application) Loop() *uithread.Loop { return app.loop }

// Producer returns the trace producer.
func (app *Application) Producer() *trace.Producer { return app.producer }

// Coordinator returns the shutdown coordinator.
func (app *Application) Coordinator() *lifecycle.Coordinator { return app.coordinator }

// MainWindow returns the main window.
func (app *Application) MainWindow() *window.MainWindow { return app.main }

// Page returns the main page. Use it on the UI goroutine only.
func (app *Application) Page() *window.MainPage { return app.page }

// Metrics returns the metrics collectors.
func (app *Application) Metrics() *metrics.Metrics { return app.metrics }

func (app *Application) component(name string) zerolog.Logger {
	return app.logger.With().Str(xlog.FieldComponent, name).Logger()
}

// snapshot builds the frontend view. It runs on the UI goroutine.
func (app *Application) snapshot() ui.Snapshot {
	snap := ui.Snapshot{
		Title:         app.main.Title(),
		ToggleOn:      app.page.StatusToggle.IsOn,
		ShutdownState: app.coordinator.State().String(),
		ProducerState: app.producer.State().String(),
		Emitted:       app.producer.Emitted(),
	}
	if w := app.page.StatusWindow(); w != nil && w.IsOpen() {
		snap.StatusOpen = true
		snap.StatusTitle = w.Title()
		snap.Lines = w.Lines()
	}
	return snap
}

func (app *Application) redraw() {
	if app.terminal != nil {
		app.terminal.Redraw()
	}
}

// keyActions binds frontend keys to the main page. Methods run on the UI
// goroutine.
type keyActions struct {
	app *Application
}

func (a keyActions) ToggleStatus() {
	page := a.app.page
	if err := page.SetToggle(context.Background(), !page.StatusToggle.IsOn); err != nil {
		a.app.logger.Warn().Err(err).Str("event", "app.toggle_failed").Msg("status toggle failed")
	}
}

func (a keyActions) Shutdown() {
	a.app.page.ShutdownButton()
}

func (a keyActions) Close() {
	a.app.main.Close()
}
