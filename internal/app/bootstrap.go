package app

import (
	"context"

	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/event/messages"
	"github.com/dshills/multiwin/internal/lifecycle"
	"github.com/dshills/multiwin/internal/metrics"
	"github.com/dshills/multiwin/internal/trace"
	"github.com/dshills/multiwin/internal/ui"
	"github.com/dshills/multiwin/internal/uithread"
	"github.com/dshills/multiwin/internal/window"
)

// bootstrapper initializes components in dependency order.
type bootstrapper struct {
	app       *Application
	initOrder []string
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{
		app:       app,
		initOrder: make([]string, 0, 8),
	}
}

// bootstrap runs every step. On failure the caller releases what was
// built so far.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"metrics", b.initMetrics},
		{"bus", b.initBus},
		{"ui loop", b.initLoop},
		{"trace", b.initTrace},
		{"coordinator", b.initCoordinator},
		{"windows", b.initWindows},
		{"terminal", b.initTerminal},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.app.logger.Error().Err(err).Str("event", "app.init_failed").Str("step", step.name).Strs("initialized", b.initOrder).Msg("bootstrap failed")
			return &InitError{Component: step.name, Err: err}
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	return nil
}

func (b *bootstrapper) initMetrics() error {
	app := b.app
	app.metrics = metrics.New(app.registerer)
	if app.cfg.Metrics.Addr != "" {
		app.metricsServer = app.metrics.NewServer(app.cfg.Metrics.Addr)
	}
	return nil
}

func (b *bootstrapper) initBus() error {
	app := b.app
	app.bus = event.NewBus(
		event.WithLogger(app.component("bus")),
		event.WithMetrics(app.metrics),
		event.WithHandlerTimeout(app.cfg.Bus.HandlerTimeout),
	)
	return nil
}

func (b *bootstrapper) initLoop() error {
	app := b.app
	app.faults = lifecycle.NewFaults(app.component("faults"),
		lifecycle.WithShutdown(app.faultShutdown),
		lifecycle.WithFaultTimeout(app.cfg.Shutdown.FaultTimeout),
		lifecycle.WithExit(app.exit),
	)
	app.loop = uithread.New(
		uithread.WithLogger(app.component("ui")),
		uithread.WithMetrics(app.metrics),
		uithread.WithPanicHook(app.faults.PanicHook("ui")),
	)
	return nil
}

func (b *bootstrapper) initTrace() error {
	app := b.app
	app.history = trace.NewHistory(app.cfg.Trace.HistoryLimit, app.component("trace.history"))
	if err := app.history.Attach(app.bus); err != nil {
		return err
	}

	opts := []trace.Option{
		trace.WithIntervals(app.cfg.Trace.MinInterval, app.cfg.Trace.MaxInterval),
		trace.WithLogger(app.component("trace.producer")),
		trace.WithMetrics(app.metrics),
		trace.WithFaultHandler(app.faults),
	}
	if app.seed != 0 {
		opts = append(opts, trace.WithSeed(app.seed))
	}
	if path := app.cfg.Trace.FormatScript; path != "" {
		f, err := trace.LoadLuaFormatter(path)
		if err != nil {
			return err
		}
		app.formatter = f
		opts = append(opts, trace.WithFormatter(f))
	}
	app.producer = trace.NewProducer(app.bus, opts...)
	return nil
}

func (b *bootstrapper) initCoordinator() error {
	app := b.app
	opts := []lifecycle.Option{
		lifecycle.WithLogger(app.component("lifecycle")),
		lifecycle.WithMetrics(app.metrics),
		lifecycle.WithWindowTimeout(app.cfg.Shutdown.WindowTimeout),
	}
	if app.tracerProvider != nil {
		opts = append(opts, lifecycle.WithTracerProvider(app.tracerProvider))
	}
	app.coordinator = lifecycle.New(app.bus, app.loop, opts...)
	return app.coordinator.Start()
}

func (b *bootstrapper) initWindows() error {
	app := b.app
	logger := app.component("window")

	app.page = window.NewMainPage(window.PageConfig{
		Bus:         app.bus,
		UI:          app.loop,
		Coordinator: app.coordinator,
		Logger:      logger,
		LineLimit:   app.cfg.Trace.HistoryLimit,
		OnChange:    app.redraw,
	})
	app.main = window.NewMainWindow(app.cfg.UI.Title, app.page, app.coordinator.OnClosing, logger)
	app.main.OnClosed(app.mainClosed)
	app.coordinator.SetMainWindow(app.main)

	// Keep the toggle in step with status windows closed by other means.
	app.scope = event.NewScope(app.bus, "app")
	_, err := event.ScopeSubscribe(app.scope, func(_ context.Context, m messages.WindowClosed) error {
		app.loop.Post(func() { app.page.StatusWindowClosed(m.WindowID) })
		return nil
	})
	return err
}

func (b *bootstrapper) initTerminal() error {
	app := b.app
	if app.cfg.UI.Headless {
		return nil
	}
	screen := app.screen
	if screen == nil {
		s, err := ui.NewScreen()
		if err != nil {
			return err
		}
		screen = s
	}
	term := ui.New(screen, app.loop, keyActions{app: app}, app.snapshot, ui.WithLogger(app.component("ui.terminal")))
	if err := term.Init(); err != nil {
		return err
	}
	app.terminal = term
	return nil
}
