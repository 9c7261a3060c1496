package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/multiwin/internal/config"
	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/event/messages"
	"github.com/dshills/multiwin/internal/lifecycle"
	"github.com/dshills/multiwin/internal/metrics"
)

const (
	refreshInterval = 250 * time.Millisecond
	serverGrace     = 2 * time.Second
)

// Run starts the UI loop, launches the producer and blocks until the main
// window has closed or ctx is done. A normal shutdown returns nil.
func (app *Application) Run(ctx context.Context) error {
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.faults.Recover("main")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.loop.Run(gctx)
	})
	app.loop.Post(func() { app.launched(gctx) })

	if app.terminal != nil {
		g.Go(func() error {
			return app.terminal.Run(gctx)
		})
		g.Go(func() error {
			app.refresh(gctx)
			return nil
		})
	}

	if srv := app.metricsServer; srv != nil {
		g.Go(func() error {
			app.logger.Info().Str("event", "app.metrics_listen").Str("addr", srv.Addr).Msg("serving metrics")
			if err := metrics.ListenAndServe(srv); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), serverGrace)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if app.configPath != "" {
		loader := config.NewLoader(app.configPath)
		g.Go(func() error {
			return config.Watch(gctx, loader, app.applyConfig, config.WithWatchLogger(app.component("config")))
		})
	}

	g.Go(func() error {
		select {
		case <-app.closed:
			app.logger.Info().Str("event", "app.main_closed").Msg("main window closed")
		case <-gctx.Done():
		}
		cancel()
		return nil
	})

	err := g.Wait()
	return errors.Join(err, app.teardown())
}

// launched runs on the UI goroutine once the loop is up.
func (app *Application) launched(ctx context.Context) {
	if state := app.coordinator.State(); state != lifecycle.StateIdle {
		app.logger.Info().
			Str("event", "app.launch_skipped").
			Str("shutdown_state", state.String()).
			Msg("shutdown already under way, producer not started")
		return
	}
	app.main.Activate()
	if err := app.producer.Start(ctx); err != nil {
		app.logger.Error().Err(err).Str("event", "app.producer_start_failed").Msg("trace producer did not start")
	} else {
		app.producerStarted.Store(true)
		app.coordinator.SetProducer(app.producer)
	}
	app.logger.Info().Str("event", "app.launched").Msg("application launched")
	app.redraw()
}

// refresh redraws periodically so producer and shutdown state stay current.
func (app *Application) refresh(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.loop.Post(app.redraw)
		}
	}
}

// mainClosed runs on the UI goroutine after the main window closed.
func (app *Application) mainClosed() {
	app.closeOnce.Do(func() { close(app.closed) })
}

func (app *Application) applyConfig(cfg config.Config) {
	if err := app.producer.SetIntervals(cfg.Trace.MinInterval, cfg.Trace.MaxInterval); err != nil {
		app.logger.Warn().Err(err).Str("event", "app.config_rejected").Msg("new trace intervals rejected")
		return
	}
	app.logger.Info().
		Str("event", "app.config_applied").
		Dur("min_interval", cfg.Trace.MinInterval).
		Dur("max_interval", cfg.Trace.MaxInterval).
		Msg("trace intervals updated")
}

// teardown stops what Run started. The producer normally stopped already
// on the Shutdown message; cancelling the run context covers the rest.
func (app *Application) teardown() error {
	var errs []error

	app.producer.Stop()
	if app.producerStarted.Load() {
		ctx, cancel := context.WithTimeout(context.Background(), app.cfg.Shutdown.FaultTimeout)
		if err := app.producer.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait for producer: %w", err))
		}
		cancel()
	}
	app.loop.Stop()
	app.release()

	app.logger.Info().
		Str("event", "app.stopped").
		Str("shutdown_state", app.coordinator.State().String()).
		Uint64("traces", app.producer.Emitted()).
		Msg("application stopped")
	return errors.Join(errs...)
}

// release frees resources. It tolerates a partially built application and
// repeated calls.
func (app *Application) release() {
	if app.terminal != nil {
		app.terminal.Close()
	}
	if app.coordinator != nil {
		_ = app.coordinator.Close()
	}
	if app.scope != nil {
		_ = app.scope.Close()
	}
	if app.history != nil {
		app.history.Detach()
	}
	if app.bus != nil {
		_ = app.bus.Close()
	}
	if app.formatter != nil {
		app.formatter.Close()
	}
}

// faultShutdown is the best-effort shutdown after an unrecovered fault. It
// may run on the UI goroutine, so it never waits on the UI loop.
func (app *Application) faultShutdown(ctx context.Context) error {
	var errs []error

	if err := app.bus.Publish(ctx, messages.Shutdown{}); err != nil && !errors.Is(err, event.ErrBusClosed) {
		errs = append(errs, fmt.Errorf("broadcast shutdown: %w", err))
	}
	app.producer.Stop()
	if app.producerStarted.Load() {
		if err := app.producer.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("wait for producer: %w", err))
		}
	}
	app.release()
	return errors.Join(errs...)
}
