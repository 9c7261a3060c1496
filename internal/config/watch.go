package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce groups bursts of file events into one reload.
const DefaultDebounce = 200 * time.Millisecond

// ErrNoPath is returned by Watch for a loader without a file.
var ErrNoPath = errors.New("no config file to watch")

type watchOptions struct {
	logger   zerolog.Logger
	debounce time.Duration
}

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

// WithWatchLogger sets the watcher's logger.
func WithWatchLogger(l zerolog.Logger) WatchOption {
	return func(o *watchOptions) {
		o.logger = l
	}
}

// WithDebounce sets the debounce window.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d >= 0 {
			o.debounce = d
		}
	}
}

// Watch reloads the loader's file whenever it changes and passes each valid
// result to fn. Invalid files are logged and skipped. Watch blocks until ctx
// is done and then returns nil.
//
// The parent directory is watched so editors that replace the file by
// rename are picked up.
func Watch(ctx context.Context, l *Loader, fn func(Config), opts ...WatchOption) error {
	o := watchOptions{logger: zerolog.Nop(), debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(&o)
	}
	if l.Path() == "" {
		return ErrNoPath
	}

	target, err := filepath.Abs(l.Path())
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	o.logger.Info().Str("event", "config.watcher_started").Str("path", target).Msg("watching config file")

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	reload := func() {
		cfg, err := l.Load()
		if err != nil {
			o.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("config reload failed, keeping current settings")
			return
		}
		o.logger.Info().Str("event", "config.reload_success").Msg("configuration reloaded")
		fn(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			o.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			o.logger.Debug().Str("event", "config.file_changed").Str("op", ev.Op.String()).Msg("config file changed")
			if o.debounce == 0 {
				reload()
				continue
			}
			timer.Reset(o.debounce)

		case <-timer.C:
			reload()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			o.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("config watcher error")
		}
	}
}
