package config

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Config is the complete application configuration.
type Config struct {
	Log      LogConfig
	Bus      BusConfig
	Trace    TraceConfig
	Shutdown ShutdownConfig
	Metrics  MetricsConfig
	UI       UIConfig
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// BusConfig configures the message bus.
type BusConfig struct {
	// HandlerTimeout bounds the context each handler receives. Zero means
	// no bound.
	HandlerTimeout time.Duration
}

// TraceConfig configures the background trace producer.
type TraceConfig struct {
	MinInterval  time.Duration
	MaxInterval  time.Duration
	HistoryLimit int
	// FormatScript is an optional Lua file that formats trace lines.
	FormatScript string
}

// ShutdownConfig bounds the shutdown waits.
type ShutdownConfig struct {
	// WindowTimeout bounds the wait for window acknowledgements. Zero waits
	// forever.
	WindowTimeout time.Duration
	FaultTimeout  time.Duration
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address. Empty disables the endpoint.
	Addr string
}

// UIConfig configures the frontend.
type UIConfig struct {
	Headless bool
	Title    string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Trace: TraceConfig{
			MinInterval:  0,
			MaxInterval:  2 * time.Second,
			HistoryLimit: 1000,
		},
		Shutdown: ShutdownConfig{
			WindowTimeout: 5 * time.Second,
			FaultTimeout:  3 * time.Second,
		},
		UI: UIConfig{
			Title: "Prosper",
		},
	}
}

// Validate checks every setting and returns all problems joined.
func (c Config) Validate() error {
	var errs []error
	add := func(field, msg string, value any) {
		errs = append(errs, &ValidationError{Field: field, Message: msg, Value: value})
	}

	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "unknown level", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		add("log.format", `must be "json" or "console"`, c.Log.Format)
	}

	if c.Bus.HandlerTimeout < 0 {
		add("bus.handler_timeout", "must not be negative", c.Bus.HandlerTimeout)
	}

	if c.Trace.MinInterval < 0 {
		add("trace.min_interval", "must not be negative", c.Trace.MinInterval)
	}
	if c.Trace.MaxInterval <= 0 {
		add("trace.max_interval", "must be positive", c.Trace.MaxInterval)
	}
	if c.Trace.MaxInterval < c.Trace.MinInterval {
		add("trace.max_interval", "must not be below trace.min_interval", c.Trace.MaxInterval)
	}
	if c.Trace.HistoryLimit < 0 {
		add("trace.history_limit", "must not be negative", c.Trace.HistoryLimit)
	}

	if c.Shutdown.WindowTimeout < 0 {
		add("shutdown.window_timeout", "must not be negative", c.Shutdown.WindowTimeout)
	}
	if c.Shutdown.FaultTimeout <= 0 {
		add("shutdown.fault_timeout", "must be positive", c.Shutdown.FaultTimeout)
	}

	return errors.Join(errs...)
}
