package event

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/multiwin/internal/metrics"
)

// BusOption configures a Bus.
type BusOption func(*busConfig)

type busConfig struct {
	logger         zerolog.Logger
	metrics        *metrics.Metrics
	errorHandler   ErrorHandler
	handlerTimeout time.Duration
}

func defaultBusConfig() busConfig {
	return busConfig{
		logger: zerolog.Nop(),
	}
}

// WithLogger sets the logger used to report handler failures.
func WithLogger(l zerolog.Logger) BusOption {
	return func(c *busConfig) {
		c.logger = l
	}
}

// WithMetrics records bus activity in m.
func WithMetrics(m *metrics.Metrics) BusOption {
	return func(c *busConfig) {
		c.metrics = m
	}
}

// WithErrorHandler sets a hook called for every isolated handler failure.
func WithErrorHandler(h ErrorHandler) BusOption {
	return func(c *busConfig) {
		c.errorHandler = h
	}
}

// WithHandlerTimeout bounds the context passed to each handler.
// Zero means no bound.
func WithHandlerTimeout(d time.Duration) BusOption {
	return func(c *busConfig) {
		if d >= 0 {
			c.handlerTimeout = d
		}
	}
}
