package lifecycle

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ExitFault is the process exit code after an unrecovered fault.
const ExitFault = 2

// DefaultFaultTimeout bounds the best-effort shutdown after a fault.
const DefaultFaultTimeout = 3 * time.Second

// Faults handles panics that nothing else recovered. Its hooks are
// terminal: they log, attempt a bounded graceful shutdown, then exit.
type Faults struct {
	logger   zerolog.Logger
	shutdown func(ctx context.Context) error
	timeout  time.Duration
	exit     func(code int)

	once sync.Once
}

// FaultsOption configures Faults.
type FaultsOption func(*Faults)

// WithShutdown sets the best-effort shutdown run before exiting. It must
// not depend on the goroutine that faulted.
func WithShutdown(fn func(ctx context.Context) error) FaultsOption {
	return func(f *Faults) {
		f.shutdown = fn
	}
}

// WithFaultTimeout bounds the shutdown attempt.
func WithFaultTimeout(d time.Duration) FaultsOption {
	return func(f *Faults) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithExit replaces os.Exit.
func WithExit(exit func(code int)) FaultsOption {
	return func(f *Faults) {
		if exit != nil {
			f.exit = exit
		}
	}
}

// NewFaults creates the fault hooks.
func NewFaults(logger zerolog.Logger, opts ...FaultsOption) *Faults {
	f := &Faults{
		logger:  logger,
		timeout: DefaultFaultTimeout,
		exit:    os.Exit,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Recover must be deferred directly:
//
//	defer faults.Recover("main")
func (f *Faults) Recover(source string) {
	if r := recover(); r != nil {
		f.fatal(source, r, debug.Stack())
	}
}

// Fatal handles a fault that was already recovered elsewhere, such as a
// UI callback panic.
func (f *Faults) Fatal(source string, value any) {
	f.fatal(source, value, debug.Stack())
}

// PanicHook adapts Fatal to the UI loop's panic hook.
func (f *Faults) PanicHook(source string) func(value any, stack []byte) {
	return func(value any, stack []byte) {
		f.fatal(source, value, stack)
	}
}

func (f *Faults) fatal(source string, value any, stack []byte) {
	f.logger.Error().
		Str("event", "fault.unrecovered").
		Str("source", source).
		Str("panic", fmt.Sprint(value)).
		Str("stack", string(stack)).
		Msg("unrecovered fault, shutting down")

	f.once.Do(func() {
		if f.shutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
			err := f.shutdown(ctx)
			cancel()
			if err != nil {
				f.logger.Error().Err(err).Str("event", "fault.shutdown_failed").Msg("graceful shutdown after fault failed")
			}
		}
		f.exit(ExitFault)
	})

	// Only reached when exit is replaced and returns.
	runtime.Goexit()
}
