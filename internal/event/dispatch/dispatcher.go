package dispatch

import (
	"context"
	"time"
)

// Handler mirrors event.Handler without importing the event package.
type Handler interface {
	Handle(ctx context.Context, msg any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, msg any) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, msg any) error {
	return f(ctx, msg)
}

// Result is the outcome of one handler call.
type Result struct {
	Success    bool
	Error      error
	Panicked   bool
	PanicValue any
	PanicStack []byte
	Duration   time.Duration

	// Skipped is set when the handler was never called (context done).
	Skipped bool
}

// IsSuccess reports a call that returned nil without panicking.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError reports a call that returned an error.
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic reports a call that panicked.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// PanicHandler observes a recovered handler panic.
type PanicHandler func(msg any, panicValue any, stack []byte)
