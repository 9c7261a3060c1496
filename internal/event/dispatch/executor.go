package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Executor calls handlers with panic recovery and timing.
type Executor struct {
	panicHandler PanicHandler
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithExecutorPanicHandler sets the hook called for every recovered panic.
func WithExecutorPanicHandler(h PanicHandler) ExecutorOption {
	return func(e *Executor) {
		e.panicHandler = h
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute calls handler with msg. It never panics.
func (e *Executor) Execute(ctx context.Context, msg any, handler Handler) (result Result) {
	if handler == nil {
		return Result{Error: ErrNilHandler, Skipped: true}
	}
	if err := ctx.Err(); err != nil {
		return Result{Error: err, Skipped: true}
	}

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		r := recover()
		if r == nil {
			return
		}
		stack := debug.Stack()
		result.Success = false
		result.Panicked = true
		result.PanicValue = r
		result.PanicStack = stack
		if e.panicHandler != nil {
			func() {
				// A faulty panic hook must not escape either.
				defer func() { _ = recover() }()
				e.panicHandler(msg, r, stack)
			}()
		}
	}()

	if err := handler.Handle(ctx, msg); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}

// ExecuteWithTimeout bounds the handler's context by timeout.
// Handlers that ignore their context still run to completion.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, msg any, handler Handler, timeout time.Duration) Result {
	if timeout <= 0 {
		return e.Execute(ctx, msg, handler)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return e.Execute(ctx, msg, handler)
}
