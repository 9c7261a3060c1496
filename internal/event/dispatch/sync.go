package dispatch

import (
	"context"
	"sync/atomic"
	"time"
)

// SyncDispatcher runs handlers on the caller's goroutine.
type SyncDispatcher struct {
	executor *Executor
	timeout  time.Duration

	dispatched  atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	skipped     atomic.Uint64
	totalTimeNs atomic.Int64
}

// SyncOption configures a SyncDispatcher.
type SyncOption func(*SyncDispatcher)

// WithPanicHandler sets the hook called for recovered panics.
func WithPanicHandler(h PanicHandler) SyncOption {
	return func(d *SyncDispatcher) {
		d.executor = NewExecutor(WithExecutorPanicHandler(h))
	}
}

// WithTimeout bounds every handler's context.
func WithTimeout(timeout time.Duration) SyncOption {
	return func(d *SyncDispatcher) {
		d.timeout = timeout
	}
}

// NewSyncDispatcher creates a synchronous dispatcher.
func NewSyncDispatcher(opts ...SyncOption) *SyncDispatcher {
	d := &SyncDispatcher{executor: NewExecutor()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one handler and records the outcome.
func (d *SyncDispatcher) Dispatch(ctx context.Context, msg any, handler Handler) Result {
	d.dispatched.Add(1)

	result := d.executor.ExecuteWithTimeout(ctx, msg, handler, d.timeout)
	d.totalTimeNs.Add(result.Duration.Nanoseconds())

	switch {
	case result.Skipped:
		d.skipped.Add(1)
	case result.Panicked:
		d.panicked.Add(1)
	case result.Error != nil:
		d.failed.Add(1)
	default:
		d.succeeded.Add(1)
	}
	return result
}

// SyncDispatcherStats is a snapshot of dispatcher counters.
type SyncDispatcherStats struct {
	Dispatched    uint64
	Succeeded     uint64
	Failed        uint64
	Panicked      uint64
	Skipped       uint64
	TotalDuration time.Duration
	AvgDuration   time.Duration
}

// Stats returns a snapshot of the counters. Values are read individually
// and may be slightly inconsistent under concurrent dispatch.
func (d *SyncDispatcher) Stats() SyncDispatcherStats {
	dispatched := d.dispatched.Load()
	total := d.totalTimeNs.Load()
	var avg int64
	if dispatched > 0 {
		avg = total / int64(dispatched)
	}
	return SyncDispatcherStats{
		Dispatched:    dispatched,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		Skipped:       d.skipped.Load(),
		TotalDuration: time.Duration(total),
		AvgDuration:   time.Duration(avg),
	}
}
