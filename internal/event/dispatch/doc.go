// Package dispatch runs bus handlers with fault isolation.
//
// The bus never lets one subscriber's failure stop a fan-out. Every handler
// call goes through an Executor, which recovers panics (capturing the value
// and stack), measures duration and turns the outcome into a Result.
// SyncDispatcher wraps an Executor with counters and runs handlers on the
// caller's goroutine.
//
//	d := dispatch.NewSyncDispatcher(
//	    dispatch.WithPanicHandler(func(msg any, v any, stack []byte) {
//	        logger.Error().Interface("panic", v).Bytes("stack", stack).Msg("handler panicked")
//	    }),
//	)
//	res := d.Dispatch(ctx, msg, handler)
//	if !res.IsSuccess() {
//	    // report and keep going
//	}
package dispatch
