// Package event provides the in-process message bus.
//
// Windows, the background trace producer and the lifecycle coordinator talk
// to each other only through a Bus. Messages carry a kind (a dot-separated
// topic.Topic); handlers subscribe to a kind, or to a wildcard pattern, under
// an Owner token so that everything an owner registered can be revoked with
// one UnregisterAll call.
//
// # Delivery
//
// Publish runs on the caller's goroutine. It takes a point-in-time snapshot
// of the matching subscriptions and calls them in registration order:
//
//   - a subscription added during a fan-out is not called by that fan-out
//   - a subscription cancelled before its turn is skipped
//   - a handler that returns an error or panics is logged, counted and
//     reported to the error handler; the remaining handlers still run
//
// Handlers that touch UI state must post to the UI dispatcher themselves.
//
// # Requests
//
// A request message embeds a Replies collector. Request publishes it and
// returns what the handlers appended:
//
//	sub, _ := event.SubscribeRequest(bus, owner,
//	    func(ctx context.Context, req messages.TraceHistoryRequest) (messages.TraceHistory, bool, error) {
//	        return history.Snapshot(), true, nil
//	    })
//	answers, err := event.Request(ctx, bus, messages.NewTraceHistoryRequest())
//
// # Ownership
//
// The bus never decides on its own that an owner is gone. Every owner calls
// UnregisterAll, usually through Scope.Close, on its teardown path. After
// UnregisterAll returns, no handler of that owner is started again.
package event
