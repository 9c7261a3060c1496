package event

import (
	"context"

	"github.com/dshills/multiwin/internal/event/topic"
)

// Message is anything that can travel on the bus.
// Kind must be callable on the zero value for Subscribe and SubscribeRequest
// to derive the subscription kind.
type Message interface {
	Kind() topic.Topic
}

// Handler receives messages from the bus.
//
// Handlers run on the publisher's goroutine. A handler that touches state
// owned by the UI goroutine must post to the UI dispatcher itself.
type Handler interface {
	Handle(ctx context.Context, msg Message) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, msg Message) error

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// FilterFunc decides whether a matching message is delivered.
type FilterFunc func(msg Message) bool

// ErrorHandler observes isolated handler failures. err is a *HandlerError
// or a *PanicError.
type ErrorHandler func(sub Subscription, msg Message, err error)

// Stats contains bus counters.
type Stats struct {
	// Published is the number of messages accepted by Publish.
	Published uint64

	// Delivered is the number of handler calls that succeeded.
	Delivered uint64

	// HandlerErrors is the number of handler calls that returned an error.
	HandlerErrors uint64

	// HandlerPanics is the number of handler calls that panicked.
	HandlerPanics uint64

	// Skipped counts snapshot entries passed over because they were
	// cancelled, filtered, already fired or the context ended.
	Skipped uint64

	// ActiveSubscriptions is the current number of registered subscriptions.
	ActiveSubscriptions int
}
