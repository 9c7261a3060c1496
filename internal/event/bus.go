package event

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/dshills/multiwin/internal/event/dispatch"
	"github.com/dshills/multiwin/internal/event/topic"
)

// Publisher publishes messages.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Subscriber registers and revokes handlers.
type Subscriber interface {
	Subscribe(owner *Owner, kind topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error)
	Unsubscribe(sub Subscription) error
	UnregisterAll(owner *Owner) int
}

// Bus is the in-process message bus.
type Bus interface {
	Publisher
	Subscriber

	// Close marks the bus closed. Later Publish and Subscribe calls fail
	// with ErrBusClosed. Close is idempotent.
	Close() error
	IsClosed() bool
	Stats() Stats
}

type bus struct {
	registry   *Registry
	dispatcher *dispatch.SyncDispatcher
	config     busConfig

	closed atomic.Bool
	nextID atomic.Uint64

	published     atomic.Uint64
	delivered     atomic.Uint64
	handlerErrors atomic.Uint64
	handlerPanics atomic.Uint64
	skipped       atomic.Uint64
}

// NewBus creates a bus.
func NewBus(opts ...BusOption) Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &bus{
		registry:   NewRegistry(),
		config:     config,
		dispatcher: dispatch.NewSyncDispatcher(dispatch.WithTimeout(config.handlerTimeout)),
	}
}

// Subscribe registers handler for kind under owner. Registering the same
// handler twice yields two subscriptions and two deliveries.
func (b *bus) Subscribe(owner *Owner, kind topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	switch {
	case owner == nil:
		return nil, ErrNilOwner
	case handler == nil:
		return nil, ErrNilHandler
	case !kind.IsValid():
		return nil, ErrInvalidTopic
	case b.closed.Load():
		return nil, ErrBusClosed
	}

	id := "sub-" + strconv.FormatUint(b.nextID.Add(1), 10)
	sub := newSubscription(id, owner, kind, handler, opts...)
	b.registry.Add(sub)
	b.config.metrics.SetSubscriptions(b.registry.Count())

	b.config.logger.Debug().
		Str("event", "bus.subscribe").
		Str("owner", owner.String()).
		Str("kind", kind.String()).
		Str("subscription", id).
		Msg("subscription added")
	return sub, nil
}

// Unsubscribe removes a single subscription.
func (b *bus) Unsubscribe(s Subscription) error {
	sub, ok := s.(*subscription)
	if !ok || sub == nil {
		return ErrInvalidSubscription
	}
	if registered, found := b.registry.Get(sub.id); found && registered != sub {
		return ErrInvalidSubscription
	}
	if !b.registry.Remove(sub.id) {
		return ErrSubscriptionNotFound
	}
	b.config.metrics.SetSubscriptions(b.registry.Count())
	return nil
}

// UnregisterAll removes every subscription of owner. It is idempotent and
// safe on an owner with no subscriptions or a closed bus.
func (b *bus) UnregisterAll(owner *Owner) int {
	if owner == nil {
		return 0
	}
	n := b.registry.RemoveOwner(owner)
	if n > 0 {
		b.config.metrics.SetSubscriptions(b.registry.Count())
		b.config.logger.Debug().
			Str("event", "bus.unregister_all").
			Str("owner", owner.String()).
			Int("removed", n).
			Msg("owner unregistered")
	}
	return n
}

// Publish delivers msg synchronously on the calling goroutine to a snapshot
// of the matching subscriptions, in registration order.
//
// A failing or panicking handler does not stop the fan-out; the failure is
// logged, counted and passed to the error handler. Publish returns only
// bus-level errors.
func (b *bus) Publish(ctx context.Context, msg Message) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.closed.Load() {
		return ErrBusClosed
	}
	if msg == nil {
		return ErrInvalidMessage
	}
	kind := msg.Kind()
	if !kind.IsValid() || kind.IsWildcard() {
		return ErrInvalidMessage
	}

	b.published.Add(1)
	b.config.metrics.IncPublished(kind.String())

	for _, sub := range b.registry.Match(kind) {
		if !sub.shouldDeliver(msg) {
			b.skipped.Add(1)
			continue
		}
		if sub.config.Once {
			b.registry.Remove(sub.id)
		}
		b.deliver(ctx, sub, msg)
	}
	return nil
}

func (b *bus) deliver(ctx context.Context, sub *subscription, msg Message) {
	kind := msg.Kind().String()
	result := b.dispatcher.Dispatch(ctx, msg, sub.adapted)

	switch {
	case result.Skipped:
		b.skipped.Add(1)
	case result.Panicked:
		b.handlerPanics.Add(1)
		b.config.metrics.IncHandlerPanic(kind)
		err := &PanicError{
			SubscriptionID: sub.id,
			Owner:          sub.owner.String(),
			Kind:           kind,
			Value:          result.PanicValue,
			Stack:          string(result.PanicStack),
		}
		b.config.logger.Error().
			Str("event", "bus.handler_panic").
			Str("owner", err.Owner).
			Str("kind", kind).
			Interface("panic", result.PanicValue).
			Str("stack", err.Stack).
			Msg("handler panicked, continuing fan-out")
		b.report(sub, msg, err)
	case result.Error != nil:
		b.handlerErrors.Add(1)
		b.config.metrics.IncHandlerError(kind)
		err := &HandlerError{
			SubscriptionID: sub.id,
			Owner:          sub.owner.String(),
			Kind:           kind,
			Err:            result.Error,
		}
		b.config.logger.Warn().
			Err(result.Error).
			Str("event", "bus.handler_error").
			Str("owner", err.Owner).
			Str("kind", kind).
			Msg("handler failed, continuing fan-out")
		b.report(sub, msg, err)
	default:
		b.delivered.Add(1)
		b.config.metrics.IncDelivered(kind)
	}
}

func (b *bus) report(sub *subscription, msg Message, err error) {
	if b.config.errorHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.config.logger.Error().Interface("panic", r).Msg("bus error handler panicked")
		}
	}()
	b.config.errorHandler(sub, msg, err)
}

// Close marks the bus closed. Existing subscriptions stay registered so
// owners can still run UnregisterAll on teardown.
func (b *bus) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	b.config.logger.Debug().Str("event", "bus.closed").Msg("message bus closed")
	return nil
}

func (b *bus) IsClosed() bool {
	return b.closed.Load()
}

// Stats returns a snapshot of the bus counters.
func (b *bus) Stats() Stats {
	return Stats{
		Published:           b.published.Load(),
		Delivered:           b.delivered.Load(),
		HandlerErrors:       b.handlerErrors.Load(),
		HandlerPanics:       b.handlerPanics.Load(),
		Skipped:             b.skipped.Load(),
		ActiveSubscriptions: b.registry.Count(),
	}
}
