package event

import (
	"context"
	"sync/atomic"

	"github.com/dshills/multiwin/internal/event/dispatch"
	"github.com/dshills/multiwin/internal/event/topic"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving messages.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStateCancelled means the subscription has been permanently cancelled.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription is the handle returned by Subscribe.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// Owner returns the owner token the subscription was registered under.
	Owner() *Owner

	// Kind returns the subscribed kind pattern.
	Kind() topic.Topic

	// State returns the current subscription state.
	State() SubscriptionState

	// IsActive reports whether the subscription can still receive messages.
	IsActive() bool
}

// SubscriptionConfig contains per-subscription settings.
type SubscriptionConfig struct {
	// Filter is an optional predicate; messages it rejects are skipped.
	Filter FilterFunc

	// Once cancels the subscription after its first delivery.
	Once bool
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*SubscriptionConfig)

// WithFilter sets a filter predicate.
func WithFilter(f FilterFunc) SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Filter = f
	}
}

// WithOnce cancels the subscription after its first delivery.
func WithOnce() SubscriptionOption {
	return func(c *SubscriptionConfig) {
		c.Once = true
	}
}

type subscription struct {
	id      string
	seq     uint64
	owner   *Owner
	kind    topic.Topic
	handler Handler
	config  SubscriptionConfig
	state   atomic.Int32
	fired   atomic.Bool

	// adapted is handler in the dispatch package's shape.
	adapted dispatch.Handler
}

func newSubscription(id string, owner *Owner, kind topic.Topic, h Handler, opts ...SubscriptionOption) *subscription {
	var config SubscriptionConfig
	for _, opt := range opts {
		opt(&config)
	}

	s := &subscription{
		id:      id,
		owner:   owner,
		kind:    kind,
		handler: h,
		config:  config,
	}
	s.adapted = dispatch.HandlerFunc(func(ctx context.Context, msg any) error {
		return h.Handle(ctx, msg.(Message))
	})
	s.state.Store(int32(SubscriptionStateActive))
	return s
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) Owner() *Owner     { return s.owner }
func (s *subscription) Kind() topic.Topic { return s.kind }

func (s *subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

func (s *subscription) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

func (s *subscription) cancel() {
	s.state.Store(int32(SubscriptionStateCancelled))
}

// shouldDeliver is evaluated at the subscription's turn in a fan-out, not
// when the snapshot was taken.
func (s *subscription) shouldDeliver(msg Message) bool {
	if !s.IsActive() {
		return false
	}
	if s.config.Filter != nil && !s.config.Filter(msg) {
		return false
	}
	if s.config.Once && !s.fired.CompareAndSwap(false, true) {
		return false
	}
	return true
}
