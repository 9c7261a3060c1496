package event

import (
	"context"
	"sync"

	"github.com/dshills/multiwin/internal/event/topic"
)

// Scope binds one owner to a bus and releases all of the owner's
// subscriptions on Close. Components create a Scope when they start and
// close it on every teardown path.
type Scope struct {
	bus   Subscriber
	owner *Owner

	mu     sync.Mutex
	closed bool
}

// NewScope creates a scope with a fresh owner token named name.
func NewScope(bus Subscriber, name string) *Scope {
	return &Scope{bus: bus, owner: NewOwner(name)}
}

// Owner returns the scope's owner token.
func (s *Scope) Owner() *Owner {
	return s.owner
}

// Subscribe registers handler under the scope's owner.
func (s *Scope) Subscribe(kind topic.Topic, handler Handler, opts ...SubscriptionOption) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrScopeClosed
	}
	return s.bus.Subscribe(s.owner, kind, handler, opts...)
}

// SubscribeFunc is Subscribe with a function handler.
func (s *Scope) SubscribeFunc(kind topic.Topic, fn func(ctx context.Context, msg Message) error, opts ...SubscriptionOption) (Subscription, error) {
	return s.Subscribe(kind, HandlerFunc(fn), opts...)
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close unregisters every subscription of the owner. Only the first call
// has an effect.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.bus.UnregisterAll(s.owner)
	return nil
}

// ScopeSubscribe registers a typed handler under the scope's owner.
func ScopeSubscribe[M Message](s *Scope, fn func(ctx context.Context, msg M) error, opts ...SubscriptionOption) (Subscription, error) {
	if s.Closed() {
		return nil, ErrScopeClosed
	}
	return Subscribe(s.bus, s.owner, fn, opts...)
}
