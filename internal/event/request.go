package event

import (
	"context"
	"sync"
)

// Replies collects the responses appended by request handlers.
type Replies[R any] struct {
	mu     sync.Mutex
	values []R
}

// NewReplies creates an empty collector.
func NewReplies[R any]() *Replies[R] {
	return &Replies[R]{}
}

// Add appends one response.
func (r *Replies[R]) Add(v R) {
	r.mu.Lock()
	r.values = append(r.values, v)
	r.mu.Unlock()
}

// Values returns a copy of the collected responses.
func (r *Replies[R]) Values() []R {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]R, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the number of responses collected.
func (r *Replies[R]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// RequestMessage is a message that carries its own response collector.
type RequestMessage[R any] interface {
	Message
	Replies() *Replies[R]
}

// Request publishes req and returns the responses appended during the
// fan-out, in registration order. The result is empty, not nil, when no
// handler answered.
func Request[R any](ctx context.Context, p Publisher, req RequestMessage[R]) ([]R, error) {
	if req == nil || req.Replies() == nil {
		return nil, ErrInvalidMessage
	}
	if err := p.Publish(ctx, req); err != nil {
		return nil, err
	}
	return req.Replies().Values(), nil
}

// SubscribeRequest registers a responder for Q. Each call of fn contributes
// at most one response: ok=false contributes none.
func SubscribeRequest[Q RequestMessage[R], R any](s Subscriber, owner *Owner, fn func(ctx context.Context, req Q) (resp R, ok bool, err error), opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	var zero Q
	return s.Subscribe(owner, zero.Kind(), HandlerFunc(func(ctx context.Context, msg Message) error {
		req, ok := msg.(Q)
		if !ok {
			return nil
		}
		resp, answered, err := fn(ctx, req)
		if err != nil {
			return err
		}
		if answered && req.Replies() != nil {
			req.Replies().Add(resp)
		}
		return nil
	}), opts...)
}

// Subscribe registers a typed handler for M. The kind is taken from M's
// zero value; messages of another Go type published under the same kind
// are ignored.
func Subscribe[M Message](s Subscriber, owner *Owner, fn func(ctx context.Context, msg M) error, opts ...SubscriptionOption) (Subscription, error) {
	if fn == nil {
		return nil, ErrNilHandler
	}
	var zero M
	return s.Subscribe(owner, zero.Kind(), HandlerFunc(func(ctx context.Context, msg Message) error {
		m, ok := msg.(M)
		if !ok {
			return nil
		}
		return fn(ctx, m)
	}), opts...)
}
