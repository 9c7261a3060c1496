package event

import (
	"slices"
	"sync"

	"github.com/dshills/multiwin/internal/event/topic"
)

// Registry indexes subscriptions by kind pattern, by owner and by ID.
// It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	subs    map[topic.Topic][]*subscription
	byOwner map[*Owner][]*subscription
	byID    map[string]*subscription
	matcher *topic.Matcher
	nextSeq uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		subs:    make(map[topic.Topic][]*subscription),
		byOwner: make(map[*Owner][]*subscription),
		byID:    make(map[string]*subscription),
		matcher: topic.NewMatcher(),
	}
}

// Add registers sub at the end of the registration order.
func (r *Registry) Add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSeq++
	sub.seq = r.nextSeq

	r.subs[sub.kind] = append(r.subs[sub.kind], sub)
	r.byOwner[sub.owner] = append(r.byOwner[sub.owner], sub)
	r.byID[sub.id] = sub
	r.matcher.Add(sub.kind)
}

// Remove cancels and removes one subscription by ID.
func (r *Registry) Remove(subID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[subID]
	if !ok {
		return false
	}
	sub.cancel()
	r.removeLocked(sub)
	r.byOwner[sub.owner] = without(r.byOwner[sub.owner], sub)
	if len(r.byOwner[sub.owner]) == 0 {
		delete(r.byOwner, sub.owner)
	}
	return true
}

// RemoveOwner cancels and removes every subscription of owner.
// It returns the number removed.
func (r *Registry) RemoveOwner(owner *Owner) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := r.byOwner[owner]
	for _, sub := range owned {
		sub.cancel()
		r.removeLocked(sub)
	}
	delete(r.byOwner, owner)
	return len(owned)
}

func (r *Registry) removeLocked(sub *subscription) {
	delete(r.byID, sub.id)
	// Build a new slice: snapshots handed out by Match share the old one.
	rest := without(r.subs[sub.kind], sub)
	if len(rest) == 0 {
		delete(r.subs, sub.kind)
		r.matcher.Remove(sub.kind)
		return
	}
	r.subs[sub.kind] = rest
}

func without(subs []*subscription, sub *subscription) []*subscription {
	out := make([]*subscription, 0, len(subs))
	for _, s := range subs {
		if s != sub {
			out = append(out, s)
		}
	}
	return out
}

// Match returns a point-in-time snapshot of the subscriptions whose pattern
// accepts kind, in registration order across all patterns.
func (r *Registry) Match(kind topic.Topic) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patterns := r.matcher.Match(kind)
	if len(patterns) == 0 {
		return nil
	}

	var all []*subscription
	for _, pattern := range patterns {
		all = append(all, r.subs[pattern]...)
	}
	if len(patterns) > 1 {
		slices.SortFunc(all, func(a, b *subscription) int {
			switch {
			case a.seq < b.seq:
				return -1
			case a.seq > b.seq:
				return 1
			}
			return 0
		})
	}
	return all
}

// Get returns a subscription by ID.
func (r *Registry) Get(subID string) (*subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sub, ok := r.byID[subID]
	return sub, ok
}

// Count returns the total number of subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}
