package event

import "github.com/google/uuid"

// Owner identifies a logical subscriber so that all of its subscriptions can
// be revoked at once. Identity is the pointer; the name only appears in logs.
//
// The bus holds owners only through their subscriptions and releases them in
// UnregisterAll. Every owner must reach UnregisterAll (usually through a
// Scope) on its own teardown path.
type Owner struct {
	id   uuid.UUID
	name string
}

// NewOwner creates a fresh owner token.
func NewOwner(name string) *Owner {
	return &Owner{id: uuid.New(), name: name}
}

// ID returns the owner's unique identifier.
func (o *Owner) ID() string {
	return o.id.String()
}

// Name returns the human-readable owner name.
func (o *Owner) Name() string {
	return o.name
}

// String returns "name/short-id".
func (o *Owner) String() string {
	if o == nil {
		return "<nil>"
	}
	return o.name + "/" + o.id.String()[:8]
}
