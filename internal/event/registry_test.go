package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/multiwin/internal/event/topic"
)

func newTestSub(id string, owner *Owner, kind string) *subscription {
	return newSubscription(id, owner, topicOf(kind), HandlerFunc(func(context.Context, Message) error { return nil }))
}

func TestRegistry_MatchOrderAcrossPatterns(t *testing.T) {
	r := NewRegistry()
	o := NewOwner("o")

	r.Add(newTestSub("1", o, "a.**"))
	r.Add(newTestSub("2", o, "a.b"))
	r.Add(newTestSub("3", o, "a.*"))
	r.Add(newTestSub("4", o, "a.b"))
	r.Add(newTestSub("5", o, "c.d"))

	var ids []string
	for _, s := range r.Match("a.b") {
		ids = append(ids, s.id)
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids)
}

func TestRegistry_SnapshotIsStable(t *testing.T) {
	r := NewRegistry()
	o := NewOwner("o")
	r.Add(newTestSub("1", o, "a.b"))
	r.Add(newTestSub("2", o, "a.b"))

	snap := r.Match("a.b")
	require.True(t, r.Remove("1"))
	r.Add(newTestSub("3", o, "a.b"))

	require.Len(t, snap, 2)
	assert.Equal(t, "1", snap[0].id)
	assert.Equal(t, "2", snap[1].id)
	assert.False(t, snap[0].IsActive())
}

func TestRegistry_RemoveOwner(t *testing.T) {
	r := NewRegistry()
	a, b := NewOwner("a"), NewOwner("b")
	r.Add(newTestSub("1", a, "x.y"))
	r.Add(newTestSub("2", b, "x.y"))
	r.Add(newTestSub("3", a, "x.z"))

	assert.Equal(t, 2, r.RemoveOwner(a))
	assert.Equal(t, 0, r.RemoveOwner(a))
	assert.Equal(t, 1, r.Count())
	require.Len(t, r.Match("x.y"), 1)
	assert.Same(t, b, r.Match("x.y")[0].Owner())
	assert.Empty(t, r.Match("x.z"))
}

func topicOf(s string) topic.Topic { return topic.Topic(s) }
