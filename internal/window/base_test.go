package window

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBase_CloseRunsHooks(t *testing.T) {
	b := NewBase("w-1", "Test", zerolog.Nop())
	var order []string
	b.OnClosing(func(*ClosingEvent) { order = append(order, "closing") })
	b.OnClosed(func() { order = append(order, "closed") })

	b.Activate()
	assert.True(t, b.IsActive())

	b.Close()
	assert.False(t, b.IsOpen())
	assert.False(t, b.IsActive())
	assert.Equal(t, []string{"closing", "closed"}, order)

	b.Close()
	assert.Equal(t, []string{"closing", "closed"}, order, "second close is a no-op")
}

func TestBase_CancelKeepsWindowOpen(t *testing.T) {
	b := NewBase("w-1", "Test", zerolog.Nop())
	veto := true
	closed := 0
	b.OnClosing(func(e *ClosingEvent) {
		if veto {
			e.Cancel()
		}
	})
	b.OnClosed(func() { closed++ })

	b.Close()
	assert.True(t, b.IsOpen())
	assert.Zero(t, closed)

	veto = false
	b.Close()
	assert.False(t, b.IsOpen())
	assert.Equal(t, 1, closed)
}

func TestBase_ActivateAfterCloseIgnored(t *testing.T) {
	b := NewBase("w-1", "Test", zerolog.Nop())
	b.Close()
	b.Activate()
	assert.False(t, b.IsActive())
}

func TestNewID(t *testing.T) {
	a, b := NewID("status"), NewID("status")
	assert.NotEqual(t, a, b)
	assert.Len(t, a, len("status-")+8)
}
