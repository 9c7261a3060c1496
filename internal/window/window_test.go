package window

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/event/messages"
	"github.com/dshills/multiwin/internal/trace"
	"github.com/dshills/multiwin/internal/uithread"
)

type fakeCoordinator struct {
	tracked   []string
	shutdowns int
}

func (c *fakeCoordinator) Track(id string)  { c.tracked = append(c.tracked, id) }
func (c *fakeCoordinator) RequestShutdown() { c.shutdowns++ }

// acks records WindowClosed messages.
func acks(t *testing.T, bus event.Bus) *[]messages.WindowClosed {
	t.Helper()
	var got []messages.WindowClosed
	_, err := event.Subscribe(bus, event.NewOwner("test"), func(_ context.Context, m messages.WindowClosed) error {
		got = append(got, m)
		return nil
	})
	require.NoError(t, err)
	return &got
}

func TestStatusWindow_ClosesOnCloseWindow(t *testing.T) {
	bus := event.NewBus()
	got := acks(t, bus)

	w, err := NewStatusWindow(bus, uithread.Inline{}, "", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultStatusTitle, w.Title())

	require.NoError(t, bus.Publish(context.Background(), messages.CloseWindow{Value: true}))

	assert.False(t, w.IsOpen())
	require.Len(t, *got, 1)
	assert.Equal(t, messages.WindowClosed{Value: true, WindowID: w.ID()}, (*got)[0])
	assert.Equal(t, 1, bus.Stats().ActiveSubscriptions, "only the test subscription remains")
}

func TestStatusWindow_ClosesOnShutdown(t *testing.T) {
	bus := event.NewBus()
	got := acks(t, bus)

	w, err := NewStatusWindow(bus, uithread.Inline{}, "Status", zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), messages.Shutdown{}))
	assert.False(t, w.IsOpen())
	assert.Len(t, *got, 1)

	// A second directive finds no subscriber and produces no second ack.
	require.NoError(t, bus.Publish(context.Background(), messages.Shutdown{}))
	assert.Len(t, *got, 1)
}

func TestStatusWindow_LoadHistoryThenLive(t *testing.T) {
	bus := event.NewBus()
	history := trace.NewHistory(0, zerolog.Nop())
	require.NoError(t, history.Attach(bus))
	defer history.Detach()

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, messages.Trace{Line: "one", Seq: 1}))
	require.NoError(t, bus.Publish(ctx, messages.Trace{Line: "two", Seq: 2}))

	changes := 0
	w, err := NewStatusWindow(bus, uithread.Inline{}, "", zerolog.Nop(), WithOnChange(func() { changes++ }))
	require.NoError(t, err)
	require.NoError(t, w.Load(ctx))
	assert.Equal(t, []string{"one", "two"}, w.Lines())

	require.NoError(t, bus.Publish(ctx, messages.Trace{Line: "three", Seq: 3}))
	assert.Equal(t, []string{"one", "two", "three"}, w.Lines())
	assert.Equal(t, 2, changes)

	// Load is once only.
	require.NoError(t, w.Load(ctx))
	assert.Len(t, w.Lines(), 3)

	w.Close()
	require.NoError(t, bus.Publish(ctx, messages.Trace{Line: "four", Seq: 4}))
	assert.Len(t, w.Lines(), 3, "closed window stops receiving")
}

// A trace published while the history request is in flight shows up
// exactly once, whether or not the history already recorded it.
func TestStatusWindow_LoadDuringTraces(t *testing.T) {
	tests := []struct {
		name          string
		beforeHistory bool
	}{
		{"trace after history answered", false},
		{"trace before history answered", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := event.NewBus()
			ctx := context.Background()

			// The responder contributes nothing; it only publishes a trace
			// in the middle of the request, like a producer would.
			emit := func() {
				_, err := event.SubscribeRequest(bus, event.NewOwner("producer"),
					func(ctx context.Context, _ messages.TraceHistoryRequest) (messages.TraceHistory, bool, error) {
						return messages.TraceHistory{}, false, bus.Publish(ctx, messages.Trace{Line: "three", Seq: 3})
					})
				require.NoError(t, err)
			}
			if tt.beforeHistory {
				emit()
			}
			history := trace.NewHistory(0, zerolog.Nop())
			require.NoError(t, history.Attach(bus))
			defer history.Detach()
			if !tt.beforeHistory {
				emit()
			}

			require.NoError(t, bus.Publish(ctx, messages.Trace{Line: "one", Seq: 1}))
			require.NoError(t, bus.Publish(ctx, messages.Trace{Line: "two", Seq: 2}))

			loop := uithread.New()
			errc := make(chan error, 1)
			go func() { errc <- loop.Run(ctx) }()
			defer func() {
				loop.Stop()
				<-errc
			}()

			w, err := NewStatusWindow(bus, loop, "", zerolog.Nop())
			require.NoError(t, err)

			var loadErr error
			require.NoError(t, loop.Invoke(ctx, func() { loadErr = w.Load(ctx) }))
			require.NoError(t, loadErr)

			var lines []string
			require.NoError(t, loop.Invoke(ctx, func() { lines = w.Lines() }))
			assert.Equal(t, []string{"one", "two", "three"}, lines)
		})
	}
}

func TestStatusWindow_LineLimit(t *testing.T) {
	bus := event.NewBus()
	w, err := NewStatusWindow(bus, uithread.Inline{}, "", zerolog.Nop(), WithLineLimit(2))
	require.NoError(t, err)
	require.NoError(t, w.Load(context.Background()))

	for _, line := range []string{"a", "b", "c"} {
		require.NoError(t, bus.Publish(context.Background(), messages.Trace{Line: line}))
	}
	assert.Equal(t, []string{"b", "c"}, w.Lines())
}

func newPage(t *testing.T, bus event.Bus, coord Coordinator) *MainPage {
	t.Helper()
	page := NewMainPage(PageConfig{
		Bus:         bus,
		UI:          uithread.Inline{},
		Coordinator: coord,
		Logger:      zerolog.Nop(),
	})
	_, err := event.Subscribe(bus, event.NewOwner("app"), func(_ context.Context, m messages.WindowClosed) error {
		page.StatusWindowClosed(m.WindowID)
		return nil
	})
	require.NoError(t, err)
	return page
}

func TestMainPage_ToggleOpensAndCloses(t *testing.T) {
	bus := event.NewBus()
	coord := &fakeCoordinator{}
	page := newPage(t, bus, coord)
	ctx := context.Background()

	require.NoError(t, page.SetToggle(ctx, true))
	assert.True(t, page.StatusToggle.IsOn)
	assert.True(t, page.SettingsStatusWindow)
	status := page.StatusWindow()
	require.NotNil(t, status)
	assert.True(t, status.IsActive())
	assert.Equal(t, []string{status.ID()}, coord.tracked)

	// Turning it on again does not open a second window.
	require.NoError(t, page.SetToggle(ctx, true))
	assert.Len(t, coord.tracked, 1)

	require.NoError(t, page.SetToggle(ctx, false))
	assert.False(t, status.IsOpen())
	assert.False(t, page.SettingsStatusWindow)
	assert.False(t, page.StatusToggle.IsOn)
	assert.Nil(t, page.StatusWindow())
}

func TestMainPage_StatusCloseResetsToggle(t *testing.T) {
	bus := event.NewBus()
	page := newPage(t, bus, &fakeCoordinator{})

	require.NoError(t, page.SetToggle(context.Background(), true))
	page.StatusWindow().Close()

	assert.False(t, page.SettingsStatusWindow)
	assert.False(t, page.StatusToggle.IsOn)
}

func TestSingleWindowCloseDoesNotCascade(t *testing.T) {
	bus := event.NewBus()
	page := newPage(t, bus, &fakeCoordinator{})
	mainWin := NewMainWindow("", page, func() bool { return false }, zerolog.Nop())

	shutdowns := 0
	_, err := event.Subscribe(bus, event.NewOwner("watch"), func(context.Context, messages.Shutdown) error {
		shutdowns++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, page.SetToggle(context.Background(), true))
	page.StatusWindow().Close()

	assert.True(t, mainWin.IsOpen())
	assert.Zero(t, shutdowns)
}

func TestMainPage_ShutdownButton(t *testing.T) {
	coord := &fakeCoordinator{}
	page := newPage(t, event.NewBus(), coord)
	page.ShutdownButton()
	assert.Equal(t, 1, coord.shutdowns)
}

func TestMainWindow_Veto(t *testing.T) {
	veto := true
	w := NewMainWindow("Main", NewMainPage(PageConfig{}), func() bool { return veto }, zerolog.Nop())
	assert.Equal(t, "Main", w.Title())

	w.Close()
	assert.True(t, w.IsOpen())

	veto = false
	w.Close()
	assert.False(t, w.IsOpen())
}
