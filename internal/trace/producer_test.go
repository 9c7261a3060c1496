package trace

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/event/messages"
	"github.com/dshills/multiwin/internal/metrics"
)

func collectTraces(t *testing.T, bus event.Bus) (<-chan messages.Trace, *event.Scope) {
	t.Helper()
	ch := make(chan messages.Trace, 1024)
	scope := event.NewScope(bus, "test.collector")
	_, err := event.ScopeSubscribe(scope, func(_ context.Context, m messages.Trace) error {
		ch <- m
		return nil
	})
	require.NoError(t, err)
	return ch, scope
}

func waitDone(t *testing.T, p *Producer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.Wait(ctx), "producer did not stop")
}

func TestProducer_EmitsUntilShutdown(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := event.NewBus()
	traces, scope := collectTraces(t, bus)
	defer scope.Close()

	p := NewProducer(bus, WithIntervals(time.Millisecond, 2*time.Millisecond))
	assert.Equal(t, StateNotStarted, p.State())
	require.NoError(t, p.Start(context.Background()))
	assert.Equal(t, StateRunning, p.State())

	for want := uint64(1); want <= 3; want++ {
		select {
		case m := <-traces:
			assert.Equal(t, want, m.Seq)
			assert.Contains(t, m.Line, "Timer event.")
		case <-time.After(time.Second):
			t.Fatal("no trace received")
		}
	}

	require.NoError(t, bus.Publish(context.Background(), messages.Shutdown{}))
	assert.Contains(t, []State{StateStopRequested, StateStopped}, p.State())

	waitDone(t, p)
	assert.Equal(t, StateStopped, p.State())
	// Only the collector is left on the bus.
	assert.Equal(t, 1, bus.Stats().ActiveSubscriptions)
}

func TestProducer_CloseWindowDoesNotStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := event.NewBus()
	p := NewProducer(bus, WithIntervals(time.Millisecond, time.Millisecond))
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, bus.Publish(context.Background(), messages.CloseWindow{Value: true}))
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, StateRunning, p.State())

	p.Stop()
	waitDone(t, p)
}

func TestProducer_FailClosedOnPublishError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := event.NewBus()
	p := NewProducer(bus, WithIntervals(time.Millisecond, time.Millisecond))
	require.NoError(t, p.Start(context.Background()))

	require.NoError(t, bus.Close())
	waitDone(t, p)
	assert.Equal(t, StateStopped, p.State())
	assert.Zero(t, bus.Stats().ActiveSubscriptions)
}

func TestProducer_ContextCancelEndsSleep(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	p := NewProducer(event.NewBus(), WithIntervals(time.Hour, time.Hour))
	require.NoError(t, p.Start(ctx))

	cancel()
	waitDone(t, p)
	assert.Zero(t, p.Emitted())
}

func TestProducer_StartTwice(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	p := NewProducer(event.NewBus(), WithIntervals(time.Millisecond, time.Millisecond))
	assert.False(t, p.Started())
	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.Started())
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)

	p.Stop()
	waitDone(t, p)
}

func TestProducer_StartOnClosedBus(t *testing.T) {
	bus := event.NewBus()
	require.NoError(t, bus.Close())

	p := NewProducer(bus)
	assert.ErrorIs(t, p.Start(context.Background()), event.ErrBusClosed)
	assert.Equal(t, StateStopped, p.State())
	select {
	case <-p.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestProducer_SetIntervals(t *testing.T) {
	p := NewProducer(event.NewBus())

	lo, hi := p.Intervals()
	assert.Equal(t, time.Duration(DefaultMinInterval), lo)
	assert.Equal(t, DefaultMaxInterval, hi)

	assert.ErrorIs(t, p.SetIntervals(-time.Second, time.Second), ErrInvalidInterval)
	assert.ErrorIs(t, p.SetIntervals(2*time.Second, time.Second), ErrInvalidInterval)
	require.NoError(t, p.SetIntervals(10*time.Millisecond, 20*time.Millisecond))

	for range 100 {
		d := p.nextInterval()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 20*time.Millisecond)
	}
}

func TestProducer_FormatterFallback(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	bus := event.NewBus()
	traces, scope := collectTraces(t, bus)
	defer scope.Close()

	at := time.Date(2024, 1, 2, 3, 4, 5, 600_000_000, time.UTC)
	p := NewProducer(bus,
		WithIntervals(time.Millisecond, time.Millisecond),
		WithClock(func() time.Time { return at }),
		WithFormatter(FormatterFunc(func(uint64, time.Time) (string, error) {
			return "", errors.New("script broke")
		})),
	)
	require.NoError(t, p.Start(context.Background()))

	m := <-traces
	assert.Equal(t, "03:04:05.6000 Timer event. (seq: 1)", m.Line)

	p.Stop()
	waitDone(t, p)
}

type recordingFaults struct {
	mu      sync.Mutex
	sources []string
	values  []any
}

func (f *recordingFaults) Recover(source string) {
	if r := recover(); r != nil {
		f.mu.Lock()
		f.sources = append(f.sources, source)
		f.values = append(f.values, r)
		f.mu.Unlock()
	}
}

func TestProducer_PanicGoesToFaultHandler(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	faults := &recordingFaults{}
	bus := event.NewBus()
	p := NewProducer(bus,
		WithIntervals(time.Millisecond, time.Millisecond),
		WithFaultHandler(faults),
		WithFormatter(FormatterFunc(func(uint64, time.Time) (string, error) {
			panic("formatter exploded")
		})),
	)
	require.NoError(t, p.Start(context.Background()))
	waitDone(t, p)

	require.Eventually(t, func() bool {
		faults.mu.Lock()
		defer faults.mu.Unlock()
		return len(faults.sources) == 1
	}, time.Second, time.Millisecond)

	faults.mu.Lock()
	defer faults.mu.Unlock()
	assert.Equal(t, []string{"trace.producer"}, faults.sources)
	assert.Equal(t, []any{"formatter exploded"}, faults.values)
	assert.Equal(t, StateStopped, p.State())
}

func TestProducer_Metrics(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m := metrics.New(prometheus.NewRegistry())
	bus := event.NewBus()
	traces, scope := collectTraces(t, bus)
	defer scope.Close()

	p := NewProducer(bus, WithIntervals(time.Millisecond, time.Millisecond), WithMetrics(m))
	require.NoError(t, p.Start(context.Background()))
	<-traces
	<-traces

	p.Stop()
	waitDone(t, p)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.TracesEmitted), 2.0)
	assert.Equal(t, float64(StateStopped), testutil.ToFloat64(m.ProducerState))
	assert.EqualValues(t, testutil.ToFloat64(m.TracesEmitted), p.Emitted())
}
