package trace

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/multiwin/internal/event"
	"github.com/dshills/multiwin/internal/event/messages"
	"github.com/dshills/multiwin/internal/metrics"
)

// Default sleep bounds between trace lines.
const (
	DefaultMinInterval = 0
	DefaultMaxInterval = 2 * time.Second
)

// Bus is the part of the message bus the producer needs.
type Bus interface {
	event.Publisher
	event.Subscriber
}

// FaultHandler is deferred at the top of the producer goroutine.
type FaultHandler interface {
	Recover(source string)
}

// Producer emits trace lines onto the bus until stopped.
type Producer struct {
	bus       Bus
	scope     *event.Scope
	formatter Formatter
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	faults    FaultHandler
	now       func() time.Time

	minInterval atomic.Int64
	maxInterval atomic.Int64

	state    atomic.Int32
	stopFlag atomic.Bool
	done     chan struct{}
	seq      atomic.Uint64
	emitted  atomic.Uint64

	mu sync.Mutex
	// rng is only touched by the loop goroutine after Start.
	rng *rand.Rand
}

// Option configures a Producer.
type Option func(*Producer)

// WithIntervals sets the sleep bounds. Invalid ranges are ignored.
func WithIntervals(minInterval, maxInterval time.Duration) Option {
	return func(p *Producer) {
		_ = p.SetIntervals(minInterval, maxInterval)
	}
}

// WithFormatter sets the line formatter.
func WithFormatter(f Formatter) Option {
	return func(p *Producer) {
		if f != nil {
			p.formatter = f
		}
	}
}

// WithLogger sets the producer's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Producer) {
		p.logger = l
	}
}

// WithMetrics records emitted lines and state changes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Producer) {
		p.metrics = m
	}
}

// WithFaultHandler installs the goroutine's panic hook.
func WithFaultHandler(f FaultHandler) Option {
	return func(p *Producer) {
		p.faults = f
	}
}

// WithSeed makes interval selection deterministic.
func WithSeed(seed uint64) Option {
	return func(p *Producer) {
		p.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithClock overrides time.Now for line timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Producer) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProducer creates a producer in StateNotStarted.
func NewProducer(bus Bus, opts ...Option) *Producer {
	p := &Producer{
		bus:       bus,
		formatter: DefaultFormatter{},
		logger:    zerolog.Nop(),
		now:       time.Now,
		done:      make(chan struct{}),
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	p.minInterval.Store(int64(DefaultMinInterval))
	p.maxInterval.Store(int64(DefaultMaxInterval))
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start registers the Shutdown handler and launches the loop.
func (p *Producer) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(StateNotStarted), int32(StateRunning)) {
		return ErrAlreadyStarted
	}

	p.scope = event.NewScope(p.bus, "trace.producer")
	_, err := event.ScopeSubscribe(p.scope, func(context.Context, messages.Shutdown) error {
		p.requestStop("shutdown message")
		return nil
	})
	if err != nil {
		p.state.Store(int32(StateStopped))
		p.metrics.SetProducerState(int(StateStopped))
		_ = p.scope.Close()
		close(p.done)
		return err
	}

	p.metrics.SetProducerState(int(StateRunning))
	p.logger.Info().Str("event", "trace.producer_started").Msg("trace producer started")

	go p.run(ctx)
	return nil
}

// Stop requests a cooperative stop; the loop exits after its current sleep.
func (p *Producer) Stop() {
	p.requestStop("stop called")
}

func (p *Producer) requestStop(reason string) {
	p.stopFlag.Store(true)
	if p.state.CompareAndSwap(int32(StateRunning), int32(StateStopRequested)) {
		p.metrics.SetProducerState(int(StateStopRequested))
		p.logger.Debug().
			Str("event", "trace.stop_requested").
			Str("reason", reason).
			Msg("trace producer stop requested")
	}
}

func (p *Producer) run(ctx context.Context) {
	// The fault handler runs last so a fault shutdown sees Done closed.
	if p.faults != nil {
		defer p.faults.Recover("trace.producer")
	}
	defer close(p.done)
	defer p.finish()

	for {
		if !p.sleep(ctx, p.nextInterval()) {
			p.logger.Debug().Str("event", "trace.context_done").Msg("trace producer context done")
			return
		}
		if p.stopFlag.Load() {
			return
		}
		if err := p.emit(ctx); err != nil {
			// Fail closed: a broken bus must not keep the loop spinning.
			p.logger.Error().Err(err).Str("event", "trace.publish_failed").Msg("trace publish failed, stopping producer")
			p.stopFlag.Store(true)
			return
		}
	}
}

func (p *Producer) emit(ctx context.Context) error {
	seq := p.seq.Add(1)
	at := p.now()

	line, err := p.formatter.Format(seq, at)
	if err != nil {
		p.logger.Warn().Err(err).Uint64("seq", seq).Msg("trace formatter failed, using default")
		line, _ = DefaultFormatter{}.Format(seq, at)
	}

	if err := p.bus.Publish(ctx, messages.Trace{Line: line, Seq: seq, At: at}); err != nil {
		return err
	}
	p.emitted.Add(1)
	p.metrics.IncTrace()
	return nil
}

func (p *Producer) finish() {
	old := State(p.state.Swap(int32(StateStopped)))
	_ = p.scope.Close()
	p.metrics.SetProducerState(int(StateStopped))
	p.logger.Info().
		Str("event", "trace.producer_stopped").
		Str("old_state", old.String()).
		Uint64("emitted", p.emitted.Load()).
		Msg("trace producer stopped")
}

func (p *Producer) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Producer) nextInterval() time.Duration {
	lo := time.Duration(p.minInterval.Load())
	hi := time.Duration(p.maxInterval.Load())
	if hi <= lo {
		return lo
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return lo + time.Duration(p.rng.Int64N(int64(hi-lo)+1))
}

// SetIntervals changes the sleep bounds. It takes effect from the next cycle.
func (p *Producer) SetIntervals(minInterval, maxInterval time.Duration) error {
	if minInterval < 0 || maxInterval < minInterval {
		return ErrInvalidInterval
	}
	p.minInterval.Store(int64(minInterval))
	p.maxInterval.Store(int64(maxInterval))
	return nil
}

// Intervals returns the current sleep bounds.
func (p *Producer) Intervals() (time.Duration, time.Duration) {
	return time.Duration(p.minInterval.Load()), time.Duration(p.maxInterval.Load())
}

// State returns the current state.
func (p *Producer) State() State {
	return State(p.state.Load())
}

// Started reports whether Start has been called successfully.
func (p *Producer) Started() bool {
	return p.State() != StateNotStarted
}

// Emitted returns the number of lines published so far.
func (p *Producer) Emitted() uint64 {
	return p.emitted.Load()
}

// Done is closed once the producer reaches StateStopped. It is never
// closed for a producer that was not started.
func (p *Producer) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the producer stops or ctx is done.
func (p *Producer) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
