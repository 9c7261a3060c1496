// Package metrics exposes the Prometheus collectors shared by the bus, the
// trace producer, the lifecycle coordinator and the UI loop.
//
// All methods are safe on a nil *Metrics so components can run without
// instrumentation.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "multiwin"

// Metrics holds every collector registered for one process.
type Metrics struct {
	BusPublished     *prometheus.CounterVec
	BusDelivered     *prometheus.CounterVec
	BusHandlerErrors *prometheus.CounterVec
	BusHandlerPanics *prometheus.CounterVec
	BusSubscriptions prometheus.Gauge

	TracesEmitted prometheus.Counter
	ProducerState prometheus.Gauge

	ShutdownState    prometheus.Gauge
	ShutdownDuration prometheus.Histogram

	UIQueueDepth prometheus.Gauge
	UIPanics     prometheus.Counter

	gatherer prometheus.Gatherer
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	f := promauto.With(reg)

	return &Metrics{
		BusPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_published_total",
			Help:      "Messages published on the bus by kind",
		}, []string{"kind"}),
		BusDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_delivered_total",
			Help:      "Successful handler deliveries by kind",
		}, []string{"kind"}),
		BusHandlerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_handler_errors_total",
			Help:      "Handlers that returned an error by kind",
		}, []string{"kind"}),
		BusHandlerPanics: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_handler_panics_total",
			Help:      "Handlers that panicked by kind",
		}, []string{"kind"}),
		BusSubscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bus_subscriptions",
			Help:      "Live bus subscriptions",
		}),
		TracesEmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trace_events_total",
			Help:      "Trace lines emitted by the background producer",
		}),
		ProducerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trace_producer_state",
			Help:      "Producer state (0 not started, 1 running, 2 stop requested, 3 stopped)",
		}),
		ShutdownState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "shutdown_state",
			Help:      "Shutdown state (0 idle, 1 requested, 2 awaiting producer, 3 awaiting windows, 4 complete)",
		}),
		ShutdownDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "shutdown_duration_seconds",
			Help:      "Time from shutdown request to completion",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		UIQueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ui_queue_depth",
			Help:      "Callbacks waiting on the UI goroutine",
		}),
		UIPanics: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ui_callback_panics_total",
			Help:      "UI callbacks that panicked",
		}),
		gatherer: gatherer,
	}
}

func kindLabel(kind string) string {
	if kind == "" {
		return "unknown"
	}
	return kind
}

// IncPublished records one published message.
func (m *Metrics) IncPublished(kind string) {
	if m == nil {
		return
	}
	m.BusPublished.WithLabelValues(kindLabel(kind)).Inc()
}

// IncDelivered records one successful delivery.
func (m *Metrics) IncDelivered(kind string) {
	if m == nil {
		return
	}
	m.BusDelivered.WithLabelValues(kindLabel(kind)).Inc()
}

// IncHandlerError records a handler returning an error.
func (m *Metrics) IncHandlerError(kind string) {
	if m == nil {
		return
	}
	m.BusHandlerErrors.WithLabelValues(kindLabel(kind)).Inc()
}

// IncHandlerPanic records a recovered handler panic.
func (m *Metrics) IncHandlerPanic(kind string) {
	if m == nil {
		return
	}
	m.BusHandlerPanics.WithLabelValues(kindLabel(kind)).Inc()
}

// SetSubscriptions sets the live subscription gauge.
func (m *Metrics) SetSubscriptions(n int) {
	if m == nil {
		return
	}
	m.BusSubscriptions.Set(float64(n))
}

// IncTrace records one emitted trace line.
func (m *Metrics) IncTrace() {
	if m == nil {
		return
	}
	m.TracesEmitted.Inc()
}

// SetProducerState records the producer state ordinal.
func (m *Metrics) SetProducerState(state int) {
	if m == nil {
		return
	}
	m.ProducerState.Set(float64(state))
}

// SetShutdownState records the shutdown state ordinal.
func (m *Metrics) SetShutdownState(state int) {
	if m == nil {
		return
	}
	m.ShutdownState.Set(float64(state))
}

// ObserveShutdown records a completed shutdown sequence.
func (m *Metrics) ObserveShutdown(d time.Duration) {
	if m == nil {
		return
	}
	m.ShutdownDuration.Observe(d.Seconds())
}

// SetQueueDepth records the UI queue depth.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.UIQueueDepth.Set(float64(n))
}

// IncUIPanic records a panicking UI callback.
func (m *Metrics) IncUIPanic() {
	if m == nil {
		return
	}
	m.UIPanics.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	g := prometheus.DefaultGatherer
	if m != nil && m.gatherer != nil {
		g = m.gatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing /metrics on addr.
func (m *Metrics) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ListenAndServe runs srv until it is shut down. http.ErrServerClosed is
// reported as nil.
func ListenAndServe(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
