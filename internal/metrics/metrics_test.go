package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncPublished("trace.event")
	m.IncPublished("trace.event")
	m.IncDelivered("trace.event")
	m.IncHandlerError("window.close")
	m.IncHandlerPanic("")
	m.IncTrace()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BusPublished.WithLabelValues("trace.event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusDelivered.WithLabelValues("trace.event")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusHandlerErrors.WithLabelValues("window.close")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BusHandlerPanics.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TracesEmitted))
}

func TestMetrics_Gauges(t *testing.T) {
	m := New(nil)

	m.SetProducerState(3)
	m.SetShutdownState(4)
	m.SetQueueDepth(7)
	m.SetSubscriptions(2)
	m.ObserveShutdown(300 * time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.ProducerState))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ShutdownState))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.UIQueueDepth))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BusSubscriptions))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ShutdownDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncPublished("x")
		m.IncDelivered("x")
		m.IncHandlerError("x")
		m.IncHandlerPanic("x")
		m.IncTrace()
		m.SetProducerState(1)
		m.SetShutdownState(1)
		m.SetQueueDepth(1)
		m.SetSubscriptions(1)
		m.IncUIPanic()
		m.ObserveShutdown(time.Second)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(nil)
	m.IncTrace()

	srv := httptest.NewServer(m.NewServer("").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	buf := new(strings.Builder)
	_, err = io.Copy(buf, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "multiwin_trace_events_total 1")
}
