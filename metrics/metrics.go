package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wippyai/hostbridge/handle"
)

const namespace = "hostbridge"

// Metrics holds the bridge's Prometheus collectors.
type Metrics struct {
	// Handle metrics
	HandlesLive *prometheus.GaugeVec
	HandleOps   *prometheus.CounterVec

	// Input metrics
	InputRecords prometheus.Counter
	FlushBytes   prometheus.Histogram

	// Guest metrics
	AllocFailures prometheus.Counter
	GuestCalls    *prometheus.CounterVec
	TickDuration  prometheus.Histogram

	// Socket metrics
	SocketsOpen    prometheus.Gauge
	SocketMessages *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the bridge collectors with reg. Pass a fresh
// prometheus.NewRegistry() per bridge in tests to avoid duplicate
// registration.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,

		HandlesLive: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "handles_live",
				Help:      "Number of live handles per category",
			},
			[]string{"category"},
		),
		HandleOps: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handle_operations_total",
				Help:      "Handle lifecycle operations",
			},
			[]string{"category", "op"},
		),

		InputRecords: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "input_records_total",
				Help:      "Input records flushed to the guest",
			},
		),
		FlushBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "input_flush_bytes",
				Help:      "Bytes written per input flush",
				Buckets:   prometheus.ExponentialBuckets(12, 2, 8),
			},
		),

		AllocFailures: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alloc_failures_total",
				Help:      "Guest allocations that failed",
			},
		),
		GuestCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "guest_calls_total",
				Help:      "Calls into guest exports",
			},
			[]string{"export", "status"},
		),
		TickDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tick_duration_seconds",
				Help:      "Time spent in one bridge tick",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .016, .033, .1},
			},
		),

		SocketsOpen: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sockets_open",
				Help:      "Open socket connections",
			},
		),
		SocketMessages: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "socket_messages_total",
				Help:      "Socket messages by direction",
			},
			[]string{"direction"},
		),
	}
}

// OnHandleEvent implements handle.Observer.
func (m *Metrics) OnHandleEvent(e handle.Event) {
	category := string(e.Category)
	m.HandleOps.WithLabelValues(category, e.Type.String()).Inc()
	switch e.Type {
	case handle.EventCreated:
		m.HandlesLive.WithLabelValues(category).Inc()
	case handle.EventRemoved, handle.EventTaken:
		m.HandlesLive.WithLabelValues(category).Dec()
	}
}

// ObserveFlush records one input flush.
func (m *Metrics) ObserveFlush(records int, bytes uint32) {
	m.InputRecords.Add(float64(records))
	m.FlushBytes.Observe(float64(bytes))
}

// ObserveCall records a guest export call.
func (m *Metrics) ObserveCall(export string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.GuestCalls.WithLabelValues(export, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
