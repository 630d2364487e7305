package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the relay server.
type Metrics struct {
	registry *prometheus.Registry

	// ConnectedClients tracks currently open websocket connections.
	ConnectedClients prometheus.Gauge
	// EventsRelayed counts inbound events accepted by the relay, by event name.
	EventsRelayed *prometheus.CounterVec
	// EventsDropped counts inbound events dropped before any room effect
	// (unbound connection, vanished room, malformed frame).
	EventsDropped *prometheus.CounterVec
	// JoinsRejected counts joinRoom attempts turned away with roomFull.
	JoinsRejected prometheus.Counter
}

// NewMetrics registers all relay collectors on a fresh registry.
// roomCount is sampled on scrape for the active room gauge.
//
// Precondition: roomCount must be non-nil and safe for concurrent use.
// Postcondition: Returns a Metrics with all collectors registered.
func NewMetrics(roomCount func() int) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connected_clients",
			Help: "Number of currently connected websocket clients.",
		}),
		EventsRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_relayed_total",
			Help: "Inbound events accepted by the relay, by event name.",
		}, []string{"event"}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_events_dropped_total",
			Help: "Inbound events dropped before any room effect, by reason.",
		}, []string{"reason"}),
		JoinsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_joins_rejected_total",
			Help: "Join attempts rejected because the room already had two players.",
		}),
	}

	reg.MustRegister(
		m.ConnectedClients,
		m.EventsRelayed,
		m.EventsDropped,
		m.JoinsRejected,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "relay_active_rooms",
			Help: "Number of rooms currently held by the registry.",
		}, func() float64 { return float64(roomCount()) }),
	)

	return m
}

// Handler exposes the collectors for scraping at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
