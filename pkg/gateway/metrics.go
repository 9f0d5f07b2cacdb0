package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway. A nil *Metrics is
// valid and records nothing, which keeps tests free of registry conflicts.
type Metrics struct {
	activeConnections prometheus.Gauge
	onlineUsers       prometheus.Gauge

	broadcastsTotal   *prometheus.CounterVec
	broadcastFanout   prometheus.Histogram
	refusedBroadcasts prometheus.Counter

	heartbeatTerminations prometheus.Counter
	handshakeRejections   prometheus.Counter
}

// NewMetrics creates and registers all gateway metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		activeConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "teamline_active_connections",
			Help: "Current number of live client connections",
		}),
		onlineUsers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "teamline_online_users",
			Help: "Current number of identities with at least one live connection",
		}),
		broadcastsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "teamline_broadcasts_total",
			Help: "Total number of broadcast events by type",
		}, []string{"type"}),
		broadcastFanout: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "teamline_broadcast_fanout",
			Help:    "Number of connections each broadcast was delivered to",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		refusedBroadcasts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamline_refused_broadcasts_total",
			Help: "Broadcasts refused because the recipient set resolved empty",
		}),
		heartbeatTerminations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamline_heartbeat_terminations_total",
			Help: "Connections terminated for failing the liveness check",
		}),
		handshakeRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "teamline_handshake_rejections_total",
			Help: "WebSocket handshakes rejected for missing or invalid credentials",
		}),
	}
}

// RecordRegistrySize updates the connection and online-user gauges.
func (m *Metrics) RecordRegistrySize(connections, users int) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(connections))
	m.onlineUsers.Set(float64(users))
}

// RecordBroadcast records one broadcast and its fanout.
func (m *Metrics) RecordBroadcast(eventType string, delivered int) {
	if m == nil {
		return
	}
	m.broadcastsTotal.WithLabelValues(eventType).Inc()
	m.broadcastFanout.Observe(float64(delivered))
}

// RecordRefusedBroadcast records an empty-recipient refusal.
func (m *Metrics) RecordRefusedBroadcast() {
	if m == nil {
		return
	}
	m.refusedBroadcasts.Inc()
}

// RecordHeartbeatTermination records a connection reaped by the sweep.
func (m *Metrics) RecordHeartbeatTermination() {
	if m == nil {
		return
	}
	m.heartbeatTerminations.Inc()
}

// RecordHandshakeRejection records a refused handshake.
func (m *Metrics) RecordHandshakeRejection() {
	if m == nil {
		return
	}
	m.handshakeRejections.Inc()
}
