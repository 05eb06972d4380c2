// Package telemetry exposes Prometheus metrics for stream sessions.
//
// [Metrics] satisfies pulsefeed.SessionObserver, so a single instance can
// be shared by every session of a feed. Collectors are registered on a
// caller-supplied registry rather than the global default.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pulsefeed"

// Metrics holds the per-stream session collectors.
type Metrics struct {
	Connected         *prometheus.GaugeVec
	MessagesReceived  *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec
	HeartbeatTimeouts *prometheus.CounterVec
	TransportErrors   *prometheus.CounterVec
	Reconnects        *prometheus.CounterVec
}

// NewMetrics creates the collectors. Call [Metrics.Register] before use.
func NewMetrics() *Metrics {
	return &Metrics{
		Connected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "connected",
				Help:      "Whether the stream is connected (1) or disconnected (0)",
			},
			[]string{"stream"},
		),
		MessagesReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "messages_received_total",
				Help:      "Total number of stream messages decoded and applied",
			},
			[]string{"stream"},
		),
		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "messages_dropped_total",
				Help:      "Total number of stream messages discarded as malformed",
			},
			[]string{"stream"},
		),
		HeartbeatTimeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "heartbeat_timeouts_total",
				Help:      "Total number of connections declared stale by the heartbeat",
			},
			[]string{"stream"},
		),
		TransportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "transport_errors_total",
				Help:      "Total number of transport errors and server-side closes",
			},
			[]string{"stream"},
		),
		Reconnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "reconnects_scheduled_total",
				Help:      "Total number of reconnect attempts scheduled",
			},
			[]string{"stream"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.Connected,
		m.MessagesReceived,
		m.MessagesDropped,
		m.HeartbeatTimeouts,
		m.TransportErrors,
		m.Reconnects,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ConnectionChanged sets the connected gauge.
func (m *Metrics) ConnectionChanged(stream string, connected bool) {
	v := 0.0
	if connected {
		v = 1
	}
	m.Connected.WithLabelValues(stream).Set(v)
}

// MessageReceived counts an applied message.
func (m *Metrics) MessageReceived(stream string) {
	m.MessagesReceived.WithLabelValues(stream).Inc()
}

// MessageDropped counts a discarded message.
func (m *Metrics) MessageDropped(stream string, _ error) {
	m.MessagesDropped.WithLabelValues(stream).Inc()
}

// HeartbeatExpired counts a heartbeat timeout.
func (m *Metrics) HeartbeatExpired(stream string) {
	m.HeartbeatTimeouts.WithLabelValues(stream).Inc()
}

// TransportFailed counts a transport error.
func (m *Metrics) TransportFailed(stream string, _ error) {
	m.TransportErrors.WithLabelValues(stream).Inc()
}

// ReconnectScheduled counts a scheduled reconnect.
func (m *Metrics) ReconnectScheduled(stream string) {
	m.Reconnects.WithLabelValues(stream).Inc()
}
