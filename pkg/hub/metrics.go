package hub

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// sessionsGauge tracks currently connected viewers
	sessionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbweaver_ws_sessions",
			Help: "Number of connected WebSocket viewers",
		},
	)

	// framesSent counts per-session frame deliveries
	framesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbweaver_ws_frames_sent_total",
			Help: "Total position frames written to viewers",
		},
	)

	// bytesSent counts payload bytes written to viewers
	bytesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbweaver_ws_bytes_sent_total",
			Help: "Total payload bytes written to viewers",
		},
	)

	// sendFailures counts writes that dropped a session
	sendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbweaver_ws_send_failures_total",
			Help: "Total failed frame writes that disconnected a viewer",
		},
	)

	// relayPublished counts frames published to the relay channel
	relayPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbweaver_relay_published_total",
			Help: "Total frames published to the redis relay channel",
		},
	)

	// relayReceived counts frames received from other replicas
	relayReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbweaver_relay_received_total",
			Help: "Total frames received from the redis relay channel",
		},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(sessionsGauge)
	prometheus.MustRegister(framesSent)
	prometheus.MustRegister(bytesSent)
	prometheus.MustRegister(sendFailures)
	prometheus.MustRegister(relayPublished)
	prometheus.MustRegister(relayReceived)
}
