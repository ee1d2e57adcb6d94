package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ticksTotal counts completed physics ticks by outcome
	ticksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbweaver_ticks_total",
			Help: "Physics ticks executed, labelled by outcome",
		},
		[]string{"outcome"},
	)

	// tickDuration tracks how long one tick takes end to end
	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbweaver_tick_duration_seconds",
			Help:    "Wall time of one physics tick",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
	)

	// broadcastsTotal counts frames handed to the client registry
	broadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbweaver_broadcasts_total",
			Help: "Position frames handed to the broadcaster",
		},
	)

	// buildsTotal counts graph rebuilds by outcome
	buildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbweaver_builds_total",
			Help: "Graph rebuilds, labelled by outcome",
		},
		[]string{"outcome"},
	)

	// graphNodes reports the size of the current graph
	graphNodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbweaver_graph_nodes",
			Help: "Nodes in the current graph",
		},
	)

	// graphEdges reports the edge count of the current graph
	graphEdges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbweaver_graph_edges",
			Help: "Edges in the current graph",
		},
	)

	// updatesTotal counts externally submitted position updates
	updatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbweaver_node_updates_total",
			Help: "Externally submitted position updates, labelled accepted or rejected",
		},
		[]string{"result"},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(ticksTotal)
	prometheus.MustRegister(tickDuration)
	prometheus.MustRegister(broadcastsTotal)
	prometheus.MustRegister(buildsTotal)
	prometheus.MustRegister(graphNodes)
	prometheus.MustRegister(graphEdges)
	prometheus.MustRegister(updatesTotal)
}
