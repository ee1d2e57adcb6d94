package api

import (
	"github.com/rmax-ai/orbweaver/pkg/service"
)

// HealthResponse matches GET /v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// RebuildResponse matches POST /v1/graph/rebuild.
type RebuildResponse struct {
	Status string `json:"status"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
}

// PositionsRequest matches POST /v1/nodes/positions.
type PositionsRequest struct {
	Updates []service.NodeUpdate `json:"updates"`
}

// PositionsResponse reports whether the batch passed the rate gate.
// Rejected batches are not errors: they are the limiter doing its job.
type PositionsResponse struct {
	Applied bool `json:"applied"`
}
