package client

import (
	"github.com/rmax-ai/orbweaver/pkg/graph"
)

// Health is the daemon health check response.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// GraphPage is one page of graph data plus totals.
type GraphPage struct {
	Nodes      []graph.Node `json:"nodes"`
	Edges      []graph.Edge `json:"edges"`
	TotalNodes int          `json:"totalNodes"`
	TotalEdges int          `json:"totalEdges"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
}

// RebuildResult reports a completed graph rebuild.
type RebuildResult struct {
	Status string `json:"status"`
	Nodes  int    `json:"nodes"`
	Edges  int    `json:"edges"`
}

// NodeUpdate is one externally computed position/velocity change.
type NodeUpdate struct {
	ID       uint32     `json:"id"`
	Position graph.Vec3 `json:"position"`
	Velocity graph.Vec3 `json:"velocity"`
}

// Diagnostics mirrors the daemon's lifecycle diagnostics snapshot.
type Diagnostics struct {
	Available          bool   `json:"available"`
	InstanceID         string `json:"instanceId,omitempty"`
	ActiveID           string `json:"activeId,omitempty"`
	IsActive           bool   `json:"isActive"`
	Running            bool   `json:"running"`
	ShutdownRequested  bool   `json:"shutdownRequested"`
	AcceleratorPresent bool   `json:"acceleratorPresent"`
}
