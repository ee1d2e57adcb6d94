package export

import (
	"encoding/json"
	"io"

	"github.com/rmax-ai/orbweaver/pkg/graph"
)

// jsonDocument is the on-disk shape the viewer's loader reads: nodes and
// edges side by side, metadata omitted.
type jsonDocument struct {
	Nodes []jsonNode   `json:"nodes"`
	Edges []graph.Edge `json:"edges"`
}

type jsonNode struct {
	ID       uint32            `json:"id"`
	Key      string            `json:"key"`
	Label    string            `json:"label"`
	Position graph.Vec3        `json:"position"`
	Velocity graph.Vec3        `json:"velocity"`
	Mass     uint8             `json:"mass"`
	Flags    uint8             `json:"flags"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// JSONWriter emits the graph as one indented JSON document.
type JSONWriter struct{}

func (*JSONWriter) ContentType() string { return "application/json" }

func (*JSONWriter) Write(w io.Writer, g *graph.GraphData) error {
	doc := jsonDocument{
		Nodes: make([]jsonNode, len(g.Nodes)),
		Edges: g.Edges,
	}
	for i, n := range g.Nodes {
		doc.Nodes[i] = jsonNode{
			ID:       n.ID,
			Key:      n.MetadataKey,
			Label:    n.Label,
			Position: n.Position,
			Velocity: n.Velocity,
			Mass:     n.Mass,
			Flags:    n.Flags,
			Metadata: n.Metadata,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
