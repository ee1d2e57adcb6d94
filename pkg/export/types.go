// Package export writes graph snapshots in viewer-loadable formats.
package export

import (
	"io"

	"github.com/rmax-ai/orbweaver/pkg/graph"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Writer serializes one graph snapshot to w.
type Writer interface {
	Write(w io.Writer, g *graph.GraphData) error
	// ContentType is the MIME type served for this format.
	ContentType() string
}
