package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/rmax-ai/orbweaver/pkg/graph"
)

// CSVWriter emits two sections in one stream: a node table, a blank line,
// then an edge table. Spreadsheet-friendly for quick inspection.
type CSVWriter struct{}

func (*CSVWriter) ContentType() string { return "text/csv" }

func (*CSVWriter) Write(w io.Writer, g *graph.GraphData) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"id", "key", "label", "x", "y", "z", "mass", "flags"}); err != nil {
		return err
	}
	for _, n := range g.Nodes {
		row := []string{
			strconv.FormatUint(uint64(n.ID), 10),
			n.MetadataKey,
			n.Label,
			formatFloat(n.Position.X),
			formatFloat(n.Position.Y),
			formatFloat(n.Position.Z),
			strconv.Itoa(int(n.Mass)),
			strconv.Itoa(int(n.Flags)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	cw = csv.NewWriter(w)
	if err := cw.Write([]string{"source", "target", "weight"}); err != nil {
		return err
	}
	for _, e := range g.Edges {
		row := []string{
			strconv.FormatUint(uint64(e.Source), 10),
			strconv.FormatUint(uint64(e.Target), 10),
			formatFloat(e.Weight),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
