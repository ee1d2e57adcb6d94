package e2e_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/rmax-ai/orbweaver/pkg/client"
	"github.com/rmax-ai/orbweaver/pkg/protocol"
)

// TestEndToEnd exercises a running daemon: health, rebuild, graph paging,
// the live frame stream and the metrics endpoint. It needs orbweaver-d
// started separately against a populated metadata file.
func TestEndToEnd(t *testing.T) {
	if os.Getenv("E2E") != "true" {
		t.Skip("Skipping e2e test")
	}

	endpoint := os.Getenv("ORBWEAVER_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:8090"
	}

	c := client.NewClient(endpoint)

	// Poll health until the daemon is up
	var err error
	for i := 0; i < 30; i++ {
		_, err = c.Health(context.Background())
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		t.Fatalf("Daemon not healthy after 30 seconds: %v", err)
	}

	// Rebuild and verify the graph has content
	res, err := c.Rebuild(context.Background())
	if err != nil && !errors.Is(err, client.ErrRebuildInProgress) {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if err == nil && res.Nodes == 0 {
		t.Fatal("Expected a non-empty graph after rebuild")
	}

	page, err := c.GraphPage(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("GraphPage failed: %v", err)
	}
	if page.TotalNodes == 0 {
		t.Fatal("Expected graph to have nodes")
	}

	// The broadcast loop should deliver at least one binary frame
	streamCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var got int
	err = c.StreamFrames(streamCtx, func(nodes []protocol.WireNode) error {
		got = len(nodes)
		cancel()
		return nil
	})
	if got == 0 {
		t.Fatalf("Expected a position frame within 5s, last error: %v", err)
	}
	if got != page.TotalNodes {
		t.Errorf("Frame carried %d nodes, graph has %d", got, page.TotalNodes)
	}

	// Prometheus endpoint is serving
	resp, err := http.Get(endpoint + "/metrics")
	if err != nil {
		t.Fatalf("Metrics endpoint unreachable: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from /metrics, got %d", resp.StatusCode)
	}
}
