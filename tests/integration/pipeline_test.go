package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rmax-ai/orbweaver/pkg/export"
	"github.com/rmax-ai/orbweaver/pkg/graph"
	"github.com/rmax-ai/orbweaver/pkg/metadata"
	"github.com/rmax-ai/orbweaver/pkg/physics"
	"github.com/rmax-ai/orbweaver/pkg/protocol"
	"github.com/rmax-ai/orbweaver/pkg/retry"
	"github.com/rmax-ai/orbweaver/pkg/service"
)

type frameSink struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *frameSink) Broadcast(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, append([]byte(nil), frame...))
}

func (f *frameSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *frameSink) last() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

// TestPipeline runs the whole in-process path: markdown ingestion, the JSON
// store, a graph build, live physics ticks, wire frames and a JSON export.
func TestPipeline(t *testing.T) {
	tmpDir := t.TempDir()

	// 1. Ingest a small corpus with wikilinks between the files
	writeFile(t, tmpDir, "alpha.md", "Alpha links to [[beta]] and [[beta]] again.")
	writeFile(t, tmpDir, "beta.md", "Beta links back to [[alpha]].")
	writeFile(t, tmpDir, "gamma.md", "Gamma stands alone.")

	records, err := metadata.ScanDirectory(tmpDir)
	if err != nil {
		t.Fatalf("ScanDirectory failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}

	store := metadata.NewJSONStore(filepath.Join(tmpDir, "metadata.json"))
	if err := store.Save(records); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Build the graph through the service
	sink := &frameSink{}
	svc := service.New(service.Config{
		Engine:      physics.NewEngine(nil, retry.Policy{MaxAttempts: 1}),
		Builder:     graph.NewBuilder(nil),
		Store:       store,
		Broadcaster: sink,
	})

	nodes, edges, err := svc.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if nodes != 3 {
		t.Errorf("Expected 3 nodes, got %d", nodes)
	}
	if edges != 1 {
		t.Errorf("Expected the alpha<->beta link pair to merge into 1 edge, got %d", edges)
	}

	// 3. Run the simulation for real ticks and watch frames arrive
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inst := svc.NewInstance(physics.DefaultParams(), time.Millisecond)
	inst.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	before := sink.count()
	for sink.count() < before+5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if sink.count() < before+5 {
		t.Fatal("Expected tick-driven frames within 2s")
	}

	if err := inst.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	// 4. Frames decode to the full node set
	wire, err := protocol.Decode(sink.last())
	if err != nil {
		t.Fatalf("Frame did not decode: %v", err)
	}
	if len(wire) != 3 {
		t.Errorf("Frame carried %d nodes, want 3", len(wire))
	}

	// 5. Export round-trips through the JSON writer
	writer, err := export.NewWriter(export.FormatJSON)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	var buf bytes.Buffer
	if err := writer.Write(&buf, svc.Graph()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	var doc struct {
		Nodes []graph.Node `json:"nodes"`
		Edges []graph.Edge `json:"edges"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("Export is not valid JSON: %v", err)
	}
	if len(doc.Nodes) != 3 || len(doc.Edges) != 1 {
		t.Errorf("Export content wrong: %d nodes, %d edges", len(doc.Nodes), len(doc.Edges))
	}

	// 6. Node ids assigned during the build were persisted
	saved, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for name, rec := range saved {
		if rec.NodeID == "" {
			t.Errorf("Record %s has no assigned node id", name)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
}
