package metadata

import (
	"path/filepath"
	"testing"
	"time"
)

func sampleRecords() map[string]Record {
	processed := time.Date(2025, 5, 20, 8, 30, 0, 0, time.UTC)
	return map[string]Record{
		"alpha.md": {
			FileName:       "alpha.md",
			FileSize:       2048,
			NodeSize:       4.3,
			HyperlinkCount: 2,
			SHA1:           "0a1b",
			NodeID:         "7",
			LastModified:   time.Date(2025, 5, 19, 10, 0, 0, 0, time.UTC),
			ExternalLink:   "https://example.com/alpha",
			LastProcessed:  &processed,
			TopicCounts:    map[string]int{"beta": 3, "gamma": 1},
		},
		"beta.md": {
			FileName:     "beta.md",
			FileSize:     100,
			SHA1:         "2c3d",
			LastModified: time.Date(2025, 5, 18, 9, 0, 0, 0, time.UTC),
			TopicCounts:  map[string]int{},
		},
	}
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	// 1. Setup in-memory store
	st, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	// 2. Save and reload the sample set
	if err := st.Save(sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := st.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(loaded))
	}

	// 3. Field round trip
	alpha := loaded["alpha.md"]
	if alpha.NodeID != "7" {
		t.Errorf("Expected NodeID 7, got %q", alpha.NodeID)
	}
	if alpha.TopicCounts["beta"] != 3 {
		t.Errorf("Expected topic count beta=3, got %d", alpha.TopicCounts["beta"])
	}
	if alpha.LastProcessed == nil {
		t.Error("Expected LastProcessed to survive the round trip")
	}
	if alpha.ExternalLink != "https://example.com/alpha" {
		t.Errorf("Unexpected external link %q", alpha.ExternalLink)
	}
	beta := loaded["beta.md"]
	if beta.LastProcessed != nil {
		t.Error("Expected nil LastProcessed for beta")
	}

	// 4. Save is wholesale: a smaller set removes stale rows
	if err := st.Save(map[string]Record{"beta.md": beta}); err != nil {
		t.Fatalf("Second save failed: %v", err)
	}
	loaded, err = st.Load()
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Errorf("Expected wholesale replace to leave 1 record, got %d", len(loaded))
	}
}

func TestSQLiteStore_Get(t *testing.T) {
	st, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Save(sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	rec, ok, err := st.Get("alpha.md")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected alpha.md to exist")
	}
	if rec.FileSize != 2048 {
		t.Errorf("Expected FileSize 2048, got %d", rec.FileSize)
	}

	_, ok, err = st.Get("missing.md")
	if err != nil {
		t.Fatalf("Get for missing record errored: %v", err)
	}
	if ok {
		t.Error("Expected missing.md to be absent")
	}
}

func TestJSONStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	st := NewJSONStore(path)

	// Missing file reads as empty, not an error
	loaded, err := st.Load()
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty set for missing file, got %d", len(loaded))
	}

	if err := st.Save(sampleRecords()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err = st.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(loaded))
	}
	if loaded["alpha.md"].TopicCounts["gamma"] != 1 {
		t.Errorf("Topic counts lost in round trip: %+v", loaded["alpha.md"].TopicCounts)
	}

	rec, ok, err := st.Get("beta.md")
	if err != nil || !ok {
		t.Fatalf("Get beta.md = (%v, %v), want hit", ok, err)
	}
	if rec.FileSize != 100 {
		t.Errorf("Expected FileSize 100, got %d", rec.FileSize)
	}
}

func TestRecord_Clone(t *testing.T) {
	recs := sampleRecords()
	orig := recs["alpha.md"]
	clone := orig.Clone()

	clone.TopicCounts["beta"] = 99
	*clone.LastProcessed = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	if orig.TopicCounts["beta"] == 99 {
		t.Error("Clone shares topic counts with original")
	}
	if orig.LastProcessed.Year() == 2030 {
		t.Error("Clone shares LastProcessed pointer with original")
	}
}
