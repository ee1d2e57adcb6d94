package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/rmax-ai/orbweaver/pkg/blob"
	"github.com/rmax-ai/orbweaver/pkg/export"
	"github.com/rmax-ai/orbweaver/pkg/graph"
)

// Archiver persists timestamped graph snapshots into a blob store, one per
// successful rebuild. Snapshots are for offline analysis and rollback; the
// live pipeline never reads them back.
type Archiver struct {
	store  blob.Store
	writer export.Writer
	ext    string
	clock  clockwork.Clock
}

// NewArchiver creates an archiver writing snapshots in the given format.
func NewArchiver(store blob.Store, format export.Format, clock clockwork.Clock) (*Archiver, error) {
	writer, err := export.NewWriter(format)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Archiver{store: store, writer: writer, ext: string(format), clock: clock}, nil
}

// Archive writes one snapshot and returns its key.
func (a *Archiver) Archive(ctx context.Context, g *graph.GraphData) (string, error) {
	var buf bytes.Buffer
	if err := a.writer.Write(&buf, g); err != nil {
		return "", fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	key := snapshotKey(a.clock.Now(), a.ext)
	if err := a.store.Put(ctx, key, &buf); err != nil {
		return "", fmt.Errorf("failed to store snapshot: %w", err)
	}
	return key, nil
}

// List returns all snapshot keys, oldest first.
func (a *Archiver) List(ctx context.Context) ([]string, error) {
	return a.store.List(ctx, "snapshots")
}

func snapshotKey(t time.Time, ext string) string {
	return fmt.Sprintf("snapshots/%s/graph-%s.%s", t.UTC().Format("2006-01-02"), t.UTC().Format("150405"), ext)
}
