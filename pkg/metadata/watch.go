package metadata

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the metadata file and invokes a callback when it changes,
// debounced so editors and atomic-rename writers don't trigger storms of
// rebuilds.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()
}

// NewWatcher creates a watcher for the file at path. A debounce of zero
// defaults to 500ms.
func NewWatcher(path string, debounce time.Duration, onChange func()) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{path: path, debounce: debounce, onChange: onChange}
}

// Run watches until the context is cancelled. The parent directory is
// watched rather than the file itself, because rename-based saves replace
// the inode pathlessly.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(w.path)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	fire := make(chan struct{}, 1)
	slog.Info("Metadata watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Metadata watcher error", "error", err)
		case <-fire:
			slog.Info("Metadata change detected", "path", w.path)
			if w.onChange != nil {
				w.onChange()
			}
		}
	}
}
