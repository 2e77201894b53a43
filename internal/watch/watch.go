// Package watch reports changes to a single data file using fsnotify.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long writes must be quiet before a change fires.
const DefaultDebounce = 250 * time.Millisecond

// Watcher monitors one file. Editors and exporters often replace a file
// rather than writing it in place, so the parent directory is watched and
// events are filtered by name.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Log      *slog.Logger

	fw *fsnotify.Watcher
}

// New starts watching path's directory. Close it with Run's context or Close.
func New(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{Path: abs, Debounce: DefaultDebounce, Log: slog.Default(), fw: fw}, nil
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error { return w.fw.Close() }

// Run calls onChange once per burst of writes, creates or renames of the
// file until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context, onChange func()) error {
	defer w.fw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.Path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.Log.Debug("data file changed", "path", w.Path)
			onChange()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			// Non-fatal; keep watching.
			w.Log.Warn("watch error", "path", w.Path, "error", err)
		}
	}
}
