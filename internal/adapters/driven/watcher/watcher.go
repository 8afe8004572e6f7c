// Package watcher notices newly published index generations on disk.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
	"github.com/custodia-labs/replyguard/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.IndexWatcher = (*Watcher)(nil)

// DefaultDebounce coalesces the create and rename events of one publish.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches the pointer file of an index directory.
type Watcher struct {
	dir      string
	pointer  string
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for dir. pointer is the file name swapped on publish.
func New(dir, pointer string, opts ...Option) *Watcher {
	w := &Watcher{dir: dir, pointer: pointer, debounce: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is cancelled, calling onChange after each publish.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("index watcher error: %v", err)
		case <-timer.C:
			logger.Debug("index pointer changed in %s", w.dir)
			onChange()
		}
	}
}

// relevant reports whether ev points the index at a new generation.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.pointer {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}
