// Package watcher reports when one file changes on disk, coalescing bursts
// of writes into a single callback.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zjrosen/regform/internal/debounce"
	"github.com/zjrosen/regform/internal/log"
)

// DefaultDebounce is the quiet period after the last write.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches a single file through its parent directory, so an editor
// that saves by writing a temp file and renaming it over the original is
// still noticed.
type Watcher struct {
	path  string
	delay time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay overrides DefaultDebounce. Non-positive values are ignored.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// New prepares a watcher for path. Nothing is watched until Run.
func New(path string, opts ...Option) (*Watcher, error) {
	if path == "" {
		return nil, errors.New("watcher: path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watcher: resolving %s: %w", path, err)
	}
	w := &Watcher{path: abs, delay: DefaultDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run blocks until ctx ends, calling onChange after each burst of changes
// to the file. Calls happen on Run's goroutine, one at a time; a burst that
// settles while onChange is still running produces one more call.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	dir := filepath.Dir(w.path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watcher: watching %s: %w", dir, err)
	}
	log.Debug(log.CatWatcher, "watching", "path", w.path, "delay", w.delay)

	settled := make(chan struct{}, 1)
	d := debounce.New(w.delay, func(struct{}) {
		select {
		case settled <- struct{}{}:
		default:
		}
	})
	defer d.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-settled:
			onChange(w.path)
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.matches(ev) {
				log.Debug(log.CatWatcher, "file event", "path", ev.Name, "op", ev.Op.String())
				d.Trigger(struct{}{})
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn(log.CatWatcher, "watch error", "path", w.path, "error", err)
		}
	}
}

// matches keeps writes, creates and renames of the watched file only.
func (w *Watcher) matches(ev fsnotify.Event) bool {
	const ops = fsnotify.Write | fsnotify.Create | fsnotify.Rename
	return ev.Op&ops != 0 && filepath.Clean(ev.Name) == w.path
}
