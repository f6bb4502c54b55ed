// Package watch reloads a local document whenever it changes on disk.
package watch

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const DefaultDebounce = 200 * time.Millisecond

// Loader is satisfied by *viewer.Viewer.
type Loader interface {
	LoadFromFile(ctx context.Context, location string) error
}

type Watcher struct {
	Path     string
	Loader   Loader
	Debounce time.Duration
}

// Run watches the directory containing Path, since editors often replace
// files instead of writing them in place, and reloads Path after a burst of
// events settles. It returns when ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	path, err := filepath.Abs(w.Path)
	if err != nil {
		return errors.Wrapf(err, "resolve %q", w.Path)
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer fsw.Close()

	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return errors.Wrapf(err, "watch %q", filepath.Dir(path))
	}
	log.Printf("[watch] watching %s", path)

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[watch] error: %v", err)
		case <-timer.C:
			log.Printf("[watch] %s changed, reloading", path)
			if err := w.Loader.LoadFromFile(ctx, path); err != nil {
				log.Printf("[watch] reload failed: %v", err)
			}
		}
	}
}
