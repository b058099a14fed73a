// Package watch re-runs a callback when spec files change on disk.
package watch

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starforge/starforge/internal/logger"
)

// debounce coalesces editor save bursts into a single callback.
const debounce = 500 * time.Millisecond

// Watcher watches a set of files and invokes a callback after changes
// settle. The parent directories are watched rather than the files
// themselves, so editors that replace the file on save do not break the
// watch.
type Watcher struct {
	files    map[string]bool
	callback func() error
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher builds a watcher over the given files. The callback runs once
// immediately when Start is called, then again after each settled change.
func NewWatcher(files []string, callback func() error) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	watched := make(map[string]bool, len(files))
	dirs := make(map[string]bool)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("resolving %s: %w", file, err)
		}
		watched[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	return &Watcher{
		files:    watched,
		callback: callback,
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// Start runs the callback once, then watches in the background until Stop.
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		return err
	}

	go func() {
		log := logger.Get()
		timer := time.NewTimer(debounce)
		timer.Stop()
		var settled <-chan time.Time

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if abs, err := filepath.Abs(event.Name); err == nil && w.files[abs] {
					log.Debug("Spec file changed", "file", abs, "op", event.Op.String())
					timer.Reset(debounce)
					settled = timer.C
				}

			case <-settled:
				settled = nil
				if err := w.callback(); err != nil {
					log.Error("Watch callback failed", "error", err)
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				log.Error("File watcher error", "error", err)

			case <-w.done:
				return
			}
		}
	}()
	return nil
}

// Stop ends the watch and releases the underlying notifier.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
