package catalog

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"capdeck/internal/ports"
)

// Watcher signals catalog refreshes when the recordings folder changes on
// disk outside the app (files copied in, deleted by hand).
type Watcher struct {
	events ports.EventSink

	mu      sync.Mutex
	fs      *fsnotify.Watcher
	watched string
	closed  bool
}

func NewWatcher(events ports.EventSink) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{events: events, fs: fs}
	go w.run()
	return w, nil
}

// Watch switches the watched directory to path, dropping the previous one.
func (w *Watcher) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	if w.watched == path {
		return nil
	}
	if w.watched != "" {
		_ = w.fs.Remove(w.watched)
	}
	if err := w.fs.Add(path); err != nil {
		return err
	}
	w.watched = path
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				w.events.CatalogChanged()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.events.CatalogWarning(err.Error())
		}
	}
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.fs.Close()
}
