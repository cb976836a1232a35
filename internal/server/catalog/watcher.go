package catalog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/kitkeeper/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// reloadDelay lets editors finish writing before the file is read.
const reloadDelay = 100 * time.Millisecond

// Watcher reloads a Catalog when its kits file changes on disk.
type Watcher struct {
	catalog  *Catalog
	path     string
	watcher  *fsnotify.Watcher
	logger   logging.Logger
	stopChan chan struct{}
	done     chan struct{}
	started  bool
}

func NewWatcher(catalog *Catalog, path string, logger logging.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &Watcher{
		catalog:  catalog,
		path:     filepath.Clean(path),
		watcher:  w,
		logger:   logger.With("module", "catalog-watcher"),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start watches the directory holding the kits file; editors and our own
// atomic writes replace the file rather than modify it in place.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.started = true
	go w.watch()
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	select {
	case <-w.stopChan:
		return
	default:
		close(w.stopChan)
	}
	w.watcher.Close()
	if w.started {
		<-w.done
	}
}

func (w *Watcher) watch() {
	defer close(w.done)
	ctx := context.Background()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			time.Sleep(reloadDelay)
			w.logger.Info(ctx, "kits file changed", "op", event.Op.String())
			if err := w.catalog.Reload(ctx); err != nil {
				w.logger.Error(ctx, "kits reload failed, keeping previous catalog", "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error(ctx, "kits watcher error", "error", err)

		case <-w.stopChan:
			return
		}
	}
}
