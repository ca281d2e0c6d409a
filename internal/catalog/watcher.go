package catalog

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchSettle is how long a new archive must stay quiet before it is
// registered, so half-written files are not picked up.
const watchSettle = 250 * time.Millisecond

// Watcher watches a directory and registers snapshot archives as they
// appear.
type Watcher struct {
	cat     *Catalog
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer

	done chan struct{}
	once sync.Once
}

// NewWatcher creates a watcher that registers every *.tar.gz created
// or written under dir into the catalog.
func NewWatcher(cat *Catalog, dir string, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	logger.Info("watching directory for snapshot archives", "dir", dir)
	return &Watcher{
		cat:     cat,
		watcher: fw,
		logger:  logger,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}, nil
}

// Start blocks, processing events until Stop is called.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".tar.gz") {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts processing in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.once.Do(func() { close(w.done) })
	return w.watcher.Close()
}

// schedule (re)arms the settle timer for a path. Repeated writes keep
// pushing registration back until the file goes quiet.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(watchSettle)
		return
	}
	w.pending[path] = time.AfterFunc(watchSettle, func() {
		w.register(path)
	})
}

func (w *Watcher) register(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	// Re-registration of a known path is skipped.
	if _, err := w.cat.FindByPath(path); err == nil {
		w.logger.Debug("archive already registered", "path", path)
		return
	}

	info, err := w.cat.Add(path)
	if err != nil {
		w.logger.Warn("could not register archive",
			"path", filepath.Clean(path),
			"error", err)
		return
	}
	w.logger.Info("archive registered by watcher", "id", info.ID, "path", path)
}
