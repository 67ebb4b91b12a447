package config

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultReloadDebounce = 100 * time.Millisecond

// ReloadFunc receives every reload attempt: the new configuration, or the
// error that kept the file from loading. The running configuration is left
// alone on error.
type ReloadFunc func(cfg *Config, err error)

// Watcher follows pipelinedag.toml and reloads it after edits settle.
// Saves that leave the file content unchanged are not reported.
type Watcher struct {
	path     string
	debounce time.Duration
	onReload ReloadFunc

	mu    sync.Mutex
	timer *time.Timer
	last  [sha256.Size]byte
	seen  bool

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWatcher returns a watcher for path. A non-positive debounce uses 100ms.
func NewWatcher(path string, debounce time.Duration, onReload ReloadFunc) *Watcher {
	if debounce <= 0 {
		debounce = defaultReloadDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onReload: onReload,
		stop:     make(chan struct{}),
	}
}

// Start begins watching the configuration file. The content present at start
// is taken as already applied.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// The directory is watched so atomic saves (rename over the file) are seen.
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		fw.Close()
		return err
	}
	if data, err := os.ReadFile(w.path); err == nil {
		w.last, w.seen = sha256.Sum256(data), true
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer fw.Close()
		defer w.cancelPending()

		slog.Info("config watcher started", "path", w.path, "debounce", w.debounce)
		for {
			select {
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				w.handle(event)
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)
			case <-w.stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.wg.Wait()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		w.schedule()
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		slog.Warn("config file removed, keeping current configuration", "path", w.path)
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		// Editors may briefly remove the file while saving; the next event retries.
		if !os.IsNotExist(err) {
			w.report(nil, err)
		}
		return
	}
	sum := sha256.Sum256(data)
	if w.seen && sum == w.last {
		slog.Debug("config file unchanged, skipping reload", "path", w.path)
		return
	}
	w.last, w.seen = sum, true

	slog.Info("config file changed, reloading", "path", w.path)
	cfg, err := decode(w.path, data)
	w.report(cfg, err)
}

func (w *Watcher) report(cfg *Config, err error) {
	if err != nil {
		slog.Error("failed to reload configuration", "path", w.path, "error", err)
	}
	if w.onReload != nil {
		w.onReload(cfg, err)
	}
}
