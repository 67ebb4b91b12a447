// Package watcher reports changes to pipeline documents on disk.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"pipelinedag/internal/shared/observability"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultInclude matches the documents the pipeline editor exports.
var DefaultInclude = []string{"*.json"}

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	include   []glob.Glob
	exclude   []glob.Glob
	onChange  func([]string)

	callbackMu sync.Mutex

	// files are watched explicitly; dirs are watched for any included document.
	mu    sync.Mutex
	files map[string]bool
	dirs  map[string]bool

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher compiles include/exclude base-name globs. An empty include list
// means DefaultInclude.
func NewWatcher(debounce time.Duration, include, exclude []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	if len(include) == 0 {
		include = DefaultInclude
	}

	compiledInclude, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	compiledExclude, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		include:   compiledInclude,
		exclude:   compiledExclude,
		onChange:  onChange,
		files:     make(map[string]bool),
		dirs:      make(map[string]bool),
		pending:   make(map[string]time.Time),
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch starts watching paths. A file path is watched through its parent
// directory so editors that save by rename are still seen; a directory is
// watched recursively for included documents.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		path = filepath.Clean(path)
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.IsDir() {
			if err := w.watchRecursive(path); err != nil {
				return err
			}
			continue
		}

		w.mu.Lock()
		w.files[path] = true
		w.mu.Unlock()
		if err := w.fsWatcher.Add(filepath.Dir(path)); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && w.excluded(path) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		w.dirs[filepath.Clean(path)] = true
		w.mu.Unlock()
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Has(fsnotify.Create) && w.underWatchedDir(event.Name) {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.excluded(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if !w.relevant(event.Name) {
				continue
			}

			if event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) ||
				event.Has(fsnotify.Rename) {
				w.scheduleChange(filepath.Clean(event.Name))
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		sort.Strings(paths)
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

func (w *Watcher) underWatchedDir(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[filepath.Dir(filepath.Clean(path))]
}

// relevant reports whether a change to path should be delivered.
func (w *Watcher) relevant(path string) bool {
	path = filepath.Clean(path)

	w.mu.Lock()
	explicit := w.files[path]
	inDir := w.dirs[filepath.Dir(path)]
	w.mu.Unlock()

	if explicit {
		return true
	}
	if !inDir || w.excluded(path) {
		return false
	}
	return matchesAny(w.include, filepath.Base(path))
}

func (w *Watcher) excluded(path string) bool {
	return matchesAny(w.exclude, filepath.Base(path))
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !w.relevant(path) {
			return nil
		}
		w.scheduleChange(filepath.Clean(path))
		return nil
	})
}

// ExpandPaths lists the documents named by paths: files are returned as
// given, directories are walked for names matching include and not exclude.
// The result is sorted and free of duplicates.
func ExpandPaths(paths, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			name := filepath.Base(path)
			if info.IsDir() {
				if path != root && matchesAny(exc, name) {
					return filepath.SkipDir
				}
				return nil
			}
			if matchesAny(exc, name) || !matchesAny(inc, name) {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(out)
	return out, nil
}
