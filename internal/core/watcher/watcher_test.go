package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func waitFor(t *testing.T, changed <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadPattern(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"[unclosed"}, nil, func([]string) {}); err == nil {
		t.Fatal("expected error for invalid include pattern")
	}
}

func TestWatcher_Directory(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, []string{"*.draft.json", "node_modules"}, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	doc := filepath.Join(tmpDir, "pipeline.json")
	if err := os.WriteFile(doc, []byte(`{"nodes":[],"edges":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, doc, 2*time.Second)

	if w.relevant(filepath.Join(tmpDir, "notes.txt")) {
		t.Error("expected non-json file to be ignored")
	}
	if w.relevant(filepath.Join(tmpDir, "wip.draft.json")) {
		t.Error("expected excluded pattern to be ignored")
	}

	subdir := filepath.Join(tmpDir, "team")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "nested.json")
	if err := os.WriteFile(nested, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, nested, 2*time.Second)
}

func TestWatcher_SingleFile(t *testing.T) {
	tmpDir := t.TempDir()
	doc := filepath.Join(tmpDir, "pipeline.txt")
	sibling := filepath.Join(tmpDir, "other.json")
	if err := os.WriteFile(doc, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{doc}); err != nil {
		t.Fatal(err)
	}

	if !w.relevant(doc) {
		t.Error("expected explicitly watched file to be relevant regardless of include patterns")
	}
	if w.relevant(sibling) {
		t.Error("expected sibling of a watched file to be ignored")
	}

	if err := os.WriteFile(doc, []byte(`{"nodes":[],"edges":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, doc, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []string, 8)
	w, err := NewWatcher(50*time.Millisecond, nil, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.json")
	newPath := filepath.Join(tmpDir, "new.json")
	if err := os.WriteFile(oldPath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	waitFor(t, changed, newPath, 2*time.Second)
}

func TestWatcher_MissingPath(t *testing.T) {
	w, err := NewWatcher(time.Millisecond, nil, nil, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}

func TestExpandPaths(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"a.json":                 `{}`,
		"b.txt":                  `x`,
		"nested/c.json":          `{}`,
		"node_modules/skip.json": `{}`,
		"nested/d.draft.json":    `{}`,
	}
	for rel, body := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	explicit := filepath.Join(root, "b.txt")

	got, err := ExpandPaths([]string{root, explicit, filepath.Join(root, "a.json")}, nil, []string{"node_modules", "*.draft.json"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(root, "a.json"),
		explicit,
		filepath.Join(root, "nested", "c.json"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExpandPaths() = %v, want %v", got, want)
	}

	if _, err := ExpandPaths([]string{filepath.Join(root, "missing")}, nil, nil); err == nil {
		t.Fatal("expected error for missing path")
	}
}
