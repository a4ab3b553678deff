package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForSignal(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (s *stubEventSink) catalogSignals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalogs
}

func TestWatcherSignalsOnFolderChanges(t *testing.T) {
	t.Parallel()

	events := &stubEventSink{}
	w, err := NewWatcher(events)
	if err != nil {
		t.Fatalf("watcher failed: %v", err)
	}
	defer func() { _ = w.Close() }()

	dir := t.TempDir()
	if err := w.Watch(dir); err != nil {
		t.Fatalf("watch failed: %v", err)
	}

	name := filepath.Join(dir, "recording-2024-03-01-09-00-00.webm")
	if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitForSignal(t, "catalog signal after create", func() bool {
		return events.catalogSignals() > 0
	})

	before := events.catalogSignals()
	if err := os.Remove(name); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	waitForSignal(t, "catalog signal after remove", func() bool {
		return events.catalogSignals() > before
	})
}

func TestWatcherRepointsToNewFolder(t *testing.T) {
	t.Parallel()

	events := &stubEventSink{}
	w, err := NewWatcher(events)
	if err != nil {
		t.Fatalf("watcher failed: %v", err)
	}
	defer func() { _ = w.Close() }()

	first := t.TempDir()
	second := t.TempDir()
	if err := w.Watch(first); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	// Re-pointing to the same directory is a no-op.
	if err := w.Watch(first); err != nil {
		t.Fatalf("repeat watch failed: %v", err)
	}
	if err := w.Watch(second); err != nil {
		t.Fatalf("re-point failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(first, "old.webm"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if got := events.catalogSignals(); got != 0 {
		t.Fatalf("dropped folder must not signal, got %d", got)
	}

	if err := os.WriteFile(filepath.Join(second, "new.webm"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	waitForSignal(t, "catalog signal from the new folder", func() bool {
		return events.catalogSignals() > 0
	})
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	w, err := NewWatcher(&stubEventSink{})
	if err != nil {
		t.Fatalf("watcher failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second close must be a no-op: %v", err)
	}
	// Watching after close is rejected quietly rather than panicking.
	if err := w.Watch(t.TempDir()); err != nil {
		t.Fatalf("watch after close should be a no-op: %v", err)
	}
}
