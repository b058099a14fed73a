package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatcherRunsCallbackOnChange(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing-sensitive test in short mode")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "warehouse.yaml")
	if err := os.WriteFile(file, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	w, err := NewWatcher([]string{file}, func() error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("initial callback ran %d times, want 1", got)
	}

	// Two writes in quick succession settle into one callback.
	if err := os.WriteFile(file, []byte("version: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("version: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(3 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("callback ran %d times, want 2", runs.Load())
		case <-time.After(50 * time.Millisecond):
		}
	}

	// Give the debounce window time to prove the burst was coalesced.
	time.Sleep(2 * debounce)
	if got := runs.Load(); got != 2 {
		t.Errorf("callback ran %d times, want 2", got)
	}
}

func TestWatcherIgnoresSiblingFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing-sensitive test in short mode")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "warehouse.yaml")
	sibling := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(file, []byte("version: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	w, err := NewWatcher([]string{file}, func() error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(sibling, []byte("scratch\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * debounce)
	if got := runs.Load(); got != 1 {
		t.Errorf("callback ran %d times after a sibling write, want 1", got)
	}
}

func TestWatcherRejectsMissingDirectory(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "absent", "warehouse.yaml")}, func() error { return nil })
	if err == nil {
		t.Error("want error for a watch on a missing directory")
	}
}
