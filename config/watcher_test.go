package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeGate struct {
	name string
}

func (f *fakeGate) SetStateStoreConnectionName(name string) { f.name = name }

type fakeAllocator struct {
	n int
}

func (f *fakeAllocator) SetMinAvailableWorkers(n int) { f.n = n }

func writeSettings(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
}

func TestWatcherAppliesSettingsOnStart(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	writeSettings(t, path, "state_store_connection_name: alt-store\nmin_available_workers: 5\n")

	gate := &fakeGate{}
	alloc := &fakeAllocator{}
	w := NewWatcher(path, gate, alloc)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	if gate.name != "alt-store" {
		t.Errorf("expected alt-store, got %s", gate.name)
	}
	if alloc.n != 5 {
		t.Errorf("expected 5, got %d", alloc.n)
	}
}

func TestWatcherMissingFileIsNotAnError(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), &fakeGate{}, &fakeAllocator{})
	if err := w.Start(); err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
	defer w.Stop()
}

func TestWatcherEmptyPathIsANoop(t *testing.T) {
	w := NewWatcher("", nil, nil)
	if err := w.Start(); err != nil {
		t.Errorf("expected no error for empty path, got %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("expected no error stopping an unstarted watcher, got %v", err)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	writeSettings(t, path, "state_store_connection_name: first\nmin_available_workers: 2\n")

	gate := &fakeGate{}
	alloc := &fakeAllocator{}
	w := NewWatcher(path, gate, alloc)
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	writeSettings(t, path, "state_store_connection_name: second\nmin_available_workers: 3\n")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if gate.name == "second" && alloc.n == 3 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if gate.name != "second" {
		t.Errorf("expected second, got %s", gate.name)
	}
	if alloc.n != 3 {
		t.Errorf("expected 3, got %d", alloc.n)
	}
}
