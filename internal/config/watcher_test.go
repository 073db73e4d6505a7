package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitReload(t *testing.T, w *Watcher) Reload {
	t.Helper()
	select {
	case r, ok := <-w.Reloads():
		if !ok {
			t.Fatal("reloads channel closed")
		}
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	return Reload{}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "exoshell.toml", "prompt = \"a> \"\n")

	w, err := NewWatcher(path, WithDebounce(10*time.Millisecond), WithLookup(envMap(nil)))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("prompt = \"b> \"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	r := waitReload(t, w)
	if r.Err != nil {
		t.Fatalf("reload error = %v", r.Err)
	}
	if r.Config.Prompt != "b> " {
		t.Errorf("Prompt = %q, want %q", r.Config.Prompt, "b> ")
	}
}

func TestWatcherReportsBadFile(t *testing.T) {
	path := writeFile(t, "exoshell.toml", "prompt = \"a> \"\n")

	w, err := NewWatcher(path, WithDebounce(10*time.Millisecond), WithLookup(envMap(nil)))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(path, []byte("prompt = \n"), 0644); err != nil {
		t.Fatal(err)
	}

	if r := waitReload(t, w); r.Err == nil {
		t.Error("expected reload error for malformed file")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	path := writeFile(t, "exoshell.toml", "prompt = \"a> \"\n")

	w, err := NewWatcher(path, WithDebounce(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	other := filepath.Join(filepath.Dir(path), "other.toml")
	if err := os.WriteFile(other, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-w.Reloads():
		t.Errorf("unexpected reload %+v", r)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherClose(t *testing.T) {
	path := writeFile(t, "exoshell.toml", "")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if w.Path() != path {
		t.Errorf("Path() = %q, want %q", w.Path(), path)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, ok := <-w.Reloads(); ok {
		t.Error("expected reloads channel to be closed")
	}
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "missing", "exoshell.toml"))
	if err == nil {
		t.Error("expected error for missing directory")
	}
}
