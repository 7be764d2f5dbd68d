package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ".foreman", PIDFileName))
	if err != nil {
		t.Fatalf("pid file not written: %v", err)
	}
	if string(data) != strconv.Itoa(os.Getpid())+"\n" {
		t.Errorf("pid file = %q", data)
	}

	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".foreman", PIDFileName)); !os.IsNotExist(err) {
		t.Error("pid file should be removed on release")
	}
}

func TestAcquireHeldByLiveProcess(t *testing.T) {
	dir := t.TempDir()
	l := New(dir)
	if err := l.Acquire(); err != nil {
		t.Fatal(err)
	}
	defer l.Release()

	// The current process holds it and is alive.
	other := New(dir)
	if err := other.Acquire(); !errors.Is(err, ErrHeld) {
		t.Errorf("Acquire() error = %v, want ErrHeld", err)
	}
}

func TestAcquireCleansStaleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".foreman", PIDFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	// A pid that can't be a live process.
	if err := os.WriteFile(path, []byte("99999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(dir)
	if err := l.Acquire(); err != nil {
		t.Errorf("stale lock should be reclaimed: %v", err)
	}
	l.Release()
}

func TestReleaseWithoutAcquireIsNoop(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Release(); err != nil {
		t.Errorf("Release() error = %v", err)
	}
}

func TestReleaseLeavesForeignLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".foreman", PIDFileName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := New(dir)
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("foreign pid file should be left in place")
	}
}
