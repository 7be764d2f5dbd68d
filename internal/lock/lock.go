// Package lock prevents two foreman runs from operating on the same
// project directory at once. A run writes a PID file under .foreman/;
// a stale file from a dead process is cleaned up automatically.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFileName is the name of the PID file in the project config directory.
const PIDFileName = "foreman.pid"

// ErrHeld is returned when another live process holds the lock.
var ErrHeld = errors.New("project is locked by another foreman run")

// RunLock guards one project directory.
type RunLock struct {
	dir string
}

// New creates a RunLock for the given project directory.
func New(projectDir string) *RunLock {
	return &RunLock{dir: projectDir}
}

func (l *RunLock) pidFilePath() string {
	return filepath.Join(l.dir, ".foreman", PIDFileName)
}

// Acquire claims the lock for the current process. Fails with ErrHeld
// when a live process already holds it.
func (l *RunLock) Acquire() error {
	path := l.pidFilePath()

	if data, err := os.ReadFile(path); err == nil {
		pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
		if perr == nil && pid > 0 && processAlive(pid) {
			return fmt.Errorf("%w (pid %d)", ErrHeld, pid)
		}
		// Stale file from a dead process.
		os.Remove(path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read pid file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// Release removes the PID file if it belongs to the current process.
func (l *RunLock) Release() error {
	path := l.pidFilePath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read pid file: %w", err)
	}

	pid, perr := strconv.Atoi(strings.TrimSpace(string(data)))
	if perr == nil && pid != os.Getpid() {
		// Not ours; leave it alone.
		return nil
	}
	return os.Remove(path)
}

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
