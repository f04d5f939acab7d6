// Package lockfile guards a BraveCall state directory against a second
// server process opening the same SQLite database.
//
// The lock is an flock(2) on a file in the state directory, so the kernel
// drops it when the holding process exits, even on a crash.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is created inside the state directory.
const LockFileName = "bravecall.lock"

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// LockError reports that another process holds the lock.
type LockError struct {
	LockPath  string
	HolderPID int
	Cause     error
}

func (e *LockError) Error() string {
	holder := "unknown process"
	if e.HolderPID > 0 {
		state := "not running, stale lock"
		if processAlive(e.HolderPID) {
			state = "running"
		}
		holder = fmt.Sprintf("PID %d (%s)", e.HolderPID, state)
	}
	return fmt.Sprintf("state directory is in use by another BraveCall server: %s holds %s; "+
		"remove the file only if no other server is using this directory", holder, e.LockPath)
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// Acquire takes an exclusive, non-blocking lock on stateDir, creating the
// directory if needed.
func Acquire(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	path := filepath.Join(stateDir, LockFileName)

	// Not O_TRUNC: a failed attempt must not wipe the holder's PID.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		lockErr := &LockError{LockPath: path, HolderPID: readPID(path), Cause: err}
		slog.Error("lockfile.Acquire: state directory already locked", "lock_path", path, "holder_pid", lockErr.HolderPID)
		return nil, lockErr
	}

	if err := writePID(f); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("failed to write lock file %s: %w", path, err)
	}

	slog.Info("lockfile.Acquire: state directory locked", "lock_path", path, "pid", os.Getpid())
	return &Lock{file: f, path: path}, nil
}

// Release unlocks and removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("lockfile.Release: failed to remove lock file", "error", err, "lock_path", l.path)
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("lockfile.Release: failed to unlock", "error", err, "lock_path", l.path)
	}
	err := l.file.Close()
	l.file = nil
	slog.Debug("lockfile.Release: state directory unlocked", "lock_path", l.path)
	return err
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(fmt.Sprintf("pid=%d\n", os.Getpid())), 0); err != nil {
		return err
	}
	return f.Sync()
}

// readPID returns the PID recorded in the lock file, or 0.
func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	s := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(strings.TrimPrefix(s, "pid="))
	if err != nil {
		return 0
	}
	return pid
}

// processAlive sends signal 0, which only checks that the process exists.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
