package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// LockInfo is the content of the lock file.
type LockInfo struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	LogFile   string    `json:"log_file"`
	Binary    string    `json:"binary"`
}

// LockFile guards against two wells runs tracking the same project at
// once. Two trackers polling one CLI log would race the same subprocess.
type LockFile struct {
	path     string
	acquired bool
}

// NewLockFile creates a lock file handle for the given project.
func NewLockFile(projectRoot string) *LockFile {
	return &LockFile{
		path: filepath.Join(projectRoot, ".wells", "wells.lock"),
	}
}

// Path returns the lock file path.
func (l *LockFile) Path() string {
	return l.path
}

// Acquire attempts to take the lock. Returns an error if another live
// run holds it. Stale locks (dead process, or older than 24h) are
// removed and re-acquired.
func (l *LockFile) Acquire(logFile, binary string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	info := LockInfo{
		PID:       os.Getpid(),
		StartedAt: time.Now(),
		LogFile:   logFile,
		Binary:    binary,
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock info: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err == nil {
		defer file.Close()
		if _, err := file.Write(data); err != nil {
			os.Remove(l.path)
			return fmt.Errorf("failed to write lock file: %w", err)
		}
		l.acquired = true
		return nil
	}

	if !os.IsExist(err) {
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	existing, readErr := l.Read()
	if readErr != nil {
		// Unreadable lock file, treat as stale
		os.Remove(l.path)
		return l.Acquire(logFile, binary)
	}

	if isLockStale(existing) {
		os.Remove(l.path)
		return l.Acquire(logFile, binary)
	}

	return fmt.Errorf("another wells run is active (pid %d, started %s); wait for it or remove %s",
		existing.PID, existing.StartedAt.Format(time.RFC3339), l.path)
}

// Release removes the lock file if this process acquired it.
func (l *LockFile) Release() error {
	if !l.acquired {
		return nil
	}

	info, err := l.Read()
	if err == nil && info.PID != os.Getpid() {
		// Someone else's lock now, leave it alone
		l.acquired = false
		return nil
	}

	l.acquired = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// Read parses the lock file contents.
func (l *LockFile) Read() (*LockInfo, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	return &info, nil
}

// isLockStale returns true if the lock holder is dead or the lock is
// older than 24 hours.
func isLockStale(info *LockInfo) bool {
	if time.Since(info.StartedAt) > 24*time.Hour {
		return true
	}
	return !processAlive(info.PID)
}

// processAlive checks whether a process with the given PID exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil
}

// ReadLockStatus reports the lock state for doctor output. Returns
// (nil, false, nil) when no lock exists.
func ReadLockStatus(projectRoot string) (*LockInfo, bool, error) {
	lock := NewLockFile(projectRoot)
	info, err := lock.Read()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return info, isLockStale(info), nil
}
