package main

import (
	"os/exec"
	"sync"
	"syscall"
)

// CleanupCoordinator releases resources on interrupt: the CLI subprocess
// group, the run log, and the project lock. Cleanup is idempotent so the
// signal handler and normal exit paths can both call it.
type CleanupCoordinator struct {
	mu     sync.Mutex
	done   bool
	cli    *exec.Cmd
	logger *RunLogger
	lock   *LockFile
}

// NewCleanupCoordinator creates a cleanup coordinator.
func NewCleanupCoordinator() *CleanupCoordinator {
	return &CleanupCoordinator{}
}

// SetCLI registers the running CLI subprocess for cleanup.
func (c *CleanupCoordinator) SetCLI(cmd *exec.Cmd) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cli = cmd
}

// ClearCLI unregisters the CLI subprocess after it has been reaped.
func (c *CleanupCoordinator) ClearCLI() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cli = nil
}

// SetLogger registers the run logger for cleanup.
func (c *CleanupCoordinator) SetLogger(logger *RunLogger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// SetLock registers the lock file for cleanup.
func (c *CleanupCoordinator) SetLock(lock *LockFile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lock = lock
}

// Cleanup releases everything registered. Safe to call more than once.
func (c *CleanupCoordinator) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return
	}
	c.done = true

	if c.cli != nil && c.cli.Process != nil {
		// Negative PID targets the whole process group
		syscall.Kill(-c.cli.Process.Pid, syscall.SIGKILL)
		c.cli = nil
	}

	if c.logger != nil {
		c.logger.RunEnd(false, "interrupted by signal")
		c.logger.Close()
		c.logger = nil
	}

	if c.lock != nil {
		c.lock.Release()
		c.lock = nil
	}
}
