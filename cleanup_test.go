package main

import (
	"testing"
)

func TestCleanup_ReleasesLock(t *testing.T) {
	dir := t.TempDir()
	lock := NewLockFile(dir)
	if err := lock.Acquire("cli.log", "hyperexecute"); err != nil {
		t.Fatal(err)
	}

	cleanup := NewCleanupCoordinator()
	cleanup.SetLock(lock)
	cleanup.Cleanup()

	if fileExists(lock.Path()) {
		t.Error("cleanup did not release the lock")
	}
}

func TestCleanup_Idempotent(t *testing.T) {
	cleanup := NewCleanupCoordinator()
	cleanup.Cleanup()
	cleanup.Cleanup() // second call must be a no-op, not a panic
}

func TestCleanup_ClosesLogger(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewRunLogger(dir, DefaultLoggingConfig())
	if err != nil {
		t.Fatal(err)
	}
	logger.RunStart("run", "hyperexecute", "/tmp/cli.log")
	logPath := logger.LogPath()

	cleanup := NewCleanupCoordinator()
	cleanup.SetLogger(logger)
	cleanup.Cleanup()

	events, err := ReadEvents(logPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	last := events[len(events)-1]
	if last.Type != EventRunEnd {
		t.Fatalf("last event = %s, want run_end", last.Type)
	}
	if last.Success == nil || *last.Success {
		t.Error("interrupted run must be recorded as unsuccessful")
	}
	if last.Message != "interrupted by signal" {
		t.Errorf("run end message = %q", last.Message)
	}
}
