package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLock_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	lock := NewLockFile(dir)

	if err := lock.Acquire("cli.log", "hyperexecute"); err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !fileExists(lock.Path()) {
		t.Fatal("lock file not created")
	}

	info, err := lock.Read()
	if err != nil {
		t.Fatal(err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("lock PID = %d, want %d", info.PID, os.Getpid())
	}
	if info.Binary != "hyperexecute" {
		t.Errorf("lock binary = %q", info.Binary)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if fileExists(lock.Path()) {
		t.Error("lock file not removed")
	}
}

func TestLock_Conflict(t *testing.T) {
	dir := t.TempDir()

	first := NewLockFile(dir)
	if err := first.Acquire("cli.log", "hyperexecute"); err != nil {
		t.Fatal(err)
	}
	defer first.Release()

	second := NewLockFile(dir)
	err := second.Acquire("cli.log", "hyperexecute")
	if err == nil {
		t.Fatal("second acquire should fail while the first is held")
	}
	if !strings.Contains(err.Error(), "another wells run") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLock_StaleByAge(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, ".wells", "wells.lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		t.Fatal(err)
	}

	stale := LockInfo{
		PID:       os.Getpid(),
		StartedAt: time.Now().Add(-25 * time.Hour),
		Binary:    "hyperexecute",
	}
	data, _ := json.Marshal(stale)
	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		t.Fatal(err)
	}

	lock := NewLockFile(dir)
	if err := lock.Acquire("cli.log", "hyperexecute"); err != nil {
		t.Fatalf("stale lock should be replaced: %v", err)
	}
	defer lock.Release()

	info, err := lock.Read()
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(info.StartedAt) > time.Minute {
		t.Error("lock was not rewritten")
	}
}

func TestLock_UnreadableTreatedAsStale(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, ".wells", "wells.lock")
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(lockPath, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	lock := NewLockFile(dir)
	if err := lock.Acquire("cli.log", "hyperexecute"); err != nil {
		t.Fatalf("corrupt lock should be replaced: %v", err)
	}
	lock.Release()
}

func TestLock_ReleaseWithoutAcquire(t *testing.T) {
	lock := NewLockFile(t.TempDir())
	if err := lock.Release(); err != nil {
		t.Errorf("release without acquire should be a no-op: %v", err)
	}
}

func TestReadLockStatus(t *testing.T) {
	dir := t.TempDir()

	info, stale, err := ReadLockStatus(dir)
	if err != nil {
		t.Fatal(err)
	}
	if info != nil || stale {
		t.Error("no lock should report nil")
	}

	lock := NewLockFile(dir)
	if err := lock.Acquire("cli.log", "hyperexecute"); err != nil {
		t.Fatal(err)
	}
	defer lock.Release()

	info, stale, err = ReadLockStatus(dir)
	if err != nil {
		t.Fatal(err)
	}
	if info == nil {
		t.Fatal("expected lock info")
	}
	if stale {
		t.Error("live lock reported stale")
	}
	if info.PID != os.Getpid() {
		t.Errorf("PID = %d", info.PID)
	}
}

func TestProcessAlive(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Error("own process should be alive")
	}
	if processAlive(0) || processAlive(-1) {
		t.Error("invalid PIDs should not be alive")
	}
}
