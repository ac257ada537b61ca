package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeLog(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func appendLog(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func quickPredicate(term string, timeout time.Duration) MilestonePredicate {
	return MilestonePredicate{Term: term, Timeout: timeout, Interval: 10 * time.Millisecond}
}

func TestWatch_FindsExistingTerm(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")
	writeLog(t, logPath, "starting...\nGenerating TraceID for tracking request\n")

	w := NewLogWatcher(logPath)
	result := w.Watch(context.Background(), quickPredicate(TermTrigger, time.Second))
	if result != WatchFound {
		t.Errorf("expected WatchFound, got %v", result)
	}
}

func TestWatch_FindsTermAppearingLater(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")
	writeLog(t, logPath, "starting...\n")

	go func() {
		time.Sleep(60 * time.Millisecond)
		appendLog(t, logPath, "Creating archive\n")
	}()

	w := NewLogWatcher(logPath)
	result := w.Watch(context.Background(), quickPredicate(TermUploadStarted, 2*time.Second))
	if result != WatchFound {
		t.Errorf("expected WatchFound, got %v", result)
	}
}

func TestWatch_TimeoutHonorsLowerBound(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")
	writeLog(t, logPath, "nothing relevant\n")

	timeout := 150 * time.Millisecond
	w := NewLogWatcher(logPath)

	start := time.Now()
	result := w.Watch(context.Background(), quickPredicate(TermTrigger, timeout))
	elapsed := time.Since(start)

	if result != WatchTimedOut {
		t.Fatalf("expected WatchTimedOut, got %v", result)
	}
	if elapsed < timeout {
		t.Errorf("watch gave up after %v, before the %v budget was spent", elapsed, timeout)
	}
}

func TestWatch_MissingFileTimesOut(t *testing.T) {
	dir := t.TempDir()
	w := NewLogWatcher(filepath.Join(dir, "never-created.log"))

	result := w.Watch(context.Background(), quickPredicate(TermTrigger, 100*time.Millisecond))
	if result != WatchTimedOut {
		t.Errorf("missing file should time out, got %v", result)
	}
}

func TestWatch_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")
	writeLog(t, logPath, "nothing relevant\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewLogWatcher(logPath)
	result := w.Watch(ctx, quickPredicate(TermTrigger, time.Second))
	if result != WatchCancelled {
		t.Errorf("expected WatchCancelled, got %v", result)
	}
}

func TestWatch_CancelledMidPoll(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")
	writeLog(t, logPath, "nothing relevant\n")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(40 * time.Millisecond)
		cancel()
	}()

	w := NewLogWatcher(logPath)
	start := time.Now()
	result := w.Watch(ctx, quickPredicate(TermTrigger, 5*time.Second))
	if result != WatchCancelled {
		t.Fatalf("expected WatchCancelled, got %v", result)
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt the poll promptly")
	}
}

func TestFound(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")
	writeLog(t, logPath, "Connection established\n")

	w := NewLogWatcher(logPath)
	if !w.Found(context.Background(), quickPredicate(TermServerConnected, time.Second)) {
		t.Error("Found should report true for a present term")
	}
	if w.Found(context.Background(), quickPredicate(TermJobLink, 80*time.Millisecond)) {
		t.Error("Found should report false for an absent term")
	}
}

func TestWatchResult_String(t *testing.T) {
	tests := []struct {
		result WatchResult
		want   string
	}{
		{WatchFound, "found"},
		{WatchTimedOut, "timed_out"},
		{WatchCancelled, "cancelled"},
	}
	for _, tt := range tests {
		if got := tt.result.String(); got != tt.want {
			t.Errorf("WatchResult(%d).String() = %q, want %q", tt.result, got, tt.want)
		}
	}
}
