package main

import (
	"context"
	"time"
)

// WatchResult is the outcome of one bounded poll.
type WatchResult int

const (
	WatchFound WatchResult = iota
	WatchTimedOut
	WatchCancelled
)

func (r WatchResult) String() string {
	switch r {
	case WatchFound:
		return "found"
	case WatchTimedOut:
		return "timed_out"
	case WatchCancelled:
		return "cancelled"
	}
	return "unknown"
}

// LogWatcher polls one log file for milestone substrings.
type LogWatcher struct {
	logPath string
}

func NewLogWatcher(logPath string) *LogWatcher {
	return &LogWatcher{logPath: logPath}
}

func (w *LogWatcher) LogPath() string {
	return w.logPath
}

// Watch polls the log until the predicate's term appears, the timeout
// budget is spent, or ctx is cancelled. Elapsed time is checked before
// each read, so a call never overruns Timeout by more than one Interval.
// Read errors (file mid-write, permissions) degrade to "not found yet"
// rather than propagating; the log is being appended to by a process we
// do not control.
func (w *LogWatcher) Watch(ctx context.Context, p MilestonePredicate) WatchResult {
	deadline := time.Now().Add(p.Timeout)
	for {
		if ctx.Err() != nil {
			return WatchCancelled
		}
		if !time.Now().Before(deadline) {
			return WatchTimedOut
		}
		snapshot, err := readLogSnapshot(w.logPath)
		if err == nil && containsMilestone(snapshot, p.Term) {
			return WatchFound
		}
		select {
		case <-ctx.Done():
			return WatchCancelled
		case <-time.After(p.Interval):
		}
	}
}

// Found is a convenience wrapper for callers that only care about success.
func (w *LogWatcher) Found(ctx context.Context, p MilestonePredicate) bool {
	return w.Watch(ctx, p) == WatchFound
}
