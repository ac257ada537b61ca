package main

import (
	"os"
	"strings"
)

// readLogSnapshot reads the full current content of the CLI log file.
// A missing file is not an error: the CLI creates its log lazily, so an
// absent file reads as an empty snapshot and callers keep polling.
func readLogSnapshot(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// containsMilestone reports whether the snapshot contains the term,
// case-insensitively. The log content is opaque bytes to the matcher;
// no line or JSON structure is assumed.
func containsMilestone(snapshot, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(strings.ToLower(snapshot), strings.ToLower(term))
}
