package main

import (
	"context"
	"path/filepath"
	"testing"
)

func quickErrorBudget() *BudgetConfig {
	return &BudgetConfig{ErrorTimeoutMs: 100, ErrorPollMs: 10}
}

func TestDetectFirstError_SingleKind(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ErrorKind
	}{
		{"credentials", "Error: Invalid user/key credentials\n", ErrInvalidCredentials},
		{"project", "Error: Project not found\n", ErrProjectNotFound},
		{"yaml parse", "error unmarshalling yaml: line 3\n", ErrYamlParse},
		{"yaml config", "invalid yaml configuration: missing runson\n", ErrYamlConfig},
		{"yaml missing", "yaml file not found at ./hyperexecute.yaml\n", ErrYamlNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			logPath := filepath.Join(dir, "cli.log")
			writeLog(t, logPath, "Generating TraceID for tracking request\n"+tt.line)

			w := NewLogWatcher(logPath)
			got := detectFirstError(context.Background(), w, errorCandidates(quickErrorBudget()))
			if got != tt.want {
				t.Errorf("detectFirstError = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectFirstError_CleanLog(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")
	writeLog(t, logPath, "Generating TraceID for tracking request\nCreating archive\n")

	w := NewLogWatcher(logPath)
	got := detectFirstError(context.Background(), w, errorCandidates(quickErrorBudget()))
	if got != ErrNone {
		t.Errorf("clean log should yield ErrNone, got %v", got)
	}
}

// When several error terms are present at once the winner must be the
// highest-priority kind every single time, no matter which watcher
// goroutine happens to settle first.
func TestDetectFirstError_PriorityIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")
	writeLog(t, logPath,
		"yaml file not found at ./hyperexecute.yaml\n"+
			"invalid yaml configuration: missing runson\n"+
			"Error: Invalid user/key credentials\n")

	w := NewLogWatcher(logPath)
	for i := 0; i < 10; i++ {
		got := detectFirstError(context.Background(), w, errorCandidates(quickErrorBudget()))
		if got != ErrInvalidCredentials {
			t.Fatalf("iteration %d: got %v, want ErrInvalidCredentials", i, got)
		}
	}
}

func TestDetectFirstError_Cancelled(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "cli.log")
	writeLog(t, logPath, "Error: Project not found\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewLogWatcher(logPath)
	got := detectFirstError(ctx, w, errorCandidates(quickErrorBudget()))
	if got != ErrNone {
		t.Errorf("cancelled race should yield ErrNone, got %v", got)
	}
}

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{ErrInvalidCredentials, "invalid_credentials"},
		{ErrProjectNotFound, "project_not_found"},
		{ErrYamlParse, "yaml_parse_error"},
		{ErrYamlConfig, "yaml_config_error"},
		{ErrYamlNotFound, "yaml_not_found"},
		{ErrNone, "none"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestErrorKind_Remediation(t *testing.T) {
	for kind := ErrInvalidCredentials; kind < ErrNone; kind++ {
		if kind.Remediation() == "" {
			t.Errorf("kind %v has no remediation message", kind)
		}
	}
	if ErrNone.Remediation() != "" {
		t.Error("ErrNone must have no remediation message")
	}
}
