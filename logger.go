package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of tracker log event.
type EventType string

const (
	EventRunStart       EventType = "run_start"
	EventRunEnd         EventType = "run_end"
	EventLaunchStart    EventType = "launch_start"
	EventAdvance        EventType = "advance"
	EventMilestoneFound EventType = "milestone_found"
	EventErrorDetected  EventType = "error_detected"
	EventLinkFound      EventType = "link_found"
	EventStateChange    EventType = "state_change"
	EventBrowserStart   EventType = "browser_start"
	EventBrowserEnd     EventType = "browser_end"
	EventWarning        EventType = "warning"
	EventError          EventType = "error"
)

// Event is a single line of the JSONL run log.
type Event struct {
	Timestamp time.Time              `json:"ts"`
	Type      EventType              `json:"type"`
	Stage     string                 `json:"stage,omitempty"`
	Duration  *int64                 `json:"duration,omitempty"` // nanoseconds
	Success   *bool                  `json:"success,omitempty"`
	Message   string                 `json:"msg,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// LoggingConfig configures the run log.
type LoggingConfig struct {
	Enabled           bool `json:"enabled"`
	MaxRuns           int  `json:"maxRuns"`
	ConsoleTimestamps bool `json:"consoleTimestamps"`
}

// DefaultLoggingConfig returns sensible defaults.
func DefaultLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Enabled:           true,
		MaxRuns:           10,
		ConsoleTimestamps: true,
	}
}

// RunLogger records one wells invocation as a JSONL event stream under
// .wells/logs/, plus timestamped console output. These are wells' own
// diagnostics; the CLI log the watchers poll is a different file entirely.
type RunLogger struct {
	file      *os.File
	encoder   *json.Encoder
	mu        sync.Mutex
	runID     string
	runNumber int
	stage     string
	startTime time.Time
	enabled   bool
	config    *LoggingConfig
}

// NewRunLogger creates a logger writing to dataDir/logs/run-NNN.jsonl.
func NewRunLogger(dataDir string, config *LoggingConfig) (*RunLogger, error) {
	if config == nil {
		config = DefaultLoggingConfig()
	}

	logger := &RunLogger{
		runID:     uuid.NewString(),
		startTime: time.Now(),
		enabled:   config.Enabled,
		config:    config,
	}

	if !config.Enabled {
		return logger, nil
	}

	logsDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	runNumber := nextRunNumber(logsDir)
	logger.runNumber = runNumber

	if config.MaxRuns > 0 {
		rotateOldRuns(logsDir, config.MaxRuns)
	}

	logPath := filepath.Join(logsDir, fmt.Sprintf("run-%03d.jsonl", runNumber))
	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger.file = file
	logger.encoder = json.NewEncoder(file)

	return logger, nil
}

// Close closes the log file.
func (l *RunLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// RunID returns the UUID assigned to this invocation.
func (l *RunLogger) RunID() string {
	return l.runID
}

// RunNumber returns the current run number.
func (l *RunLogger) RunNumber() int {
	return l.runNumber
}

// LogPath returns the path to the current log file.
func (l *RunLogger) LogPath() string {
	if l.file != nil {
		return l.file.Name()
	}
	return ""
}

// SetStage records the lifecycle stage attached to subsequent events.
func (l *RunLogger) SetStage(stage string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stage = stage
}

func (l *RunLogger) logEvent(event Event) {
	if l == nil || !l.enabled || l.file == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Stage == "" {
		event.Stage = l.stage
	}

	l.encoder.Encode(event)
}

// RunStart logs the start of a tracker invocation.
func (l *RunLogger) RunStart(mode, binary, cliLog string) {
	l.logEvent(Event{
		Type: EventRunStart,
		Data: map[string]interface{}{
			"run_id":     l.runID,
			"run_number": l.runNumber,
			"mode":       mode,
			"binary":     binary,
			"cli_log":    cliLog,
		},
	})
}

// RunEnd logs the end of a tracker invocation.
func (l *RunLogger) RunEnd(success bool, summary string) {
	duration := time.Since(l.startTime).Nanoseconds()
	l.logEvent(Event{
		Type:     EventRunEnd,
		Duration: &duration,
		Success:  &success,
		Message:  summary,
	})
}

// LaunchStart logs the CLI subprocess launch.
func (l *RunLogger) LaunchStart(binary, logPath string) {
	l.logEvent(Event{
		Type: EventLaunchStart,
		Data: map[string]interface{}{
			"binary":  binary,
			"cli_log": logPath,
		},
	})
}

// Advance logs one controller step and the message it produced.
func (l *RunLogger) Advance(stage, message string, durationNs int64) {
	l.logEvent(Event{
		Type:     EventAdvance,
		Stage:    stage,
		Duration: &durationNs,
		Message:  message,
	})
}

// MilestoneFound logs a detected milestone.
func (l *RunLogger) MilestoneFound(name, term string) {
	l.logEvent(Event{
		Type: EventMilestoneFound,
		Data: map[string]interface{}{
			"milestone": name,
			"term":      term,
		},
	})
}

// ErrorDetected logs the winner of the error race.
func (l *RunLogger) ErrorDetected(kind string) {
	l.logEvent(Event{
		Type: EventErrorDetected,
		Data: map[string]interface{}{
			"kind": kind,
		},
	})
}

// LinkFound logs the extracted job link.
func (l *RunLogger) LinkFound(link string) {
	l.logEvent(Event{
		Type:    EventLinkFound,
		Message: link,
	})
}

// StateChange logs a stage transition.
func (l *RunLogger) StateChange(from, to string) {
	l.logEvent(Event{
		Type: EventStateChange,
		Data: map[string]interface{}{
			"from": from,
			"to":   to,
		},
	})
}

// BrowserStart logs the start of job-page evidence capture.
func (l *RunLogger) BrowserStart(link string) {
	l.logEvent(Event{
		Type:    EventBrowserStart,
		Message: link,
	})
}

// BrowserEnd logs the end of job-page evidence capture.
func (l *RunLogger) BrowserEnd(success bool, screenshot string, consoleErrors int) {
	l.logEvent(Event{
		Type:    EventBrowserEnd,
		Success: &success,
		Data: map[string]interface{}{
			"screenshot":     screenshot,
			"console_errors": consoleErrors,
		},
	})
}

// Warning logs a warning message.
func (l *RunLogger) Warning(msg string) {
	l.logEvent(Event{
		Type:    EventWarning,
		Message: msg,
	})
}

// Error logs an error message.
func (l *RunLogger) Error(msg string, err error) {
	data := make(map[string]interface{})
	if err != nil {
		data["error"] = err.Error()
	}
	l.logEvent(Event{
		Type:    EventError,
		Message: msg,
		Data:    data,
	})
}

// Console output helpers with timestamps

// LogPrint prints a timestamped message to stdout.
func (l *RunLogger) LogPrint(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if l != nil && l.config != nil && l.config.ConsoleTimestamps {
		fmt.Printf("[%s] %s", time.Now().Format("15:04:05"), msg)
	} else {
		fmt.Print(msg)
	}
}

// LogPrintln prints a timestamped message with newline to stdout.
func (l *RunLogger) LogPrintln(args ...interface{}) {
	msg := fmt.Sprint(args...)
	if l != nil && l.config != nil && l.config.ConsoleTimestamps {
		fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05"), msg)
	} else {
		fmt.Println(msg)
	}
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d.Milliseconds()))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if seconds == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}

// nextRunNumber determines the next run number from existing log files.
func nextRunNumber(logsDir string) int {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return 1
	}

	maxRun := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if num, ok := runNumberOf(entry.Name()); ok && num > maxRun {
			maxRun = num
		}
	}

	return maxRun + 1
}

// rotateOldRuns deletes run logs beyond maxRuns, keeping the most recent.
func rotateOldRuns(logsDir string, maxRuns int) {
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		return
	}

	var runFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := runNumberOf(entry.Name()); ok {
			runFiles = append(runFiles, entry.Name())
		}
	}

	if len(runFiles) <= maxRuns {
		return
	}

	sort.Slice(runFiles, func(i, j int) bool {
		ni, _ := runNumberOf(runFiles[i])
		nj, _ := runNumberOf(runFiles[j])
		return ni < nj
	})

	for i := 0; i < len(runFiles)-maxRuns; i++ {
		os.Remove(filepath.Join(logsDir, runFiles[i]))
	}
}

// runNumberOf parses N from "run-NNN.jsonl".
func runNumberOf(filename string) (int, bool) {
	if !strings.HasPrefix(filename, "run-") || !strings.HasSuffix(filename, ".jsonl") {
		return 0, false
	}
	numStr := strings.TrimPrefix(filename, "run-")
	numStr = strings.TrimSuffix(numStr, ".jsonl")
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, false
	}
	return num, true
}

// LogsDir returns the run-log directory under the data dir.
func LogsDir(dataDir string) string {
	return filepath.Join(dataDir, "logs")
}

// RunSummary contains summary info about one recorded run.
type RunSummary struct {
	RunNumber int
	LogPath   string
	FileSize  int64
	ModTime   time.Time
	StartTime time.Time
	EndTime   *time.Time
	Success   *bool
	Summary   string
}

// ListRuns returns all recorded runs, most recent first.
func ListRuns(dataDir string) ([]RunSummary, error) {
	logsDir := LogsDir(dataDir)
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var runs []RunSummary
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		num, ok := runNumberOf(entry.Name())
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		logPath := filepath.Join(logsDir, entry.Name())
		summary := RunSummary{
			RunNumber: num,
			LogPath:   logPath,
			FileSize:  info.Size(),
			ModTime:   info.ModTime(),
		}

		if first, last := readFirstLastEvents(logPath); first != nil {
			summary.StartTime = first.Timestamp
			if last != nil && last.Type == EventRunEnd {
				summary.EndTime = &last.Timestamp
				summary.Success = last.Success
				summary.Summary = last.Message
			}
		}

		runs = append(runs, summary)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].RunNumber > runs[j].RunNumber
	})

	return runs, nil
}

// readFirstLastEvents reads the first and last events from a log file.
func readFirstLastEvents(logPath string) (*Event, *Event) {
	file, err := os.Open(logPath)
	if err != nil {
		return nil, nil
	}
	defer file.Close()

	var first, last *Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		if first == nil {
			first = &event
		}
		last = &event
	}

	return first, last
}

// EventFilter filters events when reading logs.
type EventFilter struct {
	EventType EventType
	Stage     string
}

// Match returns true if the event matches the filter.
func (f *EventFilter) Match(event *Event) bool {
	if f.EventType != "" && event.Type != f.EventType {
		return false
	}
	if f.Stage != "" && event.Stage != f.Stage {
		return false
	}
	return true
}

// ReadEvents reads events from a log file with optional filtering.
func ReadEvents(logPath string, filter *EventFilter) ([]Event, error) {
	file, err := os.Open(logPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadEventsFromReader(file, filter)
}

// ReadEventsFromReader reads events from an io.Reader with optional filtering.
func ReadEventsFromReader(r io.Reader, filter *EventFilter) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		if filter != nil && !filter.Match(&event) {
			continue
		}

		events = append(events, event)
	}

	return events, scanner.Err()
}

// MilestoneRecord is one observed milestone in a run summary.
type MilestoneRecord struct {
	Name string
	Term string
	At   time.Time
}

// DetailedRunSummary aggregates one run's event stream.
type DetailedRunSummary struct {
	RunID      string
	RunNumber  int
	Mode       string
	StartTime  time.Time
	EndTime    *time.Time
	Duration   *time.Duration
	Success    *bool
	Result     string
	Milestones []MilestoneRecord
	ErrorKinds []string
	Link       string
	Screenshot string
	Warnings   int
	Errors     int
}

// GetRunSummary generates a detailed summary of a recorded run.
func GetRunSummary(logPath string) (*DetailedRunSummary, error) {
	events, err := ReadEvents(logPath, nil)
	if err != nil {
		return nil, err
	}

	summary := &DetailedRunSummary{}

	for _, event := range events {
		switch event.Type {
		case EventRunStart:
			summary.StartTime = event.Timestamp
			if data := event.Data; data != nil {
				if id, ok := data["run_id"].(string); ok {
					summary.RunID = id
				}
				if n, ok := data["run_number"].(float64); ok {
					summary.RunNumber = int(n)
				}
				if m, ok := data["mode"].(string); ok {
					summary.Mode = m
				}
			}

		case EventRunEnd:
			summary.EndTime = &event.Timestamp
			summary.Success = event.Success
			summary.Result = event.Message

		case EventMilestoneFound:
			if event.Data != nil {
				name, _ := event.Data["milestone"].(string)
				term, _ := event.Data["term"].(string)
				summary.Milestones = append(summary.Milestones, MilestoneRecord{
					Name: name,
					Term: term,
					At:   event.Timestamp,
				})
			}

		case EventErrorDetected:
			if event.Data != nil {
				if kind, ok := event.Data["kind"].(string); ok {
					summary.ErrorKinds = append(summary.ErrorKinds, kind)
				}
			}

		case EventLinkFound:
			summary.Link = event.Message

		case EventBrowserEnd:
			if event.Data != nil {
				if s, ok := event.Data["screenshot"].(string); ok {
					summary.Screenshot = s
				}
			}

		case EventWarning:
			summary.Warnings++

		case EventError:
			summary.Errors++
		}
	}

	if summary.EndTime != nil {
		d := summary.EndTime.Sub(summary.StartTime)
		summary.Duration = &d
	}

	return summary, nil
}
