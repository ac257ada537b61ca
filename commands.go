package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

func cmdInit(args []string) {
	force := false
	for _, arg := range args {
		if arg == "-f" || arg == "--force" {
			force = true
		}
	}

	projectRoot := GetProjectRoot()
	configPath := ConfigPath(projectRoot)
	wellsDir := filepath.Join(projectRoot, ".wells")

	// Check if already initialized
	if fileExists(configPath) && !force {
		fmt.Fprintf(os.Stderr, "wells.config.json already exists at %s\n", configPath)
		fmt.Fprintln(os.Stderr, "Use --force to overwrite.")
		os.Exit(1)
	}

	if err := WriteDefaultConfig(projectRoot); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(wellsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create .wells directory: %v\n", err)
		os.Exit(1)
	}

	// Create .wells/.gitignore
	gitignorePath := filepath.Join(wellsDir, ".gitignore")
	gitignoreContent := `# Wells temporary files
wells.lock
*.tmp
logs/
screenshots/
`
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to write .gitignore: %v\n", err)
	}

	fmt.Println()
	fmt.Println("Initialized Wells:")
	fmt.Printf("  Config: %s\n", configPath)
	fmt.Printf("  Data dir: %s\n", wellsDir)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Edit wells.config.json (cli.binary, cli.configFile)")
	fmt.Println("  2. Set LT_USERNAME and LT_ACCESS_KEY (or credentials in the config)")
	fmt.Println("  3. Run 'wells run' to trigger and follow a job")
}

func checkReadinessOrExit(cfg *ResolvedConfig) {
	if issues := CheckReadiness(cfg); len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "Error: environment is not ready")
		fmt.Fprintln(os.Stderr, "")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "  ✗ %s\n", issue)
		}
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run 'wells doctor' for a full environment check.")
		os.Exit(1)
	}

	if warnings := CheckReadinessWarnings(cfg); len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "  Warning: %s\n", w)
		}
		fmt.Fprintln(os.Stderr, "")
	}
}

func cmdRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	detach := fs.Bool("detach", false, "Trigger the job and exit without following")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wells run [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	projectRoot := GetProjectRoot()

	cfg, err := LoadConfig(projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	checkReadinessOrExit(cfg)

	lock := NewLockFile(projectRoot)
	if err := lock.Acquire(cfg.LogPath(), cfg.Config.CLI.Binary); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger, err := NewRunLogger(cfg.DataDir(), cfg.Config.Logging)
	if err != nil {
		lock.Release()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cleanup := NewCleanupCoordinator()
	cleanup.SetLogger(logger)
	cleanup.SetLock(lock)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cleanup.Cleanup()
		os.Exit(130)
	}()

	logger.RunStart("run", cfg.Config.CLI.Binary, cfg.LogPath())

	ctx := context.Background()
	tracker := NewTracker(cfg, NewCLILauncher(cfg, cleanup), logger)

	msg := tracker.Run(ctx)
	logger.LogPrintln(msg)

	if msg == msgNotStarted {
		// The CLI sometimes needs a moment before it writes anything,
		// give the trigger one more chance.
		logger.LogPrintln("Retrying trigger...")
		msg = tracker.Run(ctx)
		logger.LogPrintln(msg)
	}

	if msg == msgNotStarted {
		logger.RunEnd(false, "job did not start")
		logger.Close()
		lock.Release()
		os.Exit(1)
	}

	if *detach {
		logger.LogPrintln("Detaching; follow later with 'wells watch'.")
		logger.RunEnd(true, "triggered, detached")
		logger.Close()
		lock.Release()
		return
	}

	success, summary := followLoop(ctx, cfg, tracker, logger)

	logger.RunEnd(success, summary)
	logger.Close()
	lock.Release()
	if !success {
		os.Exit(1)
	}
}

func cmdWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	logOverride := fs.String("log", "", "Path to the CLI log file (overrides cli.logFile)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wells watch [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Follows a job that was triggered outside wells (or with --detach),")
		fmt.Fprintln(os.Stderr, "using only the CLI log file.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	projectRoot := GetProjectRoot()

	cfg, err := LoadConfig(projectRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *logOverride != "" {
		cfg.Config.CLI.LogFile = *logOverride
	}

	logger, err := NewRunLogger(cfg.DataDir(), cfg.Config.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger.RunStart("watch", cfg.Config.CLI.Binary, cfg.LogPath())

	ctx := context.Background()
	tracker := NewTracker(cfg, NoopLauncher{}, logger)

	msg := tracker.Run(ctx)
	logger.LogPrintln(msg)

	if msg == msgNotStarted {
		fmt.Fprintf(os.Stderr, "No trigger milestone in %s. Is the CLI writing to this log?\n", cfg.LogPath())
		logger.RunEnd(false, "no trigger milestone in log")
		logger.Close()
		os.Exit(1)
	}

	success, summary := followLoop(ctx, cfg, tracker, logger)

	logger.RunEnd(success, summary)
	logger.Close()
	if !success {
		os.Exit(1)
	}
}

// followLoop is the external controller: it calls Advance on a fixed
// cadence until the job reaches a terminal stage or the follow timeout
// expires. Returns success and a one-line summary for the run log.
func followLoop(ctx context.Context, cfg *ResolvedConfig, tracker *Tracker, logger *RunLogger) (bool, string) {
	interval := time.Duration(cfg.Config.Follow.IntervalMs) * time.Millisecond
	deadline := time.Now().Add(time.Duration(cfg.Config.Follow.TimeoutMin) * time.Minute)

	lastMsg := ""
	for {
		start := time.Now()
		msg, err := tracker.Advance(ctx)
		if err != nil {
			logger.Error("advance failed", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return false, "advance failed: " + err.Error()
		}
		stage := tracker.Stage()
		logger.SetStage(stage.String())
		logger.Advance(stage.String(), msg, time.Since(start).Nanoseconds())

		if msg != lastMsg {
			logger.LogPrintln(msg)
			lastMsg = msg
		}

		if stage == StageLinkFound {
			link := tracker.Link()
			logger.LogPrintln("Job link: " + link)
			captureEvidence(cfg, logger, link)
			return true, "job link found: " + link
		}
		if stage == StageTerminated {
			return false, "tracking finished without a job link"
		}

		if time.Now().After(deadline) {
			logger.LogPrintln("Follow timeout reached; stopping. The job may still be running remotely.")
			return false, "follow timeout"
		}

		select {
		case <-ctx.Done():
			return false, "cancelled"
		case <-time.After(interval):
		}
	}
}

// captureEvidence opens the job page in a headless browser and saves a
// screenshot. Failures are logged but never affect the run outcome.
func captureEvidence(cfg *ResolvedConfig, logger *RunLogger, link string) {
	browserCfg := cfg.Config.Browser
	if browserCfg == nil || !browserCfg.Enabled {
		return
	}

	logger.BrowserStart(link)
	runner := NewBrowserRunner(cfg.ProjectRoot, browserCfg)
	evidence, err := runner.CaptureJobEvidence(link, fmt.Sprintf("%03d", logger.RunNumber()))
	if err != nil {
		logger.BrowserEnd(false, "", 0)
		logger.LogPrintln("Browser capture failed: " + err.Error())
		return
	}
	if evidence == nil {
		return
	}

	logger.BrowserEnd(evidence.Error == nil, evidence.Screenshot, len(evidence.ConsoleErrors))
	fmt.Print(FormatJobEvidence(evidence))
}

func cmdDoctor(args []string) {
	projectRoot := GetProjectRoot()
	issues := 0

	fmt.Println("Wells Environment Check")
	fmt.Println()

	cfg, err := LoadConfig(projectRoot)
	if err != nil {
		fmt.Printf("✗ wells.config.json: %v\n", err)
		issues++
	} else {
		fmt.Printf("✓ wells.config.json found\n")

		if isCommandAvailable(cfg.Config.CLI.Binary) {
			fmt.Printf("✓ CLI binary: %s\n", cfg.Config.CLI.Binary)
		} else {
			fmt.Printf("✗ CLI binary not found: %s\n", cfg.Config.CLI.Binary)
			issues++
		}

		configFile := cfg.Config.CLI.ConfigFile
		if !filepath.IsAbs(configFile) {
			configFile = filepath.Join(cfg.WorkDir(), configFile)
		}
		if fileExists(configFile) {
			fmt.Printf("✓ CLI config file: %s\n", configFile)
		} else {
			fmt.Printf("✗ CLI config file not found: %s\n", configFile)
			issues++
		}

		creds := cfg.Credentials()
		if creds.Username != "" && creds.AccessKey != "" {
			fmt.Printf("✓ Credentials configured\n")
		} else {
			fmt.Printf("✗ Credentials missing (set credentials in config or %s/%s)\n", envUsername, envAccessKey)
			issues++
		}

		for _, w := range CheckReadinessWarnings(cfg) {
			fmt.Printf("○ %s\n", w)
		}
	}

	// Check .wells directory
	wellsDir := filepath.Join(projectRoot, ".wells")
	if fi, statErr := os.Stat(wellsDir); statErr == nil && fi.IsDir() {
		fmt.Printf("✓ .wells directory exists\n")

		testFile := filepath.Join(wellsDir, ".write-test")
		if f, writeErr := os.Create(testFile); writeErr != nil {
			fmt.Printf("✗ .wells directory not writable\n")
			issues++
		} else {
			f.Close()
			os.Remove(testFile)
			fmt.Printf("✓ .wells directory writable\n")
		}
	} else {
		fmt.Printf("○ .wells directory: not found (run 'wells init')\n")
	}

	// Check CLI log presence
	if err == nil {
		if fileExists(cfg.LogPath()) {
			fmt.Printf("✓ CLI log present: %s\n", cfg.LogPath())
		} else {
			fmt.Printf("○ CLI log not present yet: %s\n", cfg.LogPath())
		}
	}

	// Check lock status
	lockInfo, stale, _ := ReadLockStatus(projectRoot)
	if lockInfo != nil {
		fmt.Println()
		if stale {
			fmt.Printf("○ Stale lock found (PID %d no longer running)\n", lockInfo.PID)
		} else {
			fmt.Printf("! Wells is currently running (PID %d, started %s)\n",
				lockInfo.PID, lockInfo.StartedAt.Format("15:04:05"))
		}
	}

	fmt.Println()
	if issues > 0 {
		fmt.Printf("%d issue(s) found.\n", issues)
		os.Exit(1)
	} else {
		fmt.Println("All checks passed.")
	}
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	runNum := fs.Int("run", 0, "Show specific run number (default: latest)")
	listRuns := fs.Bool("list", false, "List all runs with summary")
	tail := fs.Int("tail", 50, "Show last N events")
	follow := fs.Bool("follow", false, "Follow log in real-time")
	fs.BoolVar(follow, "f", false, "Follow log in real-time (shorthand)")
	eventType := fs.String("type", "", "Filter by event type")
	jsonOutput := fs.Bool("json", false, "Output raw JSONL")
	summaryMode := fs.Bool("summary", false, "Show run summary only")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wells logs [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Options:")
		fs.PrintDefaults()
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Examples:")
		fmt.Fprintln(os.Stderr, "  wells logs                    # Latest run, last 50 events")
		fmt.Fprintln(os.Stderr, "  wells logs --list             # List all runs")
		fmt.Fprintln(os.Stderr, "  wells logs --run 2            # Show run #2")
		fmt.Fprintln(os.Stderr, "  wells logs --follow           # Watch current run live")
		fmt.Fprintln(os.Stderr, "  wells logs --type warning     # Show only warnings")
		fmt.Fprintln(os.Stderr, "  wells logs --summary          # Quick summary of latest run")
	}
	fs.Parse(args)

	projectRoot := GetProjectRoot()
	dataDir := filepath.Join(projectRoot, ".wells")

	runs, err := ListRuns(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading logs: %v\n", err)
		os.Exit(1)
	}

	if len(runs) == 0 {
		fmt.Println("No logs found.")
		fmt.Println("Run 'wells run' to create logs.")
		return
	}

	// --list mode: show all runs
	if *listRuns {
		fmt.Println("Runs:")
		fmt.Println()
		for _, run := range runs {
			status := "○"
			if run.Success != nil {
				if *run.Success {
					status = "✓"
				} else {
					status = "✗"
				}
			}

			duration := ""
			if run.EndTime != nil {
				d := run.EndTime.Sub(run.StartTime)
				duration = fmt.Sprintf(" (%s)", FormatDuration(d))
			}

			fmt.Printf("  %s Run #%d - %s%s\n", status, run.RunNumber,
				run.StartTime.Format("2006-01-02 15:04:05"), duration)
			if run.Summary != "" {
				fmt.Printf("    └─ %s\n", run.Summary)
			}
		}
		return
	}

	// Find the target run
	var targetRun *RunSummary
	if *runNum > 0 {
		for i := range runs {
			if runs[i].RunNumber == *runNum {
				targetRun = &runs[i]
				break
			}
		}
		if targetRun == nil {
			fmt.Fprintf(os.Stderr, "Run #%d not found\n", *runNum)
			os.Exit(1)
		}
	} else {
		// Default to latest run
		targetRun = &runs[0]
	}

	if *summaryMode {
		printRunSummary(targetRun.LogPath)
		return
	}

	if *follow {
		followRunLog(targetRun.LogPath, *eventType, *jsonOutput)
		return
	}

	printEvents(targetRun.LogPath, *tail, *eventType, *jsonOutput)
}

func printRunSummary(logPath string) {
	summary, err := GetRunSummary(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading log: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Run #%d - %s\n", summary.RunNumber, summary.StartTime.Format("2006-01-02 15:04:05"))
	if summary.Mode != "" {
		fmt.Printf("Mode: %s\n", summary.Mode)
	}
	if summary.Duration != nil {
		fmt.Printf("Duration: %s\n", FormatDuration(*summary.Duration))
	}
	if summary.Success != nil {
		result := "FAILED"
		if *summary.Success {
			result = "SUCCEEDED"
		}
		fmt.Printf("Result: %s\n", result)
	}
	if summary.Result != "" {
		fmt.Printf("Summary: %s\n", summary.Result)
	}

	fmt.Println()
	fmt.Printf("Milestones: %d\n", len(summary.Milestones))
	for _, m := range summary.Milestones {
		fmt.Printf("  ✓ %s (%s) at %s\n", m.Name, m.Term, m.At.Format("15:04:05"))
	}

	if len(summary.ErrorKinds) > 0 {
		fmt.Println()
		fmt.Println("Configuration errors:")
		for _, kind := range summary.ErrorKinds {
			fmt.Printf("  ✗ %s\n", kind)
		}
	}

	if summary.Link != "" {
		fmt.Println()
		fmt.Printf("Job link: %s\n", summary.Link)
	}
	if summary.Screenshot != "" {
		fmt.Printf("Screenshot: %s\n", summary.Screenshot)
	}

	fmt.Println()
	fmt.Printf("Warnings: %d\n", summary.Warnings)
	fmt.Printf("Errors: %d\n", summary.Errors)
}

func printEvents(logPath string, tailN int, eventTypeFilter string, jsonOutput bool) {
	events, err := ReadEvents(logPath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading log: %v\n", err)
		os.Exit(1)
	}

	var filtered []Event
	for _, e := range events {
		if eventTypeFilter != "" && string(e.Type) != eventTypeFilter {
			continue
		}
		filtered = append(filtered, e)
	}

	if len(filtered) > tailN {
		filtered = filtered[len(filtered)-tailN:]
	}

	for _, e := range filtered {
		if jsonOutput {
			data, _ := json.Marshal(e)
			fmt.Println(string(data))
		} else {
			printEvent(&e)
		}
	}
}

func printEvent(e *Event) {
	timestamp := e.Timestamp.Format("15:04:05")

	switch e.Type {
	case EventRunStart:
		mode, _ := e.Data["mode"].(string)
		fmt.Printf("[%s] === Run started (%s) ===\n", timestamp, mode)

	case EventRunEnd:
		result := "failed"
		if e.Success != nil && *e.Success {
			result = "success"
		}
		fmt.Printf("[%s] === Run ended: %s ===\n", timestamp, result)
		if e.Message != "" {
			fmt.Printf("         %s\n", e.Message)
		}

	case EventLaunchStart:
		binary, _ := e.Data["binary"].(string)
		fmt.Printf("[%s] → CLI launched: %s\n", timestamp, binary)

	case EventAdvance:
		duration := ""
		if e.Duration != nil {
			duration = fmt.Sprintf(" (%s)", FormatDuration(time.Duration(*e.Duration)))
		}
		fmt.Printf("[%s] [%s]%s %s\n", timestamp, e.Stage, duration, e.Message)

	case EventMilestoneFound:
		milestone, _ := e.Data["milestone"].(string)
		term, _ := e.Data["term"].(string)
		fmt.Printf("[%s]   ◆ %s: %q\n", timestamp, milestone, term)

	case EventErrorDetected:
		kind, _ := e.Data["kind"].(string)
		fmt.Printf("[%s] ✗ Configuration error: %s\n", timestamp, kind)

	case EventLinkFound:
		fmt.Printf("[%s] ✓ Job link: %s\n", timestamp, e.Message)

	case EventStateChange:
		from, _ := e.Data["from"].(string)
		to, _ := e.Data["to"].(string)
		fmt.Printf("[%s] ↔ State: %s → %s\n", timestamp, from, to)

	case EventBrowserStart:
		fmt.Printf("[%s] → Opening job page: %s\n", timestamp, e.Message)

	case EventBrowserEnd:
		status := "✗"
		if e.Success != nil && *e.Success {
			status = "✓"
		}
		screenshot, _ := e.Data["screenshot"].(string)
		fmt.Printf("[%s] %s Job page captured", timestamp, status)
		if screenshot != "" {
			fmt.Printf(": %s", screenshot)
		}
		fmt.Println()

	case EventWarning:
		fmt.Printf("[%s] ! Warning: %s\n", timestamp, e.Message)

	case EventError:
		fmt.Printf("[%s] ✗ Error: %s\n", timestamp, e.Message)
		if errMsg, ok := e.Data["error"].(string); ok {
			fmt.Printf("         %s\n", errMsg)
		}

	default:
		fmt.Printf("[%s] %s", timestamp, e.Type)
		if e.Message != "" {
			fmt.Printf(": %s", e.Message)
		}
		fmt.Println()
	}
}

func followRunLog(logPath, eventTypeFilter string, jsonOutput bool) {
	file, err := os.Open(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	// Seek to end
	file.Seek(0, io.SeekEnd)

	fmt.Printf("Following %s (Ctrl+C to stop)\n\n", logPath)

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		if eventTypeFilter != "" && string(event.Type) != eventTypeFilter {
			continue
		}

		if jsonOutput {
			fmt.Println(line)
		} else {
			printEvent(&event)
		}
	}
}
