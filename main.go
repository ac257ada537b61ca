package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(0)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd != "upgrade" {
		startUpdateCheck()
		defer printUpdateNotice()
	}

	switch cmd {
	case "-h", "--help", "help":
		showHelp()
	case "-v", "--version", "version":
		fmt.Printf("wells v%s\n", version)
	case "init":
		cmdInit(args)
	case "run":
		cmdRun(args)
	case "watch":
		cmdWatch(args)
	case "logs":
		cmdLogs(args)
	case "doctor":
		cmdDoctor(args)
	case "upgrade":
		cmdUpgrade(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprintln(os.Stderr, "Run 'wells --help' for usage.")
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Printf(`wells v%s - HyperExecute job tracker

Usage: wells <command> [options]

Commands:
  init [--force]       Initialize Wells (creates wells.config.json + .wells/)
  run [--detach]       Trigger a HyperExecute job and follow it to the job link
  watch [--log path]   Follow an already-running job from its CLI log
  logs                 View run logs (--list, --summary, --follow, etc.)
  doctor               Check Wells environment
  upgrade              Upgrade Wells to the latest version

Options:
  -h, --help           Show this help message
  -v, --version        Show version number

Examples:
  wells init                    # Initialize Wells in current project
  wells run                     # Trigger a job, follow until the link appears
  wells run --detach            # Trigger a job and exit immediately
  wells watch                   # Follow the CLI log of a job started elsewhere
  wells logs --list             # List recorded runs
  wells doctor                  # Verify binary, config and credentials

File Structure:
  wells.config.json             # Project configuration (required)
  hyperexecute-cli.log          # CLI output the tracker polls
  .wells/
    logs/                       # JSONL run logs
    screenshots/                # Job-page evidence
`, version)
}
