package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// Credentials identify the LambdaTest account the job runs under.
type Credentials struct {
	Username  string
	AccessKey string
}

// Launcher starts the test-execution CLI. Implementations must produce the
// tracked log file as a side effect; the tracker never inspects the process
// itself. Exit codes mean nothing here: in no-track mode the CLI exits or
// detaches long before the remote job finishes, so success is inferred
// exclusively from the log side channel.
type Launcher interface {
	Launch(ctx context.Context, creds Credentials, configPath string) error
}

// CLILauncher spawns the HyperExecute binary with combined output
// redirected to the log file the watchers poll.
type CLILauncher struct {
	binary    string
	extraArgs []string
	logPath   string
	workDir   string
	cleanup   *CleanupCoordinator
}

func NewCLILauncher(cfg *ResolvedConfig, cleanup *CleanupCoordinator) *CLILauncher {
	return &CLILauncher{
		binary:    cfg.Config.CLI.Binary,
		extraArgs: cfg.Config.CLI.Args,
		logPath:   cfg.LogPath(),
		workDir:   cfg.WorkDir(),
		cleanup:   cleanup,
	}
}

// Launch starts the CLI detached and returns as soon as the process is
// running. The subprocess gets its own process group so an interrupt can
// take the whole tree down; a goroutine reaps it in the background.
func (l *CLILauncher) Launch(ctx context.Context, creds Credentials, configPath string) error {
	logFile, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", l.logPath, err)
	}

	args := []string{
		"--user", creds.Username,
		"--key", creds.AccessKey,
		"--config", configPath,
		"--no-track",
	}
	args = append(args, l.extraArgs...)

	cmd := exec.CommandContext(ctx, l.binary, args...)
	cmd.Dir = l.workDir
	cmd.Env = os.Environ()
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("failed to start %s: %w", l.binary, err)
	}

	if l.cleanup != nil {
		l.cleanup.SetCLI(cmd)
	}

	go func() {
		cmd.Wait()
		logFile.Close()
		if l.cleanup != nil {
			l.cleanup.ClearCLI()
		}
	}()

	return nil
}

// NoopLauncher is used by watch mode: the CLI was started elsewhere and
// the log file already exists (or will appear).
type NoopLauncher struct{}

func (NoopLauncher) Launch(context.Context, Credentials, string) error {
	return nil
}
