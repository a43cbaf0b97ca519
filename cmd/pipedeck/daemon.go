package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/loykin/pipedeck/internal/process"
)

// daemonArgs strips the daemonize-related flags from args so the child
// runs serve in the foreground.
func daemonArgs(args []string, pidFile, logFile string) []string {
	var out []string
	skipNext := false
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		switch arg {
		case "--daemonize":
			continue
		case "--pidfile", "--logfile":
			skipNext = true
			continue
		}
		out = append(out, arg)
	}
	if pidFile != "" {
		out = append(out, "--pidfile", pidFile)
	}
	if logFile != "" {
		out = append(out, "--logfile", logFile)
	}
	return out
}

// daemonize re-executes the current binary detached from the terminal and
// returns the child's PID. The caller is expected to exit.
func daemonize(pidFile, logFile string) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}
	// #nosec G204
	cmd := exec.Command(executable, daemonArgs(os.Args[1:], pidFile, logFile)...)
	configureDaemonAttrs(cmd)
	cmd.Stdin = nil
	if logFile != "" {
		// #nosec G304
		logF, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = logF.Close() }()
		cmd.Stdout = logF
		cmd.Stderr = logF
	}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon process: %w", err)
	}
	pid := cmd.Process.Pid
	if pidFile != "" {
		if err := process.WritePIDFile(pidFile, pid); err != nil {
			return pid, fmt.Errorf("failed to write PID file: %w", err)
		}
	}
	_ = cmd.Process.Release()
	return pid, nil
}

// runningDaemon returns the PID recorded in pidFile when that process is
// still alive, or 0.
func runningDaemon(pidFile string) int {
	return process.PIDFileOwner(pidFile)
}

func removePidFile(pidFile string) error {
	if pidFile == "" {
		return nil
	}
	err := os.Remove(pidFile)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
