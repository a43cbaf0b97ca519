// Package installer runs the recorder's remote install script.
package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/loykin/pipedeck/internal/process"
)

// Result is the outcome of a successful install.
type Result struct {
	Stdout string `json:"stdout"`
}

// InstallError reports a failed install run.
type InstallError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *InstallError) Error() string {
	msg := fmt.Sprintf("install failed (exit code %d)", e.ExitCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InstallError) Unwrap() error { return e.Err }

// Installer runs the install command. The zero value uses the platform default.
type Installer struct {
	// CommandLine overrides the platform install command when set.
	CommandLine string
	Logger      *slog.Logger
}

// Command returns the *exec.Cmd that Install will run.
func (i Installer) Command(ctx context.Context) *exec.Cmd {
	var cmd *exec.Cmd
	if strings.TrimSpace(i.CommandLine) != "" {
		cmd = process.CommandLine(i.CommandLine)
	} else {
		cmd = defaultCommand()
	}
	if ctx == nil {
		return cmd
	}
	// rebuild bound to ctx so cancellation kills the installer
	// #nosec G204 -- argv comes from defaultCommand or the local config
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...)
	c.Args = cmd.Args
	return c
}

// Install runs the installer to completion and captures its output.
// A non-zero exit or a failure to launch returns *InstallError.
func (i Installer) Install(ctx context.Context) (Result, error) {
	log := i.Logger
	if log == nil {
		log = slog.Default()
	}
	cmd := i.Command(ctx)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	log.Info("running recorder installer", "command", strings.Join(cmd.Args, " "))
	err := cmd.Run()
	if err != nil {
		code := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		}
		log.Error("recorder installer failed", "exit_code", code, "error", err)
		return Result{}, &InstallError{ExitCode: code, Stderr: stderr.String(), Err: err}
	}
	log.Info("recorder installer finished")
	return Result{Stdout: stdout.String()}, nil
}
