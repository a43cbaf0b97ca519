package process

import (
	"io"
	"os/exec"
	"strings"

	"github.com/loykin/pipedeck/internal/logger"
)

// Spec describes the recorder invocation.
type Spec struct {
	Name    string        `json:"name"`     // used for log file names and history records
	Path    string        `json:"path"`     // absolute executable path
	Args    []string      `json:"args"`     // command line flags
	WorkDir string        `json:"work_dir"` // optional working dir
	Env     []string      `json:"env"`      // full environment; nil inherits the host's
	PIDFile string        `json:"pid_file"` // optional pidfile path
	Log     logger.Config `json:"log"`      // stdout/stderr capture
	// Stdout and Stderr take precedence over Log when set.
	Stdout io.Writer `json:"-"`
	Stderr io.Writer `json:"-"`
}

// BuildCommand constructs the *exec.Cmd for the spec without starting it.
func (s Spec) BuildCommand() *exec.Cmd {
	// #nosec G204 -- the executable is resolved by the supervisor, not taken from remote input
	cmd := exec.Command(s.Path, s.Args...)
	if s.WorkDir != "" {
		cmd.Dir = s.WorkDir
	}
	if len(s.Env) > 0 {
		cmd.Env = s.Env
	}
	configureSysProcAttr(cmd)
	return cmd
}

// CommandLine builds an *exec.Cmd from a free-form command line.
// It avoids invoking a shell when not necessary, and it also respects
// an explicit shell invocation already present in the string
// (e.g., "sh -c 'echo hi'"), avoiding double-wrapping with another shell.
func CommandLine(line string) *exec.Cmd {
	line = strings.TrimSpace(line)
	if line == "" {
		return trueCommand()
	}
	if afterC, ok := parseExplicitShell(line); ok {
		return shellCommand(afterC)
	}
	if strings.ContainsAny(line, "|&;<>*?`$\"'(){}[]~") {
		return shellCommand(line)
	}
	parts := strings.Fields(line)
	// #nosec G204 -- command lines come from the local config file
	return exec.Command(parts[0], parts[1:]...)
}

// parseExplicitShell detects patterns like "sh -c <ARG>" or "/bin/sh -c <ARG>" at the
// beginning of line and returns the script after "-c ".
// One pair of surrounding quotes is stripped so the shell parses the script itself.
func parseExplicitShell(line string) (string, bool) {
	trim := strings.TrimLeft(line, " \t")
	for _, p := range []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "} {
		if !strings.HasPrefix(trim, p) {
			continue
		}
		after := trim[len(p):]
		if n := len(after); n >= 2 {
			if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
				after = after[1 : n-1]
			}
		}
		return after, true
	}
	return "", false
}
