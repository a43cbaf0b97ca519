//go:build !windows

package installer

import "os/exec"

// DefaultCommandLine is the documented install command for Unix-like systems.
const DefaultCommandLine = "curl -fsSL get.screenpi.pe/cli | sh"

func defaultCommand() *exec.Cmd {
	// #nosec G204
	return exec.Command("/bin/sh", "-c", DefaultCommandLine)
}
