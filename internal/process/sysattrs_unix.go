//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// configureSysProcAttr places the recorder in its own process group so that
// terminate can signal the recorder together with any helpers it forks.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
