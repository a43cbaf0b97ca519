//go:build !windows

package process

import (
	"errors"
	"syscall"
)

// terminate sends SIGTERM to the process group led by pid.
// A group that is already gone is not an error.
func terminate(pid int) error {
	return signalGroup(pid, syscall.SIGTERM)
}

// kill sends SIGKILL to the process group led by pid.
func kill(pid int) error {
	return signalGroup(pid, syscall.SIGKILL)
}

func signalGroup(pid int, sig syscall.Signal) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	err := syscall.Kill(-pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		// group leader may have been re-parented out of the group; try the pid itself
		err = syscall.Kill(pid, sig)
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
	}
	return err
}

// Alive reports whether pid refers to a live process. A process owned by
// another user still counts.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
