//go:build windows

package process

import (
	"errors"
	"syscall"
)

var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

const (
	PROCESS_TERMINATE         = 0x0001
	PROCESS_QUERY_INFORMATION = 0x0400
)

// terminate ends the recorder with TerminateProcess; Windows has no SIGTERM.
func terminate(pid int) error {
	return terminateProcess(pid)
}

func kill(pid int) error {
	return terminateProcess(pid)
}

func terminateProcess(pid int) error {
	if pid <= 0 {
		return errors.New("invalid pid")
	}
	handle, err := openProcess(PROCESS_TERMINATE, uint32(pid))
	if err != nil {
		// The process is most likely gone already.
		return nil
	}
	defer func() { _ = closeHandle(handle) }()

	ret, _, err := procTerminateProcess.Call(uintptr(handle), uintptr(1))
	if ret == 0 {
		return err
	}
	return nil
}

func openProcess(access uint32, processID uint32) (syscall.Handle, error) {
	ret, _, err := procOpenProcess.Call(uintptr(access), 0, uintptr(processID))
	if ret == 0 {
		return 0, err
	}
	return syscall.Handle(ret), nil
}

func closeHandle(handle syscall.Handle) error {
	ret, _, err := procCloseHandle.Call(uintptr(handle))
	if ret == 0 {
		return err
	}
	return nil
}

// Alive reports whether pid refers to a live process.
func Alive(pid int) bool {
	handle, err := openProcess(PROCESS_QUERY_INFORMATION, uint32(pid))
	if err != nil {
		return false
	}
	_ = closeHandle(handle)
	return true
}
