//go:build windows

package process

var executableRel = []string{"screenpipe", "bin", "screenpipe.exe"}
