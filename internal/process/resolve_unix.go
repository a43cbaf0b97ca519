//go:build !windows

package process

var executableRel = []string{".local", "bin", "screenpipe"}
