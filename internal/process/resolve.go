package process

import (
	"fmt"
	"os"
	"path/filepath"
)

// RecorderName is the base name used for logs, pid files and history records.
const RecorderName = "screenpipe"

// DefaultExecutable returns where the installer places the recorder under home.
func DefaultExecutable(home string) string {
	return filepath.Join(append([]string{home}, executableRel...)...)
}

// ResolveExecutable returns override when set, otherwise the default install
// location under the current user's home directory. PATH is never consulted.
func ResolveExecutable(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return DefaultExecutable(home), nil
}
