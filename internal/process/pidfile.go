package process

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// pidMeta is stored on the line after the PID so a reused PID is not
// mistaken for the process that wrote the file.
type pidMeta struct {
	StartUnix int64 `json:"start_unix"`
}

// WritePIDFile writes pid and its start time to path, creating parent directories.
func WritePIDFile(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	content := strconv.Itoa(pid) + "\n"
	if start := startUnix(pid); start > 0 {
		meta, _ := json.Marshal(pidMeta{StartUnix: start})
		content += string(meta) + "\n"
	}
	return os.WriteFile(path, []byte(content), 0o600)
}

// ReadPIDFile reads the PID from a file written by WritePIDFile.
func ReadPIDFile(path string) (int, error) {
	pid, _, err := readPIDFile(path)
	return pid, err
}

func readPIDFile(path string) (int, pidMeta, error) {
	var meta pidMeta
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, meta, err
	}
	pidLine, rest, _ := strings.Cut(strings.ReplaceAll(string(b), "\r\n", "\n"), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(pidLine))
	if err != nil {
		return 0, meta, err
	}
	metaLine, _, _ := strings.Cut(rest, "\n")
	if metaLine = strings.TrimSpace(metaLine); metaLine != "" {
		_ = json.Unmarshal([]byte(metaLine), &meta)
	}
	return pid, meta, nil
}

// PIDFileOwner returns the PID recorded in path when that process is still
// the one that wrote it. It returns 0 for a missing or unreadable file, a
// dead process, or a PID the OS has since handed to another process.
func PIDFileOwner(path string) int {
	if path == "" {
		return 0
	}
	pid, meta, err := readPIDFile(path)
	if err != nil || !Alive(pid) {
		return 0
	}
	if meta.StartUnix > 0 {
		if cur := startUnix(pid); cur > 0 && absDiff(cur, meta.StartUnix) > 1 {
			return 0
		}
	}
	return pid
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
