package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// FileConfig describes rotated log files.
// For the daemon's own log only Path is used. For a supervised process,
// if StdoutPath/StderrPath are empty and Dir is set, files will be
// Dir/<name>.stdout.log and Dir/<name>.stderr.log.
type FileConfig struct {
	Path       string `json:"path" mapstructure:"path"`               // daemon log file
	Dir        string `json:"dir" mapstructure:"dir"`                 // base directory for process logs
	StdoutPath string `json:"stdout" mapstructure:"stdout"`           // explicit stdout path overrides Dir
	StderrPath string `json:"stderr" mapstructure:"stderr"`           // explicit stderr path overrides Dir
	MaxSizeMB  int    `json:"max_size_mb" mapstructure:"max_size_mb"` // megabytes before rotation (default 10)
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"` // number of backups to keep (default 3)
	MaxAgeDays int    `json:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" mapstructure:"compress"` // Gzip rotated files
}

// Config is the logging configuration shared by the daemon, the dashboard
// and the recorder's output capture.
type Config struct {
	Level string     `json:"level" mapstructure:"level"` // debug, info, warn, error
	Color bool       `json:"color" mapstructure:"color"`
	JSON  bool       `json:"json" mapstructure:"json"`
	File  FileConfig `json:"file" mapstructure:"file"`
}

// Enabled reports whether any process output destination is configured.
func (c Config) Enabled() bool {
	return c.File.Dir != "" || c.File.StdoutPath != "" || c.File.StderrPath != ""
}

// ProcessWriters returns io.WriteClosers for stdout and stderr of the named process.
// Either writer is nil when no destination is configured for it. Parent
// directories are created up front so an unusable log location fails here.
func (c Config) ProcessWriters(name string) (io.WriteCloser, io.WriteCloser, error) {
	stdout := c.File.StdoutPath
	stderr := c.File.StderrPath
	if stdout == "" && c.File.Dir != "" {
		stdout = filepath.Join(c.File.Dir, fmt.Sprintf("%s.stdout.log", name))
	}
	if stderr == "" && c.File.Dir != "" {
		stderr = filepath.Join(c.File.Dir, fmt.Sprintf("%s.stderr.log", name))
	}
	for _, p := range []string{stdout, stderr} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			return nil, nil, fmt.Errorf("process log dir for %s: %w", name, err)
		}
	}
	var outW io.WriteCloser
	var errW io.WriteCloser
	if stdout != "" {
		outW = c.File.rotated(stdout)
	}
	if stderr != "" {
		errW = c.File.rotated(stderr)
	}
	return outW, errW, nil
}

func (f FileConfig) rotated(path string) *lj.Logger {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(f.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(f.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(f.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   f.Compress,
	}
}

// New builds a slog.Logger from the config. When File.Path is set, records go to
// that rotated file; otherwise they go to fallback (os.Stderr when nil).
// The returned closer releases the file, and is never nil.
func New(c Config, fallback io.Writer) (*slog.Logger, io.Closer) {
	var w io.Writer = fallback
	var closer io.Closer = nopCloser{}
	color := c.Color
	if c.File.Path != "" {
		_ = os.MkdirAll(filepath.Dir(c.File.Path), 0o750)
		f := c.File.rotated(c.File.Path)
		w, closer = f, f
		color = false
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(c.Level)}
	var h slog.Handler
	switch {
	case c.JSON:
		h = slog.NewJSONHandler(w, opts)
	case color:
		h = NewColorTextHandler(w, opts, true)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
