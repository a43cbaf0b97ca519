// Package config loads pipedeck's TOML configuration with environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/pipedeck/internal/env"
	"github.com/loykin/pipedeck/internal/logger"
	"github.com/loykin/pipedeck/internal/metrics"
)

// EnvPrefix prefixes environment overrides: PIPEDECK_SERVER_LISTEN=... sets server.listen.
const EnvPrefix = "PIPEDECK"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Recorder  RecorderConfig  `mapstructure:"recorder"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       logger.Config   `mapstructure:"log"`
	History   HistoryConfig   `mapstructure:"history"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	// Settings seeds the dashboard's recorder settings form.
	Settings map[string]any `mapstructure:"settings"`
}

type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
	// PIDFile is written by serve --daemonize.
	PIDFile string `mapstructure:"pidfile"`
	// ShutdownTimeout bounds the recorder stop and HTTP drain on exit.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// Token, when set, is required as "Authorization: Bearer <token>" on every bridge request.
	Token string `mapstructure:"token"`
}

type RecorderConfig struct {
	// Executable overrides the per-platform install location. Must be absolute.
	Executable     string              `mapstructure:"executable"`
	HealthURL      string              `mapstructure:"health_url"`
	HealthTimeout  time.Duration       `mapstructure:"health_timeout"`
	InstallCommand string              `mapstructure:"install_command"`
	WorkDir        string              `mapstructure:"workdir"`
	PIDFile        string              `mapstructure:"pidfile"`
	Env            []string            `mapstructure:"env"`
	EnvFiles       []string            `mapstructure:"env_files"`
	Log            logger.FileConfig   `mapstructure:"log"`
	Usage          metrics.UsageConfig `mapstructure:"usage"`
}

type DashboardConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// LogFile receives dashboard logs; the terminal is never written to.
	LogFile string `mapstructure:"log_file"`
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Sinks is a list of DSNs; see factory.NewSinkFromDSN.
	Sinks   []string      `mapstructure:"sinks"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("server.base_path", "/api")
	v.SetDefault("server.pidfile", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.token", "")

	v.SetDefault("recorder.executable", "")
	v.SetDefault("recorder.health_url", "http://localhost:3030/health")
	v.SetDefault("recorder.health_timeout", 5*time.Second)
	v.SetDefault("recorder.install_command", "")
	v.SetDefault("recorder.workdir", "")
	v.SetDefault("recorder.pidfile", "")
	v.SetDefault("recorder.env", []string{})
	v.SetDefault("recorder.env_files", []string{})
	v.SetDefault("recorder.log.dir", "")
	v.SetDefault("recorder.log.stdout", "")
	v.SetDefault("recorder.log.stderr", "")
	v.SetDefault("recorder.log.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("recorder.log.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("recorder.log.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("recorder.log.compress", false)
	v.SetDefault("recorder.usage.enabled", false)
	v.SetDefault("recorder.usage.interval", 5*time.Second)
	v.SetDefault("recorder.usage.history_size", 60)

	v.SetDefault("dashboard.poll_interval", 5*time.Second)
	v.SetDefault("dashboard.log_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.color", true)
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.path", "")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.sinks", []string{})
	v.SetDefault("history.timeout", 5*time.Second)

	v.SetDefault("metrics.enabled", false)
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads path (may be empty) and applies PIPEDECK_* overrides on top.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Listen) == "" {
		return errors.New("server.listen must not be empty")
	}
	if c.Recorder.Executable != "" && !filepath.IsAbs(c.Recorder.Executable) {
		return fmt.Errorf("recorder.executable must be an absolute path: %q", c.Recorder.Executable)
	}
	if c.Dashboard.PollInterval < 0 {
		return fmt.Errorf("dashboard.poll_interval must not be negative: %s", c.Dashboard.PollInterval)
	}
	if c.History.Enabled && len(c.History.Sinks) == 0 {
		return errors.New("history.enabled requires at least one entry in history.sinks")
	}
	return nil
}

// Output is the logger config the recorder's stdout/stderr are written through.
func (r RecorderConfig) Output() logger.Config {
	return logger.Config{File: r.Log}
}

// Environment layers recorder.env_files then recorder.env over the OS environment.
func (r RecorderConfig) Environment() (*env.Env, error) {
	e, err := env.New().WithFiles(r.EnvFiles...)
	if err != nil {
		return nil, err
	}
	return e.WithPairs(r.Env), nil
}
