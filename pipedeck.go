// Package pipedeck supervises the screenpipe recorder. A Host owns the
// recorder process and exposes it over an HTTP bridge; the dashboard and the
// CLI drive it through that bridge or in-process through Host.Local.
package pipedeck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/pipedeck/internal/bridge"
	cfg "github.com/loykin/pipedeck/internal/config"
	"github.com/loykin/pipedeck/internal/dashboard"
	"github.com/loykin/pipedeck/internal/health"
	"github.com/loykin/pipedeck/internal/history"
	"github.com/loykin/pipedeck/internal/history/factory"
	"github.com/loykin/pipedeck/internal/metrics"
	"github.com/loykin/pipedeck/internal/server"
	"github.com/loykin/pipedeck/internal/settings"
	"github.com/loykin/pipedeck/internal/supervisor"
	"github.com/loykin/pipedeck/pkg/client"
)

// Re-export core types for embedders.

type Config = cfg.Config

type Status = supervisor.Status

type Reply = bridge.Reply

type HealthStatus = health.Status

type Controller = dashboard.Controller

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

func DefaultConfig() *Config { return cfg.Default() }

// Host is the privileged side: supervisor, bridge dispatcher and HTTP router.
type Host struct {
	Supervisor *supervisor.Supervisor
	Dispatcher *bridge.Dispatcher

	cfg     *Config
	log     *slog.Logger
	router  *server.Router
	usage   *metrics.UsageCollector
	closers []io.Closer

	quitOnce sync.Once
	quit     chan struct{}
}

// NewHost wires a Host from c. History sinks are opened here; Close releases them.
func NewHost(c *Config, log *slog.Logger) (*Host, error) {
	if c == nil {
		c = cfg.Default()
	}
	if log == nil {
		log = slog.Default()
	}
	h := &Host{cfg: c, log: log, quit: make(chan struct{})}

	recEnv, err := c.Recorder.Environment()
	if err != nil {
		return nil, fmt.Errorf("recorder environment: %w", err)
	}

	fan := history.Fanout{Timeout: c.History.Timeout, Logger: log}
	var lister history.Lister
	if c.History.Enabled {
		for _, dsn := range c.History.Sinks {
			sink, err := factory.NewSinkFromDSN(dsn)
			if err != nil {
				_ = h.Close()
				return nil, fmt.Errorf("history sink %q: %w", dsn, err)
			}
			fan.Sinks = append(fan.Sinks, sink)
			if cl, ok := sink.(io.Closer); ok {
				h.closers = append(h.closers, cl)
			}
			if l, ok := sink.(history.Lister); ok && lister == nil {
				lister = l
			}
		}
	}

	if c.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			log.Warn("failed to register metrics", "error", err)
		}
	}
	if c.Recorder.Usage.Enabled {
		h.usage = metrics.NewUsageCollector(c.Recorder.Usage)
		if c.Metrics.Enabled {
			if err := h.usage.RegisterMetrics(prometheus.DefaultRegisterer); err != nil {
				log.Warn("failed to register usage metrics", "error", err)
			}
		}
	}

	h.Supervisor = supervisor.New(supervisor.Options{
		Executable:     c.Recorder.Executable,
		WorkDir:        c.Recorder.WorkDir,
		PIDFile:        c.Recorder.PIDFile,
		Env:            recEnv,
		Output:         c.Recorder.Output(),
		InstallCommand: c.Recorder.InstallCommand,
		Logger:         log,
		History:        fan,
		Usage:          h.usage,
	})
	h.Dispatcher = &bridge.Dispatcher{
		Recorder: h.Supervisor,
		Quit:     h.Quit,
		Logger:   log,
	}
	h.router = server.NewRouter(h.Dispatcher, h.Supervisor, c.Server.BasePath).
		WithMetrics(c.Metrics.Enabled).
		WithToken(c.Server.Token)
	if lister != nil {
		h.router = h.router.WithHistory(lister)
	}
	return h, nil
}

// Handler serves the bridge API.
func (h *Host) Handler() http.Handler { return h.router.Handler() }

// Local calls the bridge in-process.
func (h *Host) Local() bridge.Local { return bridge.Local{D: h.Dispatcher} }

// Quit asks Serve to return. Safe to call more than once.
func (h *Host) Quit() {
	h.quitOnce.Do(func() { close(h.quit) })
}

// Done is closed once Quit has been called.
func (h *Host) Done() <-chan struct{} { return h.quit }

// Serve runs the bridge on the configured listen address until ctx ends or
// quit is called, then stops the recorder and drains the server.
func (h *Host) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", h.cfg.Server.Listen, err)
	}
	return h.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (h *Host) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := server.NewServer(ln.Addr().String(), h.Handler())
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.StartUsage(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	h.log.Info("bridge listening", "addr", ln.Addr().String(), "base_path", h.cfg.Server.BasePath)

	var serveErr error
	select {
	case <-ctx.Done():
	case <-h.quit:
		h.log.Info("quit requested over the bridge")
	case serveErr = <-errCh:
	}

	timeout := h.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sctx, scancel := context.WithTimeout(context.Background(), timeout)
	defer scancel()
	if err := h.Supervisor.Shutdown(sctx); err != nil {
		h.log.Warn("recorder shutdown", "error", err)
	}
	if serveErr == nil {
		if err := srv.Shutdown(sctx); err != nil {
			serveErr = err
		}
	}
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}
	return serveErr
}

// StartUsage begins sampling the recorder's resource usage until ctx ends.
// It does nothing unless recorder.usage.enabled is set.
func (h *Host) StartUsage(ctx context.Context) {
	if h.usage.Enabled() {
		h.usage.Start(ctx, h.Supervisor.PID)
	}
}

// Close stops usage sampling and releases history sinks.
func (h *Host) Close() error {
	if h.usage != nil {
		h.usage.Stop()
	}
	var errs []error
	for _, c := range h.closers {
		errs = append(errs, c.Close())
	}
	h.closers = nil
	return errors.Join(errs...)
}

// NewClient returns a bridge client for the host described by c.
func NewClient(c *Config, timeout time.Duration, log *slog.Logger) *client.Client {
	if c == nil {
		c = cfg.Default()
	}
	return client.New(client.Config{
		BaseURL: "http://" + c.Server.Listen + c.Server.BasePath,
		Timeout: timeout,
		Token:   c.Server.Token,
		Logger:  log,
	})
}

// NewHealthClient returns the recorder health client described by c.
func NewHealthClient(c *Config) *health.Client {
	if c == nil {
		c = cfg.Default()
	}
	return health.NewClient(c.Recorder.HealthURL, c.Recorder.HealthTimeout)
}

// RunDashboard draws the terminal dashboard against ctrl until the user leaves.
func RunDashboard(ctx context.Context, c *Config, ctrl Controller, log *slog.Logger) error {
	if c == nil {
		c = cfg.Default()
	}
	return dashboard.Run(ctx, dashboard.Options{
		Controller:   ctrl,
		Health:       NewHealthClient(c),
		PollInterval: c.Dashboard.PollInterval,
		Settings:     settings.Defaults().Seed(c.Settings),
		Logger:       log,
	})
}
