package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/loykin/pipedeck"
	"github.com/loykin/pipedeck/internal/bridge"
	"github.com/loykin/pipedeck/internal/health"
	"github.com/loykin/pipedeck/internal/logger"
	"github.com/loykin/pipedeck/internal/process"
	"github.com/loykin/pipedeck/internal/recorderstub"
	"github.com/loykin/pipedeck/internal/settings"
	"github.com/loykin/pipedeck/pkg/client"
)

type command struct {
	out io.Writer
	log *slog.Logger
}

func newCommand() command {
	return command{out: os.Stdout, log: slog.Default()}
}

func (c command) loadConfig(path string) (*pipedeck.Config, error) {
	cfg, err := pipedeck.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

func apiURL(cfg *pipedeck.Config) string {
	return "http://" + cfg.Server.Listen + cfg.Server.BasePath
}

// apiClient returns a client for the host, failing fast when it is not reachable.
func (c command) apiClient(ctx context.Context, f APIFlags) (*client.Client, error) {
	url, token := f.APIUrl, ""
	cfg, err := c.loadConfig(f.ConfigPath)
	switch {
	case err == nil:
		token = cfg.Server.Token
		if url == "" {
			url = apiURL(cfg)
		}
	case url == "":
		return nil, err
	}
	cl := client.New(client.Config{BaseURL: url, Timeout: f.APITimeout, Token: token, Logger: c.log})
	if !cl.IsReachable(ctx) {
		return nil, fmt.Errorf("host not reachable at %s - please start it first with 'pipedeck serve'", url)
	}
	return cl, nil
}

// Serve runs the host in the foreground, or detaches it with --daemonize.
func (c command) Serve(ctx context.Context, f ServeFlags) error {
	cfg, err := c.loadConfig(f.ConfigPath)
	if err != nil {
		return err
	}
	pidFile := f.PidFile
	if pidFile == "" {
		pidFile = cfg.Server.PIDFile
	}
	if pid := runningDaemon(pidFile); pid != 0 && pid != os.Getpid() {
		return fmt.Errorf("pipedeck already running with pid %d (pidfile %s)", pid, pidFile)
	}
	if f.Daemonize {
		if os.Getppid() == 1 {
			return errors.New("already running detached; drop --daemonize")
		}
		pid, err := daemonize(pidFile, f.LogFile)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.out, "Daemon started with PID %d\n", pid)
		return nil
	}

	log, closer := logger.New(cfg.Log, os.Stderr)
	defer func() { _ = closer.Close() }()
	slog.SetDefault(log)

	h, err := pipedeck.NewHost(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()
	if pidFile != "" {
		if err := process.WritePIDFile(pidFile, os.Getpid()); err != nil {
			return fmt.Errorf("write pidfile: %w", err)
		}
		defer func() { _ = removePidFile(pidFile) }()
	}

	log.Info("starting pipedeck host", "listen", cfg.Server.Listen, "base_path", cfg.Server.BasePath)
	return h.Serve(ctx)
}

// Dashboard draws the terminal view, against a running host or an embedded one.
func (c command) Dashboard(ctx context.Context, f DashboardFlags) error {
	cfg, err := c.loadConfig(f.ConfigPath)
	if err != nil {
		return err
	}
	// the dashboard owns the terminal, so logs only ever go to a file
	logCfg := logger.Config{Level: cfg.Log.Level, File: logger.FileConfig{Path: cfg.Dashboard.LogFile}}
	log, closer := logger.New(logCfg, io.Discard)
	defer func() { _ = closer.Close() }()

	if !f.Embedded {
		url := f.APIUrl
		if url == "" {
			url = apiURL(cfg)
		}
		cl := client.New(client.Config{BaseURL: url, Timeout: f.APITimeout, Token: cfg.Server.Token, Logger: log})
		if !cl.IsReachable(ctx) {
			return fmt.Errorf("host not reachable at %s - start it with 'pipedeck serve' or use --embedded", url)
		}
		return pipedeck.RunDashboard(ctx, cfg, cl, log)
	}

	h, err := pipedeck.NewHost(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.StartUsage(ctx)
	runErr := pipedeck.RunDashboard(ctx, cfg, h.Local(), log)

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sctx, scancel := context.WithTimeout(context.Background(), timeout)
	defer scancel()
	if err := h.Supervisor.Shutdown(sctx); err != nil {
		log.Warn("recorder shutdown", "error", err)
	}
	return runErr
}

func (c command) Install(ctx context.Context, f APIFlags) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	r, err := cl.Install(ctx)
	if err != nil {
		return faultError("install", err)
	}
	printJSON(c.out, r)
	return nil
}

func (c command) Start(ctx context.Context, f StartFlags) error {
	flags := f.Flags
	if f.UseSettings {
		cfg, err := c.loadConfig(f.ConfigPath)
		if err != nil {
			return err
		}
		flags = append(settings.Defaults().Seed(cfg.Settings).Flags(), flags...)
	}
	cl, err := c.apiClient(ctx, f.APIFlags)
	if err != nil {
		return err
	}
	r, err := cl.Start(ctx, flags)
	if err != nil {
		return faultError("start", err)
	}
	printJSON(c.out, r)
	if !r.Success {
		return fmt.Errorf("start failed: %s", r.Message)
	}
	return nil
}

func (c command) Stop(ctx context.Context, f APIFlags) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	r, err := cl.Stop(ctx)
	if err != nil {
		return faultError("stop", err)
	}
	printJSON(c.out, r)
	if !r.Success {
		return fmt.Errorf("stop failed: %s", r.Message)
	}
	return nil
}

func (c command) Quit(ctx context.Context, f APIFlags) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	if err := cl.Quit(ctx); err != nil {
		return faultError("quit", err)
	}
	_, _ = fmt.Fprintln(c.out, "quit requested")
	return nil
}

func (c command) Open(ctx context.Context, f OpenFlags) error {
	if strings.TrimSpace(f.URL) == "" {
		return errors.New("url is required")
	}
	cl, err := c.apiClient(ctx, f.APIFlags)
	if err != nil {
		return err
	}
	if err := cl.OpenExternalLink(ctx, f.URL); err != nil {
		return faultError("open", err)
	}
	return nil
}

func (c command) Status(ctx context.Context, f APIFlags) error {
	cl, err := c.apiClient(ctx, f)
	if err != nil {
		return err
	}
	st, err := cl.Status(ctx)
	if err != nil {
		return err
	}
	printJSON(c.out, st)
	return nil
}

func (c command) History(ctx context.Context, f HistoryFlags) error {
	cl, err := c.apiClient(ctx, f.APIFlags)
	if err != nil {
		return err
	}
	evs, err := cl.History(ctx, f.Limit)
	if err != nil {
		return err
	}
	printJSON(c.out, evs)
	return nil
}

// Health queries the recorder directly, bypassing the host.
func (c command) Health(ctx context.Context, f HealthFlags) error {
	url := f.URL
	timeout := f.Timeout
	if url == "" || timeout <= 0 {
		cfg, err := c.loadConfig(f.ConfigPath)
		if err != nil {
			return err
		}
		if url == "" {
			url = cfg.Recorder.HealthURL
		}
		if timeout <= 0 {
			timeout = cfg.Recorder.HealthTimeout
		}
	}
	st, err := health.NewClient(url, timeout).GetHealth(ctx)
	if err != nil {
		return err
	}
	printJSON(c.out, st)
	if !st.Healthy() {
		return fmt.Errorf("recorder is %s: %s", st.Status, st.Message)
	}
	return nil
}

// MockRecorder serves a fake /health until ctx ends. It stands in for the
// recorder binary, so unknown recorder flags are accepted and ignored.
func (c command) MockRecorder(ctx context.Context, f MockRecorderFlags) error {
	stub := recorderstub.New()
	status := health.HealthyStatus
	if f.Status != "" && f.Status != health.HealthyStatus {
		status = f.Status
		st := recorderstub.Healthy(time.Now())
		st.Status = f.Status
		st.Message = "mock recorder reporting " + f.Status
		stub.Set(st)
	}
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(f.Port))
	errCh := make(chan error, 1)
	go func() { errCh <- stub.Start(addr) }()
	c.log.Info("mock recorder listening", "addr", addr, "status", status)
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return stub.Shutdown(sctx)
}

// faultError folds installer stderr carried by a bridge fault into the error text.
func faultError(op string, err error) error {
	var f *bridge.Fault
	if errors.As(err, &f) && f.Stderr != "" {
		return fmt.Errorf("%s: %s\n%s", op, f.Message, strings.TrimRight(f.Stderr, "\n"))
	}
	return fmt.Errorf("%s: %w", op, err)
}
