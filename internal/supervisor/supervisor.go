// Package supervisor owns the single recorder process handle.
package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/pipedeck/internal/env"
	"github.com/loykin/pipedeck/internal/history"
	"github.com/loykin/pipedeck/internal/installer"
	"github.com/loykin/pipedeck/internal/logger"
	"github.com/loykin/pipedeck/internal/metrics"
	"github.com/loykin/pipedeck/internal/process"
)

const (
	MsgStarted        = "recorder started successfully"
	MsgAlreadyRunning = "recorder already running"
	MsgStopped        = "recorder stopped successfully"
	MsgNotRunning     = "recorder not running"
)

// Result is the success/failure reply of Start and Stop.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Options configures a Supervisor. The zero value spawns the recorder from its
// default install location with the host's environment.
type Options struct {
	// Executable overrides the per-platform install location.
	Executable string
	WorkDir    string
	PIDFile    string
	Env        *env.Env
	// Output controls where recorder stdout/stderr are written.
	Output         logger.Config
	InstallCommand string

	Logger  *slog.Logger
	History history.Fanout
	Usage   *metrics.UsageCollector
}

// ExitInfo describes the last observed recorder exit.
type ExitInfo struct {
	HandleID string    `json:"handle_id"`
	PID      int       `json:"pid"`
	ExitCode int       `json:"exit_code"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
	// Requested is true when the exit followed a Stop.
	Requested bool `json:"requested"`
}

// Status is a point-in-time view of the supervisor.
type Status struct {
	State      State          `json:"state"`
	Running    bool           `json:"running"`
	HandleID   string         `json:"handle_id,omitempty"`
	PID        int            `json:"pid,omitempty"`
	Executable string         `json:"executable,omitempty"`
	Flags      []string       `json:"flags,omitempty"`
	StartedAt  time.Time      `json:"started_at,omitzero"`
	LastExit   *ExitInfo      `json:"last_exit,omitempty"`
	Usage      *metrics.Usage `json:"usage,omitempty"`
}

// Supervisor holds at most one recorder handle. Each operation takes the
// lock for its whole duration; calls are not atomic with respect to each other.
type Supervisor struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	state    State
	handle   *process.Process
	stopping map[string]bool // handle IDs that were asked to stop
	lastExit *ExitInfo

	spawn     func(process.Spec) (*process.Process, error)
	terminate func(*process.Process) error
	install   func(context.Context) (installer.Result, error)
}

func New(opts Options) *Supervisor {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.History.Logger == nil {
		opts.History.Logger = log
	}
	if opts.Env == nil {
		opts.Env = env.New().FromOS()
	}
	inst := installer.Installer{CommandLine: opts.InstallCommand, Logger: log}
	if pid := process.PIDFileOwner(opts.PIDFile); pid != 0 {
		// not adopted: a new Start spawns a second recorder next to it
		log.Warn("recorder from a previous run is still alive", "pid", pid, "pidfile", opts.PIDFile)
	}
	return &Supervisor{
		opts:      opts,
		log:       log.With("component", "supervisor"),
		stopping:  map[string]bool{},
		spawn:     process.Spawn,
		terminate: (*process.Process).Terminate,
		install:   inst.Install,
	}
}

// Install runs the recorder installer and waits for it to finish.
func (s *Supervisor) Install(ctx context.Context) (installer.Result, error) {
	res, err := s.install(ctx)
	metrics.IncInstall(err == nil)
	rec := history.Record{Name: process.RecorderName}
	if err != nil {
		rec.Error = err.Error()
		rec.ExitCode = -1
		var ie *installer.InstallError
		if errors.As(err, &ie) {
			rec.ExitCode = ie.ExitCode
		}
	}
	s.opts.History.Emit(ctx, history.Event{Type: history.EventInstall, Record: rec})
	return res, err
}

// Start spawns the recorder with flags unless a handle already exists.
// It returns once the OS has created the process. On spawn failure the
// Result carries the message and the error is a *StartError.
func (s *Supervisor) Start(ctx context.Context, flags []string) (Result, error) {
	s.mu.Lock()
	if s.handle != nil {
		s.mu.Unlock()
		s.log.Info("start requested while recorder is running")
		return Result{Success: true, Message: MsgAlreadyRunning}, nil
	}
	s.state = StateStarting

	path, err := process.ResolveExecutable(s.opts.Executable)
	var p *process.Process
	if err == nil {
		p, err = s.spawn(process.Spec{
			Name:    process.RecorderName,
			Path:    path,
			Args:    append([]string(nil), flags...),
			WorkDir: s.opts.WorkDir,
			Env:     s.opts.Env.Merge(nil),
			PIDFile: s.opts.PIDFile,
			Log:     s.opts.Output,
		})
	}
	if err != nil {
		s.state = StateIdle
		s.mu.Unlock()
		se := &StartError{Executable: path, Err: err}
		s.log.Error("recorder spawn failed", "executable", path, "error", err)
		s.opts.History.Emit(ctx, history.Event{Type: history.EventStart, Record: history.Record{
			Name: process.RecorderName, Executable: path, Flags: flags, ExitCode: -1, Error: err.Error(),
		}})
		return Result{Success: false, Message: se.Error()}, se
	}
	s.handle = p
	s.state = StateRunning
	s.mu.Unlock()

	metrics.IncStart()
	metrics.SetRunning(true)
	s.log.Info("recorder started", "pid", p.PID(), "handle", p.ID(), "executable", path, "flags", flags)
	s.opts.History.Emit(ctx, history.Event{Type: history.EventStart, Record: recordOf(p)})
	go s.watch(p)
	return Result{Success: true, Message: MsgStarted}, nil
}

// Stop signals the recorder and forgets the handle without waiting for exit.
// A failed signal returns a *StopError and keeps the handle.
func (s *Supervisor) Stop(ctx context.Context) (Result, error) {
	s.mu.Lock()
	p := s.handle
	if p == nil {
		s.mu.Unlock()
		return Result{Success: true, Message: MsgNotRunning}, nil
	}
	s.state = StateStopping
	if err := s.terminate(p); err != nil {
		s.state = StateRunning
		s.mu.Unlock()
		se := &StopError{PID: p.PID(), Err: err}
		s.log.Error("recorder stop failed", "pid", p.PID(), "error", err)
		return Result{Success: false, Message: se.Error()}, se
	}
	s.stopping[p.ID()] = true
	s.handle = nil
	s.state = StateIdle
	s.mu.Unlock()

	metrics.IncStop()
	metrics.SetRunning(false)
	s.log.Info("recorder stop signalled", "pid", p.PID(), "handle", p.ID())
	s.opts.History.Emit(ctx, history.Event{Type: history.EventStop, Record: recordOf(p)})
	return Result{Success: true, Message: MsgStopped}, nil
}

// watch resolves once per handle: it observes the exit and clears the
// handle if it is still the current one.
func (s *Supervisor) watch(p *process.Process) {
	<-p.Done()
	st := p.Snapshot()

	s.mu.Lock()
	requested := s.stopping[p.ID()]
	delete(s.stopping, p.ID())
	current := s.handle == p
	if current {
		s.handle = nil
		s.state = StateIdle
	}
	s.lastExit = &ExitInfo{
		HandleID:  p.ID(),
		PID:       st.PID,
		ExitCode:  st.ExitCode,
		Error:     st.ExitErr,
		At:        st.StoppedAt,
		Requested: requested,
	}
	s.mu.Unlock()

	cause := "exited"
	if requested {
		cause = "stopped"
	}
	metrics.IncExit(cause)
	if current {
		metrics.SetRunning(false)
		s.log.Warn("recorder exited", "pid", st.PID, "handle", p.ID(), "exit_code", st.ExitCode, "error", st.ExitErr)
	} else {
		s.log.Info("recorder exited", "pid", st.PID, "handle", p.ID(), "exit_code", st.ExitCode)
	}
	rec := recordOf(p)
	rec.ExitCode = st.ExitCode
	rec.Error = st.ExitErr
	s.opts.History.Emit(context.Background(), history.Event{Type: history.EventExit, Record: rec})
}

// PID returns the live recorder PID or 0.
func (s *Supervisor) PID() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return 0
	}
	return int32(s.handle.PID())
}

// Status returns a snapshot of the supervisor and, when running, a resource sample.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	st := Status{State: s.state}
	if s.lastExit != nil {
		le := *s.lastExit
		st.LastExit = &le
	}
	p := s.handle
	s.mu.Unlock()

	if p == nil {
		return st
	}
	ps := p.Snapshot()
	st.Running = true
	st.HandleID = ps.ID
	st.PID = ps.PID
	st.Executable = ps.Path
	st.Flags = ps.Args
	st.StartedAt = ps.StartedAt
	if u, ok := s.usageSample(int32(ps.PID)); ok {
		st.Usage = &u
	}
	return st
}

func (s *Supervisor) usageSample(pid int32) (metrics.Usage, bool) {
	if s.opts.Usage.Enabled() {
		if u, ok := s.opts.Usage.Latest(); ok && u.PID == pid {
			return u, true
		}
	}
	u, err := metrics.Sample(pid)
	if err != nil {
		return metrics.Usage{}, false
	}
	return u, true
}

// Shutdown stops the recorder, if any, and waits for it to exit or ctx to end.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	p := s.handle
	s.mu.Unlock()
	if p == nil {
		return nil
	}
	if _, err := s.Stop(ctx); err != nil {
		return err
	}
	select {
	case <-p.Done():
		return nil
	case <-ctx.Done():
		s.log.Warn("recorder did not exit in time; killing", "pid", p.PID())
		return p.Kill()
	}
}

func recordOf(p *process.Process) history.Record {
	spec := p.Spec()
	return history.Record{
		HandleID:   p.ID(),
		Name:       spec.Name,
		PID:        p.PID(),
		Executable: spec.Path,
		Flags:      spec.Args,
	}
}
