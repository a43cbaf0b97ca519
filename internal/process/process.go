package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Process is a handle to one spawned recorder. Its exit is observed by a single
// goroutine that resolves Done exactly once.
type Process struct {
	id        string
	spec      Spec
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	done      chan struct{}

	mu        sync.Mutex
	stoppedAt time.Time
	exitCode  int
	exitErr   error
	closers   []io.Closer
}

// Spawn starts the command described by spec and returns its handle.
// It returns as soon as the OS has created the process; it does not wait
// for the recorder to become ready.
func Spawn(spec Spec) (*Process, error) {
	if spec.Path == "" {
		return nil, errors.New("empty executable path")
	}
	cmd := spec.BuildCommand()
	p := &Process{
		id:       uuid.NewString(),
		spec:     spec,
		cmd:      cmd,
		done:     make(chan struct{}),
		exitCode: -1,
	}
	if err := p.configureOutput(); err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		p.closeWriters()
		return nil, err
	}
	p.pid = cmd.Process.Pid
	p.startedAt = time.Now()
	if spec.PIDFile != "" {
		_ = WritePIDFile(spec.PIDFile, p.pid)
	}
	go p.wait()
	return p, nil
}

func (p *Process) configureOutput() error {
	spec := p.spec
	var outW, errW io.WriteCloser
	if spec.Log.Enabled() {
		var err error
		if outW, errW, err = spec.Log.ProcessWriters(spec.Name); err != nil {
			return err
		}
	}
	p.cmd.Stdout = pick(spec.Stdout, outW)
	p.cmd.Stderr = pick(spec.Stderr, errW)
	for _, c := range []io.WriteCloser{outW, errW} {
		if c != nil {
			p.closers = append(p.closers, c)
		}
	}
	return nil
}

// pick prefers an explicit writer, then a log writer. A nil result makes
// os/exec connect the stream to the null device.
func pick(explicit io.Writer, logW io.WriteCloser) io.Writer {
	if explicit != nil {
		return explicit
	}
	if logW != nil {
		return logW
	}
	return nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	code := 0
	if err != nil {
		code = -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		}
	}
	p.mu.Lock()
	p.stoppedAt = time.Now()
	p.exitCode = code
	p.exitErr = err
	p.mu.Unlock()
	p.closeWriters()
	if p.spec.PIDFile != "" {
		_ = os.Remove(p.spec.PIDFile)
	}
	close(p.done)
}

func (p *Process) closeWriters() {
	p.mu.Lock()
	cs := p.closers
	p.closers = nil
	p.mu.Unlock()
	for _, c := range cs {
		_ = c.Close()
	}
}

// ID identifies this spawn; it is unique per handle even when the OS reuses PIDs.
func (p *Process) ID() string { return p.id }

func (p *Process) PID() int { return p.pid }

func (p *Process) Spec() Spec { return p.spec }

// Done is closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} { return p.done }

// Exited reports whether Done has been closed.
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitErr returns the error from cmd.Wait; only meaningful after Done.
func (p *Process) ExitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitErr
}

// ExitCode returns the exit code, or -1 while running or when killed by a signal.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

// Terminate asks the process to exit. It does not wait.
func (p *Process) Terminate() error {
	if p.Exited() {
		return nil
	}
	if err := terminate(p.pid); err != nil {
		return fmt.Errorf("terminate pid %d: %w", p.pid, err)
	}
	return nil
}

// Kill forcibly ends the process. It does not wait.
func (p *Process) Kill() error {
	if p.Exited() {
		return nil
	}
	if err := kill(p.pid); err != nil {
		return fmt.Errorf("kill pid %d: %w", p.pid, err)
	}
	return nil
}

// Snapshot returns a copy of the current status.
func (p *Process) Snapshot() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		ID:        p.id,
		Name:      p.spec.Name,
		PID:       p.pid,
		Path:      p.spec.Path,
		Args:      append([]string(nil), p.spec.Args...),
		Running:   !p.Exited(),
		StartedAt: p.startedAt,
		StoppedAt: p.stoppedAt,
		ExitCode:  p.exitCode,
	}
	if p.exitErr != nil {
		st.ExitErr = p.exitErr.Error()
	}
	return st
}
