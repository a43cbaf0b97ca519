package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pkg/browser"

	"github.com/loykin/pipedeck/internal/installer"
	"github.com/loykin/pipedeck/internal/metrics"
	"github.com/loykin/pipedeck/internal/supervisor"
)

// Recorder is the supervisor surface the bridge drives.
type Recorder interface {
	Install(ctx context.Context) (installer.Result, error)
	Start(ctx context.Context, flags []string) (supervisor.Result, error)
	Stop(ctx context.Context) (supervisor.Result, error)
}

// Dispatcher binds each Op to its operation.
type Dispatcher struct {
	Recorder Recorder
	// Quit asks the host to terminate. It must not block.
	Quit func()
	// Open shows url in the default browser. Defaults to browser.OpenURL.
	Open   func(url string) error
	Logger *slog.Logger
}

// Dispatch runs c. Operational start/stop failures come back as a Reply with
// Success false; rejected calls and install or open failures are *Fault.
func (d *Dispatcher) Dispatch(ctx context.Context, c Call) (*Reply, error) {
	reply, err := d.dispatch(ctx, c)
	ok := err == nil && (reply == nil || reply.Success)
	metrics.IncBridgeCall(c.Op.String(), ok)
	log := d.logger()
	if err != nil {
		log.Warn("bridge call failed", "channel", c.Op.String(), "error", err)
	} else {
		log.Debug("bridge call", "channel", c.Op.String(), "ok", ok)
	}
	return reply, err
}

func (d *Dispatcher) dispatch(ctx context.Context, c Call) (*Reply, error) {
	switch c.Op {
	case OpInstall:
		if err := wantArgs(c, 0, 0); err != nil {
			return nil, err
		}
		res, err := d.Recorder.Install(ctx)
		if err != nil {
			var ie *installer.InstallError
			if errors.As(err, &ie) {
				return nil, Failed(ie.Error(), ie.Stderr)
			}
			return nil, Failed(err.Error(), "")
		}
		return InstallReply(res.Stdout), nil

	case OpStart:
		if err := wantArgs(c, 0, 1); err != nil {
			return nil, err
		}
		var flags []string
		if len(c.Args) == 1 {
			var err error
			if flags, err = stringsArg(c, 0); err != nil {
				return nil, err
			}
		}
		res, _ := d.Recorder.Start(ctx, flags)
		return &Reply{Success: res.Success, Message: res.Message}, nil

	case OpStop:
		if err := wantArgs(c, 0, 0); err != nil {
			return nil, err
		}
		res, _ := d.Recorder.Stop(ctx)
		return &Reply{Success: res.Success, Message: res.Message}, nil

	case OpQuit:
		if err := wantArgs(c, 0, 0); err != nil {
			return nil, err
		}
		if d.Quit != nil {
			d.Quit()
		}
		return nil, nil

	case OpOpenExternalLink:
		if err := wantArgs(c, 1, 1); err != nil {
			return nil, err
		}
		url, err := stringArg(c, 0)
		if err != nil {
			return nil, err
		}
		open := d.Open
		if open == nil {
			open = browser.OpenURL
		}
		if err := open(url); err != nil {
			return nil, Failed(fmt.Sprintf("open %s: %v", url, err), "")
		}
		return nil, nil
	}
	return nil, BadRequest(fmt.Sprintf("unsupported operation %s", c.Op))
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
