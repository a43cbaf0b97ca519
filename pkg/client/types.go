package client

import (
	"github.com/loykin/pipedeck/internal/bridge"
	"github.com/loykin/pipedeck/internal/history"
	"github.com/loykin/pipedeck/internal/supervisor"
)

// Reply is the result of install-cli, start-cli and stop-cli.
type Reply = bridge.Reply

// Fault is the structured error returned by the host.
type Fault = bridge.Fault

// Status is the host's view of the recorder.
type Status = supervisor.Status

// Event is one recorder lifecycle event.
type Event = history.Event
