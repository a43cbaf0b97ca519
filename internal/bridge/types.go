package bridge

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Call is one request on a channel. Args is the JSON argument list.
type Call struct {
	Op   Op
	Args []json.RawMessage
}

// NewCall encodes args into a Call.
func NewCall(op Op, args ...any) (Call, error) {
	c := Call{Op: op}
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return Call{}, fmt.Errorf("encode arg %d: %w", i, err)
		}
		c.Args = append(c.Args, b)
	}
	return c, nil
}

// Reply is the result of install-cli, start-cli and stop-cli.
// quit and open-external-link produce no reply. Stdout is set only by
// install-cli, where it is always present even when empty.
type Reply struct {
	Success bool    `json:"success"`
	Message string  `json:"message,omitempty"`
	Stdout  *string `json:"stdout,omitempty"`
}

// InstallReply is the successful install-cli reply.
func InstallReply(stdout string) *Reply {
	return &Reply{Success: true, Stdout: &stdout}
}

// Output returns the installer stdout, or "" for other replies.
func (r Reply) Output() string {
	if r.Stdout == nil {
		return ""
	}
	return *r.Stdout
}

// FaultKind classifies a Fault for transport mapping.
type FaultKind int

const (
	// FaultBadRequest means the channel or its arguments were rejected.
	FaultBadRequest FaultKind = iota + 1
	// FaultFailed means the operation ran and failed.
	FaultFailed
)

// Fault is the structured error carried back across the bridge.
type Fault struct {
	Kind    FaultKind `json:"-"`
	Message string    `json:"error"`
	Stderr  string    `json:"stderr,omitempty"`
}

func (f *Fault) Error() string { return f.Message }

// HTTPStatus maps the fault kind onto a response code.
func (f *Fault) HTTPStatus() int {
	if f.Kind == FaultBadRequest {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func BadRequest(msg string) *Fault { return &Fault{Kind: FaultBadRequest, Message: msg} }

func Failed(msg, stderr string) *Fault {
	return &Fault{Kind: FaultFailed, Message: msg, Stderr: stderr}
}
