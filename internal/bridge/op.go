// Package bridge is the typed call surface between the host process, which
// owns the recorder, and view processes.
package bridge

import "fmt"

// Op is one bridge channel. The set is closed.
type Op int

const (
	OpInstall Op = iota + 1
	OpStart
	OpStop
	OpQuit
	OpOpenExternalLink
)

var opNames = map[Op]string{
	OpInstall:          "install-cli",
	OpStart:            "start-cli",
	OpStop:             "stop-cli",
	OpQuit:             "quit",
	OpOpenExternalLink: "open-external-link",
}

// Ops lists every channel in declaration order.
func Ops() []Op {
	return []Op{OpInstall, OpStart, OpStop, OpQuit, OpOpenExternalLink}
}

// String returns the channel name.
func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// ParseOp maps a channel name to its Op.
func ParseOp(channel string) (Op, error) {
	for op, name := range opNames {
		if name == channel {
			return op, nil
		}
	}
	return 0, BadRequest(fmt.Sprintf("unknown channel %q", channel))
}
