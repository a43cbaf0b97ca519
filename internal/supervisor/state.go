package supervisor

import "fmt"

// State is the supervisor's lifecycle state.
// Idle -> Starting -> Running -> Idle (exit) or Running -> Stopping -> Idle.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for _, c := range []State{StateIdle, StateStarting, StateRunning, StateStopping} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown supervisor state %q", b)
}
