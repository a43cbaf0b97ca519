package process

import "time"

// Status is a point-in-time copy of a handle's state.
type Status struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Path      string    `json:"path"`
	Args      []string  `json:"args"`
	Running   bool      `json:"running"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at,omitempty"`
	ExitCode  int       `json:"exit_code"`
	ExitErr   string    `json:"exit_error,omitempty"`
}
