package supervisor

import "fmt"

// StartError reports that the recorder could not be spawned.
type StartError struct {
	Executable string
	Err        error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start recorder %s: %v", e.Executable, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// StopError reports that the termination signal could not be delivered.
type StopError struct {
	PID int
	Err error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("stop recorder (pid %d): %v", e.PID, e.Err)
}

func (e *StopError) Unwrap() error { return e.Err }
