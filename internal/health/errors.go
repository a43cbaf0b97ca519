package health

import "fmt"

// NetworkError means the recorder could not be reached or answered non-2xx.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("health check %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("health check %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError means the response body was not a health payload.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "decode health response: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }
