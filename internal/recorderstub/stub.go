// Package recorderstub serves a fake recorder /health endpoint for local
// development and tests.
package recorderstub

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loykin/pipedeck/internal/health"
)

// Stub is an echo server that answers GET /health with a programmable reply.
type Stub struct {
	e *echo.Echo

	mu     sync.RWMutex
	status health.Status
	code   int
	raw    []byte
	hits   int
}

// New returns a stub that reports healthy until told otherwise.
func New() *Stub {
	s := &Stub{code: http.StatusOK, status: Healthy(time.Now())}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/health", s.handleHealth)
	s.e = e
	return s
}

// Healthy builds a fully populated healthy payload stamped at now.
func Healthy(now time.Time) health.Status {
	ts := now.UTC().Format(time.RFC3339)
	return health.Status{
		Status:             health.HealthyStatus,
		Message:            "all systems are functioning normally",
		FrameStatus:        "ok",
		AudioStatus:        "ok",
		UIStatus:           "ok",
		LastFrameTimestamp: &ts,
		LastAudioTimestamp: &ts,
		LastUITimestamp:    &ts,
	}
}

func (s *Stub) handleHealth(c echo.Context) error {
	s.mu.Lock()
	s.hits++
	code, raw, st := s.code, s.raw, s.status
	s.mu.Unlock()
	if raw != nil {
		return c.Blob(code, echo.MIMEApplicationJSON, raw)
	}
	if code < 200 || code > 299 {
		return c.String(code, http.StatusText(code))
	}
	return c.JSON(code, st)
}

// Handler exposes the stub for httptest.NewServer.
func (s *Stub) Handler() http.Handler { return s.e }

// Set replaces the reported status and clears any failure or raw body.
func (s *Stub) Set(st health.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.code, s.raw = st, http.StatusOK, nil
}

// Fail makes the endpoint answer with the given HTTP status code.
func (s *Stub) Fail(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code, s.raw = code, nil
}

// Raw makes the endpoint answer 200 with body verbatim.
func (s *Stub) Raw(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code, s.raw = http.StatusOK, []byte(body)
}

// Hits returns how many health requests have been served.
func (s *Stub) Hits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hits
}

// Start listens on addr until Shutdown is called.
func (s *Stub) Start(addr string) error {
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Stub) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
