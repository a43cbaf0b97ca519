package history

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventInstall EventType = "install"
	EventStart   EventType = "start"
	EventStop    EventType = "stop"
	EventExit    EventType = "exit"
)

// Record describes the recorder run an event belongs to.
type Record struct {
	HandleID   string   `json:"handle_id,omitempty"`
	Name       string   `json:"name"`
	PID        int      `json:"pid"`
	Executable string   `json:"executable,omitempty"`
	Flags      []string `json:"flags,omitempty"`
	ExitCode   int      `json:"exit_code"`
	Error      string   `json:"error,omitempty"`
}

// Args joins Flags for storage in a single text column.
func (r Record) Args() string { return strings.Join(r.Flags, " ") }

// Event represents a lifecycle event to be exported to external systems.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Record     Record    `json:"record"`
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Lister is implemented by sinks that can read back what they stored.
type Lister interface {
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// Fanout delivers every event to all sinks, logging failures instead of
// returning them. The zero value drops events.
type Fanout struct {
	Sinks   []Sink
	Timeout time.Duration
	Logger  *slog.Logger
}

// Emit sends e to every sink. Delivery errors never reach the caller.
func (f Fanout) Emit(ctx context.Context, e Event) {
	if len(f.Sinks) == 0 {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	log := f.Logger
	if log == nil {
		log = slog.Default()
	}
	for _, s := range f.Sinks {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		if err := s.Send(sctx, e); err != nil {
			log.Warn("history sink send failed", "event", e.Type, "error", err)
		}
		cancel()
	}
}
