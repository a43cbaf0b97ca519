// Package dashboard is the terminal view of the recorder. It polls the
// recorder's health endpoint and drives the host through the bridge.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loykin/pipedeck/internal/bridge"
	"github.com/loykin/pipedeck/internal/health"
	"github.com/loykin/pipedeck/internal/settings"
)

const (
	DefaultPollInterval = 5 * time.Second

	CLIReferenceURL = "https://docs.screenpi.pe/docs/cli-reference"
	APIReferenceURL = "https://docs.screenpi.pe/docs/api-reference"
)

// Controller is the host side of the bridge as the view sees it.
// bridge.Local and pkg/client.Client both satisfy it.
type Controller interface {
	Install(ctx context.Context) (bridge.Reply, error)
	Start(ctx context.Context, flags []string) (bridge.Reply, error)
	Stop(ctx context.Context) (bridge.Reply, error)
	Quit(ctx context.Context) error
	OpenExternalLink(ctx context.Context, url string) error
}

// HealthSource fetches one health snapshot.
type HealthSource interface {
	GetHealth(ctx context.Context) (health.Status, error)
}

type Options struct {
	Controller   Controller
	Health       HealthSource
	PollInterval time.Duration
	// Settings seeds the form; nil means catalogue defaults.
	Settings settings.Document
	// Logger must not write to the terminal the view draws on.
	Logger *slog.Logger
}

// Run draws the dashboard until the user leaves it or ctx ends.
func Run(ctx context.Context, opts Options) error {
	if opts.Controller == nil || opts.Health == nil {
		return errors.New("dashboard: controller and health source are required")
	}
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
