package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/loykin/pipedeck/internal/bridge"
	"github.com/loykin/pipedeck/internal/health"
	"github.com/loykin/pipedeck/internal/metrics"
	"github.com/loykin/pipedeck/internal/settings"
)

type tickMsg time.Time

// healthMsg is the result of the seq-th health fetch.
type healthMsg struct {
	seq    uint64
	status health.Status
	err    error
}

// replyMsg carries the outcome of install-cli, start-cli or stop-cli.
type replyMsg struct {
	op    bridge.Op
	reply bridge.Reply
	err   error
}

// doneMsg carries the outcome of quit and open-external-link.
type doneMsg struct {
	op  bridge.Op
	err error
}

// Model is the bubbletea model of the dashboard.
type Model struct {
	ctrl     Controller
	src      HealthSource
	interval time.Duration
	log      *slog.Logger

	// status is nil while the recorder is unavailable.
	status  *health.Status
	polled  bool
	pollErr error
	// issued is shared by every copy of the model; applied is the newest
	// fetch whose result has been shown.
	issued  *uint64
	applied uint64

	installing bool
	pending    bridge.Op
	banner     string
	notice     string

	doc          settings.Document
	showSettings bool
	cursor       int
	editing      bool
	input        string

	width    int
	quitting bool
}

func New(opts Options) Model {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	lg := opts.Logger
	if lg == nil {
		lg = slog.New(slog.DiscardHandler)
	}
	doc := opts.Settings
	if doc == nil {
		doc = settings.Defaults()
	}
	return Model{
		ctrl:     opts.Controller,
		src:      opts.Health,
		interval: interval,
		log:      lg.With("component", "dashboard"),
		doc:      doc,
		issued:   new(uint64),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetch numbers each request so a slow response cannot overwrite a newer one.
func (m Model) fetch() tea.Cmd {
	*m.issued++
	src, seq := m.src, *m.issued
	return func() tea.Msg {
		st, err := src.GetHealth(context.Background())
		return healthMsg{seq: seq, status: st, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.quitting {
		return m, nil
	}
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		return m, tea.Batch(m.fetch(), m.tick())
	case healthMsg:
		return m.onHealth(msg), nil
	case replyMsg:
		return m.onReply(msg)
	case doneMsg:
		return m.onDone(msg)
	case tea.KeyMsg:
		if m.editing {
			return m.onEditKey(msg), nil
		}
		return m.onKey(msg)
	}
	return m, nil
}

func (m Model) onHealth(msg healthMsg) Model {
	if msg.seq < m.applied {
		m.log.Debug("dropping stale health result", "seq", msg.seq, "applied", m.applied)
		return m
	}
	m.applied = msg.seq
	m.polled = true
	if msg.err != nil {
		m.status = nil
		m.pollErr = msg.err
		metrics.IncHealthCheck("error")
		m.log.Debug("health check failed", "error", msg.err)
		return m
	}
	st := msg.status
	m.status = &st
	m.pollErr = nil
	m.banner = ""
	if st.Healthy() {
		metrics.IncHealthCheck("healthy")
	} else {
		metrics.IncHealthCheck("unhealthy")
	}
	return m
}

func (m Model) onReply(msg replyMsg) (tea.Model, tea.Cmd) {
	if msg.op == bridge.OpInstall {
		m.installing = false
	} else if msg.op == m.pending {
		m.pending = 0
	}
	if msg.err != nil {
		m.banner = describe(msg.op, msg.err)
		m.log.Error("bridge call failed", "channel", msg.op.String(), "error", msg.err)
		return m, nil
	}
	if !msg.reply.Success {
		m.banner = msg.reply.Message
		if m.banner == "" {
			m.banner = msg.op.String() + " failed"
		}
		m.log.Warn("bridge call unsuccessful", "channel", msg.op.String(), "message", msg.reply.Message)
		return m, nil
	}
	m.banner = ""
	m.notice = msg.reply.Message
	if msg.op == bridge.OpInstall {
		m.notice = "recorder installed"
	}
	m.log.Info("bridge call succeeded", "channel", msg.op.String(), "message", msg.reply.Message)
	if msg.op == bridge.OpStart || msg.op == bridge.OpStop {
		return m, m.fetch()
	}
	return m, nil
}

func (m Model) onDone(msg doneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.banner = describe(msg.op, msg.err)
		m.log.Error("bridge call failed", "channel", msg.op.String(), "error", msg.err)
		return m, nil
	}
	m.banner = ""
	if msg.op == bridge.OpQuit {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func describe(op bridge.Op, err error) string {
	var f *bridge.Fault
	if errors.As(err, &f) && f.Stderr != "" {
		return op.String() + ": " + f.Message + ": " + strings.TrimSpace(f.Stderr)
	}
	return op.String() + ": " + err.Error()
}

func (m Model) onKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch k.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "Q":
		return m, m.done(bridge.OpQuit, func(ctx context.Context) error { return m.ctrl.Quit(ctx) })
	case "i":
		if m.installing {
			return m, nil
		}
		m.installing = true
		return m, m.call(bridge.OpInstall, m.ctrl.Install)
	case "s":
		if m.status != nil && m.status.Healthy() {
			m.pending = bridge.OpStop
			return m, m.call(bridge.OpStop, m.ctrl.Stop)
		}
		flags := m.doc.Flags()
		m.pending = bridge.OpStart
		return m, m.call(bridge.OpStart, func(ctx context.Context) (bridge.Reply, error) {
			return m.ctrl.Start(ctx, flags)
		})
	case "r":
		return m, m.fetch()
	case "d":
		return m, m.open(CLIReferenceURL)
	case "a":
		return m, m.open(APIReferenceURL)
	case "tab":
		m.showSettings = !m.showSettings
		return m, nil
	}
	if !m.showSettings {
		return m, nil
	}
	return m.onSettingsKey(k), nil
}

func (m Model) onSettingsKey(k tea.KeyMsg) Model {
	opt := settings.Catalogue[m.cursor]
	switch k.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(settings.Catalogue)-1 {
			m.cursor++
		}
	case "enter", " ":
		switch opt.Kind {
		case settings.KindBool:
			m.doc = m.doc.Toggle(opt.Key)
		case settings.KindChoice:
			m.doc = m.doc.Cycle(opt.Key)
		default:
			m.editing = true
			m.input = settings.FormatValue(m.doc[opt.Key])
		}
	case "+", "=", "right", "l":
		m.doc = m.doc.Adjust(opt.Key, 1)
	case "-", "left", "h":
		m.doc = m.doc.Adjust(opt.Key, -1)
	}
	return m
}

func (m Model) onEditKey(k tea.KeyMsg) Model {
	switch k.Type {
	case tea.KeyEnter:
		m.doc = m.doc.SetText(settings.Catalogue[m.cursor].Key, m.input)
		m.editing = false
		m.input = ""
	case tea.KeyEsc, tea.KeyCtrlC:
		m.editing = false
		m.input = ""
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(k.Runes)
	}
	return m
}

func (m Model) call(op bridge.Op, fn func(context.Context) (bridge.Reply, error)) tea.Cmd {
	return func() tea.Msg {
		r, err := fn(context.Background())
		return replyMsg{op: op, reply: r, err: err}
	}
}

func (m Model) done(op bridge.Op, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{op: op, err: fn(context.Background())}
	}
}

func (m Model) open(url string) tea.Cmd {
	ctrl := m.ctrl
	return m.done(bridge.OpOpenExternalLink, func(ctx context.Context) error {
		return ctrl.OpenExternalLink(ctx, url)
	})
}

// Settings returns the current form document.
func (m Model) Settings() settings.Document { return m.doc }

// Available reports whether the last poll produced a status.
func (m Model) Available() bool { return m.status != nil }
