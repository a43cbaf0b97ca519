package dashboard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/pipedeck/internal/bridge"
	"github.com/loykin/pipedeck/internal/health"
	"github.com/loykin/pipedeck/internal/settings"
)

type fakeController struct {
	mu       sync.Mutex
	installs int
	starts   [][]string
	stops    int
	quits    int
	opened   []string

	startReply bridge.Reply
	installErr error
	quitErr    error
}

func (f *fakeController) Install(context.Context) (bridge.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.installs++
	if f.installErr != nil {
		return bridge.Reply{}, f.installErr
	}
	return *bridge.InstallReply("ok"), nil
}

func (f *fakeController) Start(_ context.Context, flags []string) (bridge.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, flags)
	if f.startReply != (bridge.Reply{}) {
		return f.startReply, nil
	}
	return bridge.Reply{Success: true, Message: "recorder started successfully"}, nil
}

func (f *fakeController) Stop(context.Context) (bridge.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return bridge.Reply{Success: true, Message: "recorder stopped successfully"}, nil
}

func (f *fakeController) Quit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quits++
	return f.quitErr
}

func (f *fakeController) OpenExternalLink(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
	return nil
}

type fakeHealth struct {
	st  health.Status
	err error
}

func (f *fakeHealth) GetHealth(context.Context) (health.Status, error) { return f.st, f.err }

func healthyStatus() health.Status {
	ts := "2024-01-01T00:00:00Z"
	return health.Status{
		Status:             "healthy",
		Message:            "all systems go",
		FrameStatus:        "ok",
		AudioStatus:        "ok",
		UIStatus:           "ok",
		LastFrameTimestamp: &ts,
		LastAudioTimestamp: &ts,
	}
}

func newTestModel(ctrl *fakeController, src *fakeHealth) Model {
	return New(Options{Controller: ctrl, Health: src})
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send feeds msg to m and returns the updated model with its command.
func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// poll runs one health fetch and delivers the result.
func poll(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = send(t, m, m.fetch()())
	return m
}

func TestInitBatchesFetchAndTick(t *testing.T) {
	m := newTestModel(&fakeController{}, &fakeHealth{st: healthyStatus()})
	assert.NotNil(t, m.Init())
	assert.Equal(t, DefaultPollInterval, m.interval)
	assert.Contains(t, m.View(), "checking")
}

func TestTickSchedulesAnotherFetch(t *testing.T) {
	m := newTestModel(&fakeController{}, &fakeHealth{st: healthyStatus()})
	_, cmd := send(t, m, tickMsg{})
	assert.NotNil(t, cmd)
}

func TestHealthyPollRenders(t *testing.T) {
	m := poll(t, newTestModel(&fakeController{}, &fakeHealth{st: healthyStatus()}))
	require.True(t, m.Available())
	v := m.View()
	assert.Contains(t, v, "healthy")
	assert.Contains(t, v, "all systems go")
	assert.Contains(t, v, health.NotAvailable)
	assert.Contains(t, v, "s stop")
}

func TestFailedPollClearsStaleStatus(t *testing.T) {
	src := &fakeHealth{st: healthyStatus()}
	m := poll(t, newTestModel(&fakeController{}, src))
	require.True(t, m.Available())

	src.err = &health.NetworkError{URL: "http://localhost:3030/health", StatusCode: 500}
	m = poll(t, m)
	assert.False(t, m.Available())
	v := m.View()
	assert.Contains(t, v, "unavailable")
	assert.NotContains(t, v, "all systems go")
	assert.Contains(t, v, "s start")
}

func TestInstallIgnoredWhileInFlight(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl, &fakeHealth{})

	m, cmd := send(t, m, key("i"))
	require.NotNil(t, cmd)
	assert.True(t, m.installing)

	m, again := send(t, m, key("i"))
	assert.Nil(t, again)

	m, _ = send(t, m, cmd())
	assert.False(t, m.installing)
	assert.Equal(t, 1, ctrl.installs)
	assert.Contains(t, m.View(), "recorder installed")
}

func TestInstallFaultShowsStderr(t *testing.T) {
	ctrl := &fakeController{installErr: bridge.Failed("install failed (exit code 7)", "curl: not found\n")}
	m := newTestModel(ctrl, &fakeHealth{})

	m, cmd := send(t, m, key("i"))
	m, _ = send(t, m, cmd())
	assert.Contains(t, m.banner, "install failed (exit code 7)")
	assert.Contains(t, m.banner, "curl: not found")
	assert.False(t, m.installing)
}

func TestStartWhenUnhealthyUsesSettingsFlags(t *testing.T) {
	ctrl := &fakeController{}
	src := &fakeHealth{err: errors.New("connection refused")}
	m := poll(t, newTestModel(ctrl, src))

	m, cmd := send(t, m, key("s"))
	require.NotNil(t, cmd)
	assert.Contains(t, m.View(), "starting")
	src.err = nil
	src.st = healthyStatus()
	m, refetch := send(t, m, cmd())
	require.NotNil(t, refetch)
	m, _ = send(t, m, refetch())

	require.Len(t, ctrl.starts, 1)
	assert.Equal(t, m.Settings().Flags(), ctrl.starts[0])
	assert.Equal(t, 0, ctrl.stops)
	assert.True(t, m.Available())
}

func TestStopWhenHealthy(t *testing.T) {
	ctrl := &fakeController{}
	m := poll(t, newTestModel(ctrl, &fakeHealth{st: healthyStatus()}))

	m, cmd := send(t, m, key("s"))
	_, _ = send(t, m, cmd())
	assert.Equal(t, 1, ctrl.stops)
	assert.Empty(t, ctrl.starts)
}

func TestUnsuccessfulStartBannerClearedByPoll(t *testing.T) {
	ctrl := &fakeController{startReply: bridge.Reply{Success: false, Message: "executable not found"}}
	src := &fakeHealth{err: errors.New("down")}
	m := newTestModel(ctrl, src)

	m, cmd := send(t, m, key("s"))
	m, _ = send(t, m, cmd())
	assert.Equal(t, "executable not found", m.banner)
	assert.Contains(t, m.View(), "executable not found")

	// a failed poll keeps the banner
	m = poll(t, m)
	assert.Equal(t, "executable not found", m.banner)

	src.err = nil
	src.st = health.Status{Status: "degraded"}
	m = poll(t, m)
	assert.Empty(t, m.banner)
}

func TestDocsLinks(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl, &fakeHealth{})

	m, cmd := send(t, m, key("d"))
	m, _ = send(t, m, cmd())
	_, cmd = send(t, m, key("a"))
	_ = cmd()
	assert.Equal(t, []string{CLIReferenceURL, APIReferenceURL}, ctrl.opened)
}

func TestLeaveIgnoresLateResults(t *testing.T) {
	m := newTestModel(&fakeController{}, &fakeHealth{st: healthyStatus()})

	m, cmd := send(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m, cmd = send(t, m, healthMsg{status: healthyStatus()})
	assert.Nil(t, cmd)
	assert.False(t, m.Available())
	_, cmd = send(t, m, tickMsg{})
	assert.Nil(t, cmd)
}

func TestSlowPollDoesNotOverwriteNewer(t *testing.T) {
	src := &fakeHealth{err: errors.New("connection refused")}
	m := newTestModel(&fakeController{}, src)
	slow := m.fetch()
	stale := slow()

	src.st, src.err = healthyStatus(), nil
	m = poll(t, m)
	require.True(t, m.Available())

	m, _ = send(t, m, stale)
	assert.True(t, m.Available())
	assert.NoError(t, m.pollErr)

	src.st, src.err = health.Status{}, errors.New("connection refused")
	m = poll(t, m)
	assert.False(t, m.Available())
}

func TestCtrlCLeaves(t *testing.T) {
	m := newTestModel(&fakeController{}, &fakeHealth{})
	m, cmd := send(t, m, key("ctrl+c"))
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
}

func TestQuitHost(t *testing.T) {
	ctrl := &fakeController{}
	m := newTestModel(ctrl, &fakeHealth{})

	m, cmd := send(t, m, key("Q"))
	require.NotNil(t, cmd)
	assert.False(t, m.quitting)

	m, quit := send(t, m, cmd())
	assert.Equal(t, 1, ctrl.quits)
	assert.True(t, m.quitting)
	require.NotNil(t, quit)
	assert.IsType(t, tea.QuitMsg{}, quit())
}

func TestQuitHostFailureKeepsView(t *testing.T) {
	ctrl := &fakeController{quitErr: errors.New("connection refused")}
	m := newTestModel(ctrl, &fakeHealth{})

	m, cmd := send(t, m, key("Q"))
	m, next := send(t, m, cmd())
	assert.Nil(t, next)
	assert.False(t, m.quitting)
	assert.Contains(t, m.banner, "connection refused")
}

func TestSettingsEditing(t *testing.T) {
	m := newTestModel(&fakeController{}, &fakeHealth{})

	// arrows do nothing while the pane is hidden
	m, _ = send(t, m, key("down"))
	assert.Equal(t, 0, m.cursor)

	m, _ = send(t, m, key("tab"))
	require.True(t, m.showSettings)
	assert.Contains(t, m.View(), "Recorder settings")

	m, _ = send(t, m, key("+"))
	assert.Equal(t, 1.1, m.Settings()["fps"])

	for range 3 {
		m, _ = send(t, m, key("down"))
	}
	assert.Equal(t, "debug", settings.Catalogue[m.cursor].Key)
	m, _ = send(t, m, key("enter"))
	assert.Equal(t, true, m.Settings()["debug"])
	assert.Contains(t, m.Settings().Flags(), "--debug")

	m, _ = send(t, m, key("up"))
	require.Equal(t, "data-dir", settings.Catalogue[m.cursor].Key)
	m, _ = send(t, m, key("enter"))
	require.True(t, m.editing)
	m, _ = send(t, m, key("/tmp/rec"))
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m, _ = send(t, m, key("x"))
	// keys typed while editing are text, not commands
	m, cmd := send(t, m, key("q"))
	assert.Nil(t, cmd)
	m, _ = send(t, m, key("enter"))
	assert.False(t, m.editing)
	assert.Equal(t, "/tmp/rexq", m.Settings()["data-dir"])

	flags := strings.Join(m.Settings().Flags(), " ")
	assert.Contains(t, flags, "--data-dir /tmp/rexq")
}

func TestSeededSettings(t *testing.T) {
	doc := settings.Defaults().Seed(map[string]any{"port": 4040})
	m := New(Options{Controller: &fakeController{}, Health: &fakeHealth{}, Settings: doc})
	assert.Equal(t, 4040.0, m.Settings()["port"])
}

func TestRunRequiresDependencies(t *testing.T) {
	err := Run(context.Background(), Options{})
	assert.Error(t, err)
}
