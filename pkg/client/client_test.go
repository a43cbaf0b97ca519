package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/pipedeck/internal/bridge"
	"github.com/loykin/pipedeck/internal/history"
	"github.com/loykin/pipedeck/internal/history/sqlite"
	"github.com/loykin/pipedeck/internal/server"
	"github.com/loykin/pipedeck/internal/supervisor"
)

type host struct {
	c      *Client
	quits  int
	opened []string
}

func newHost(t *testing.T, opts supervisor.Options) *host {
	t.Helper()
	gin.SetMode(gin.TestMode)
	if opts.Executable == "" {
		opts.Executable = filepath.Join(t.TempDir(), "missing", "screenpipe")
	}
	sink, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	opts.History = history.Fanout{Sinks: []history.Sink{sink}}

	h := &host{}
	sup := supervisor.New(opts)
	d := &bridge.Dispatcher{
		Recorder: sup,
		Quit:     func() { h.quits++ },
		Open:     func(u string) error { h.opened = append(h.opened, u); return nil },
	}
	srv := httptest.NewServer(server.NewRouter(d, sup, "/api").WithHistory(sink).Handler())
	t.Cleanup(srv.Close)
	h.c = New(Config{BaseURL: srv.URL + "/api/"})
	return h
}

func TestClientStartFailureIsReply(t *testing.T) {
	h := newHost(t, supervisor.Options{})
	r, err := h.c.Start(context.Background(), []string{"--fps", "1"})
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.NotEmpty(t, r.Message)
}

func TestClientStopIdle(t *testing.T) {
	h := newHost(t, supervisor.Options{})
	r, err := h.c.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Reply{Success: true, Message: supervisor.MsgNotRunning}, r)
}

func TestClientQuitAndOpen(t *testing.T) {
	h := newHost(t, supervisor.Options{})
	ctx := context.Background()
	require.NoError(t, h.c.Quit(ctx))
	require.NoError(t, h.c.OpenExternalLink(ctx, "https://docs.screenpi.pe/docs/api-reference"))
	assert.Equal(t, 1, h.quits)
	assert.Equal(t, []string{"https://docs.screenpi.pe/docs/api-reference"}, h.opened)
}

func TestClientInstallFault(t *testing.T) {
	h := newHost(t, supervisor.Options{InstallCommand: "/nonexistent/installer"})
	_, err := h.c.Install(context.Background())
	var f *Fault
	require.True(t, errors.As(err, &f))
	assert.Equal(t, bridge.FaultFailed, f.Kind)
	assert.NotEmpty(t, f.Message)
}

func TestClientStatusAndHistory(t *testing.T) {
	h := newHost(t, supervisor.Options{})
	ctx := context.Background()
	assert.True(t, h.c.IsReachable(ctx))

	st, err := h.c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, supervisor.StateIdle, st.State)
	assert.False(t, st.Running)

	_, _ = h.c.Start(ctx, nil)
	events, err := h.c.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, history.EventStart, events[0].Type)
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()
	c := New(Config{BaseURL: url})
	assert.False(t, c.IsReachable(context.Background()))
	_, err := c.Stop(context.Background())
	assert.Error(t, err)
}

func TestClientSendsBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sup := supervisor.New(supervisor.Options{Executable: filepath.Join(t.TempDir(), "missing", "screenpipe")})
	d := &bridge.Dispatcher{Recorder: sup}
	srv := httptest.NewServer(server.NewRouter(d, sup, "/api").WithToken("s3cret").Handler())
	t.Cleanup(srv.Close)
	ctx := context.Background()

	_, err := New(Config{BaseURL: srv.URL + "/api"}).Stop(ctx)
	var f *Fault
	require.True(t, errors.As(err, &f))
	assert.Contains(t, f.Message, "token")

	r, err := New(Config{BaseURL: srv.URL + "/api", Token: "s3cret"}).Stop(ctx)
	require.NoError(t, err)
	assert.True(t, r.Success)
}
