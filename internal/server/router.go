package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/pipedeck/internal/bridge"
	"github.com/loykin/pipedeck/internal/history"
	"github.com/loykin/pipedeck/internal/metrics"
	"github.com/loykin/pipedeck/internal/supervisor"
)

// Router exposes the bridge over HTTP.
// Endpoints:
//
//	POST {basePath}/bridge/{channel}  body: JSON argument array (may be empty)
//	GET  {basePath}/status            supervisor status
//	GET  {basePath}/history?limit=N   recent lifecycle events, when a lister is set
//	GET  /metrics                     prometheus, when enabled
//
// basePath may be empty or start with '/'; no trailing slash.
// Requests from a non-loopback browser Origin are refused, bridge calls must
// be application/json, and WithToken adds a bearer token check.
type Router struct {
	d        *bridge.Dispatcher
	status   StatusSource
	history  history.Lister
	metrics  bool
	token    string
	basePath string
}

// StatusSource reports supervisor status.
type StatusSource interface {
	Status() supervisor.Status
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(d *bridge.Dispatcher, status StatusSource, basePath string) *Router {
	return &Router{d: d, status: status, basePath: sanitizeBase(basePath)}
}

// WithHistory serves GET {basePath}/history from l.
func (r *Router) WithHistory(l history.Lister) *Router {
	r.history = l
	return r
}

// WithToken requires every {basePath} request to carry "Authorization: Bearer token".
func (r *Router) WithToken(token string) *Router {
	r.token = token
	return r
}

// WithMetrics mounts the prometheus handler at /metrics.
func (r *Router) WithMetrics(enabled bool) *Router {
	r.metrics = enabled
	return r
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath, LocalOrigin(), BearerToken(r.token))
	group.POST("/bridge/:channel", RequireJSON(), r.handleBridge)
	group.GET("/status", r.handleStatus)
	if r.history != nil {
		group.GET("/history", r.handleHistory)
	}
	if r.metrics {
		g.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	return g
}

// NewServer returns an http.Server for h with the usual timeouts. The caller starts it.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// installs can take minutes
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

func (r *Router) handleBridge(c *gin.Context) {
	op, err := bridge.ParseOp(c.Param("channel"))
	if err != nil {
		writeFault(c, err)
		return
	}
	args, err := readArgs(c.Request.Body)
	if err != nil {
		writeFault(c, bridge.BadRequest("invalid argument list: "+err.Error()))
		return
	}
	reply, err := r.d.Dispatch(c.Request.Context(), bridge.Call{Op: op, Args: args})
	if err != nil {
		writeFault(c, err)
		return
	}
	if reply == nil {
		c.Status(http.StatusNoContent)
		return
	}
	writeJSON(c, http.StatusOK, reply)
}

// readArgs decodes the body as a JSON array; an empty body means no arguments.
func readArgs(body io.Reader) ([]json.RawMessage, error) {
	if body == nil {
		return nil, nil
	}
	b, err := io.ReadAll(io.LimitReader(body, 1<<20))
	if err != nil {
		return nil, err
	}
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, nil
	}
	var args []json.RawMessage
	if err := json.Unmarshal(b, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func writeFault(c *gin.Context, err error) {
	var f *bridge.Fault
	if !errors.As(err, &f) {
		f = bridge.Failed(err.Error(), "")
	}
	writeJSON(c, f.HTTPStatus(), f)
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.status.Status())
}

func (r *Router) handleHistory(c *gin.Context) {
	limit := 50
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeJSON(c, http.StatusBadRequest, bridge.BadRequest("limit must be a positive integer"))
			return
		}
		limit = n
	}
	events, err := r.history.Recent(c.Request.Context(), limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, bridge.Failed(err.Error(), ""))
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	writeJSON(c, http.StatusOK, events)
}
