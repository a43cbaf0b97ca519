package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/loykin/pipedeck/internal/bridge"
)

// Client talks to a pipedeck host over its HTTP bridge.
type Client struct {
	baseURL string
	rc      *resty.Client
	logger  *slog.Logger
}

// Config holds client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
	Token   string       // Bearer token, when the host requires one
	Logger  *slog.Logger // Optional logger for client operations
}

// DefaultConfig returns default client configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://127.0.0.1:8787/api",
		Timeout: 10 * time.Minute,
	}
}

// New creates a new pipedeck bridge client.
// The default timeout is long because install-cli waits for the installer.
func New(config Config) *Client {
	def := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = def.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	rc := resty.New().
		SetTimeout(config.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if config.Token != "" {
		rc.SetAuthToken(config.Token)
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		rc:      rc,
		logger:  config.Logger,
	}
}

// IsReachable checks if the host is running and reachable
func (c *Client) IsReachable(ctx context.Context) bool {
	resp, err := c.rc.R().SetContext(ctx).Get(c.baseURL + "/status")
	if err != nil {
		c.logger.Debug("Host unreachable", "error", err)
		return false
	}
	ok := resp.StatusCode() != http.StatusNotFound
	c.logger.Debug("Host reachability check", "reachable", ok, "status", resp.StatusCode())
	return ok
}

// Call sends one bridge call and returns its reply; nil for channels without one.
func (c *Client) Call(ctx context.Context, op bridge.Op, args ...any) (*Reply, error) {
	c.logger.Debug("Bridge call", "channel", op.String(), "args", len(args))
	r := c.rc.R().SetContext(ctx)
	if len(args) > 0 {
		r.SetHeader("Content-Type", "application/json").SetBody(args)
	}
	resp, err := r.Post(c.baseURL + "/bridge/" + op.String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNoContent:
		return nil, nil
	case resp.IsSuccess():
		var reply Reply
		if err := json.Unmarshal(resp.Body(), &reply); err != nil {
			return nil, fmt.Errorf("%s: decode reply: %w", op, err)
		}
		return &reply, nil
	default:
		return nil, c.fault(resp)
	}
}

func (c *Client) fault(resp *resty.Response) error {
	f := &Fault{Kind: bridge.FaultFailed}
	if resp.StatusCode() == http.StatusBadRequest {
		f.Kind = bridge.FaultBadRequest
	}
	if err := json.Unmarshal(resp.Body(), f); err != nil || f.Message == "" {
		f.Message = fmt.Sprintf("host returned %s", resp.Status())
	}
	c.logger.Debug("Bridge fault", "status", resp.StatusCode(), "error", f.Message)
	return f
}

func (c *Client) Install(ctx context.Context) (Reply, error) {
	r, err := c.Call(ctx, bridge.OpInstall)
	return deref(r), err
}

// Start asks the host to spawn the recorder with flags.
// A spawn failure is a Reply with Success false, not an error.
func (c *Client) Start(ctx context.Context, flags []string) (Reply, error) {
	if flags == nil {
		flags = []string{}
	}
	r, err := c.Call(ctx, bridge.OpStart, flags)
	return deref(r), err
}

func (c *Client) Stop(ctx context.Context) (Reply, error) {
	r, err := c.Call(ctx, bridge.OpStop)
	return deref(r), err
}

// Quit asks the host process to exit.
func (c *Client) Quit(ctx context.Context) error {
	_, err := c.Call(ctx, bridge.OpQuit)
	return err
}

func (c *Client) OpenExternalLink(ctx context.Context, url string) error {
	_, err := c.Call(ctx, bridge.OpOpenExternalLink, url)
	return err
}

// Status fetches the supervisor status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	resp, err := c.rc.R().SetContext(ctx).Get(c.baseURL + "/status")
	if err != nil {
		return st, fmt.Errorf("status: %w", err)
	}
	if !resp.IsSuccess() {
		return st, c.fault(resp)
	}
	if err := json.Unmarshal(resp.Body(), &st); err != nil {
		return st, fmt.Errorf("status: decode: %w", err)
	}
	return st, nil
}

// History fetches up to limit recent lifecycle events, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]Event, error) {
	resp, err := c.rc.R().SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		Get(c.baseURL + "/history")
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("history: not enabled on host")
	}
	if !resp.IsSuccess() {
		return nil, c.fault(resp)
	}
	var events []Event
	if err := json.Unmarshal(resp.Body(), &events); err != nil {
		return nil, fmt.Errorf("history: decode: %w", err)
	}
	return events, nil
}

func deref(r *Reply) Reply {
	if r == nil {
		return Reply{}
	}
	return *r
}
