// Package health polls the recorder's health endpoint.
package health

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultURL     = "http://localhost:3030/health"
	DefaultTimeout = 5 * time.Second
)

var errNotObject = errors.New("health response is not a JSON object")

// Client fetches recorder health. It never retries; the caller polls.
type Client struct {
	url    string
	client *resty.Client
}

// NewClient returns a client for url, falling back to DefaultURL and DefaultTimeout.
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &Client{url: url, client: rc}
}

func (c *Client) URL() string { return c.url }

// GetHealth performs one GET against the health endpoint.
func (c *Client) GetHealth(ctx context.Context) (Status, error) {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	resp, err := r.Get(c.url)
	if err != nil {
		return Status{}, &NetworkError{URL: c.url, Err: err}
	}
	if !resp.IsSuccess() {
		return Status{}, &NetworkError{URL: c.url, StatusCode: resp.StatusCode()}
	}
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 || body[0] != '{' {
		return Status{}, &ParseError{Err: errNotObject}
	}
	var st Status
	if err := json.Unmarshal(body, &st); err != nil {
		return Status{}, &ParseError{Err: err}
	}
	return st, nil
}
