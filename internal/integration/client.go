// Package integration drives a running dtree server over HTTP.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-sod/dtree/pkg/math/vector"
)

type prefixRoundTripper struct {
	addr string
	rt   http.RoundTripper
}

func (p *prefixRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	u := r.URL
	if u.Scheme == "" {
		u.Scheme = "http"
	}
	if u.Host == "" {
		u.Host = p.addr
	}

	return p.rt.RoundTrip(r)
}

func NewClient(addr string) *Client {
	return &Client{client: &http.Client{Transport: &prefixRoundTripper{addr: addr, rt: http.DefaultTransport}}}
}

type Client struct {
	client *http.Client
}

// Result is a decoded /invocations answer. Prediction and Class are set on
// success, Error otherwise.
type Result struct {
	Status     int
	Prediction string `json:"prediction"`
	Class      int    `json:"class"`
	Error      string `json:"error"`
}

func (c *Client) Invoke(ctx context.Context, row vector.V) (*Result, error) {
	return c.InvokeRaw(ctx, "text/csv", row.String())
}

func (c *Client) InvokeRaw(ctx context.Context, contentType, body string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/invocations", strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create new request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	res := Result{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

func (c *Client) Ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/ping", nil)
	if err != nil {
		return 0, fmt.Errorf("create new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
