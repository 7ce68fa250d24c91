package httperr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client sends JSON requests under one provider base URL. Every failure
// it returns has passed through FromTransport or FromResponse.
type Client struct {
	op      string
	baseURL string
	header  http.Header
	http    *http.Client
}

// NewClient creates a client whose requests are bounded by timeout.
// A zero timeout leaves requests bounded by their context only.
func NewClient(op, baseURL string, timeout time.Duration) *Client {
	return &Client{
		op:      op,
		baseURL: strings.TrimRight(baseURL, "/"),
		header:  http.Header{},
		http:    &http.Client{Timeout: timeout},
	}
}

// WithBearer returns c sending an Authorization bearer token.
func (c *Client) WithBearer(token string) *Client {
	c.header.Set("Authorization", "Bearer "+token)
	return c
}

// Streaming returns a copy of c without a client timeout, for responses
// read incrementally.
func (c *Client) Streaming() *Client {
	return &Client{op: c.op, baseURL: c.baseURL, header: c.header.Clone(), http: &http.Client{}}
}

// BaseURL returns the URL paths are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Open sends in as a JSON body (or no body when in is nil) and returns
// the response when its status is 2xx. The caller closes the body.
func (c *Client) Open(ctx context.Context, method, path string, in any) (*http.Response, error) {
	body := io.Reader(http.NoBody)
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", c.op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", c.op, err)
	}
	for k, vs := range c.header {
		req.Header[k] = vs
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, FromTransport(c.op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4*maxBodyInError))
		return nil, FromResponse(c.op, resp.StatusCode, resp.Header, msg)
	}
	return resp, nil
}

// Post sends in and decodes the JSON reply into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	resp, err := c.Open(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return FromTransport(c.op, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.op, err)
	}
	return nil
}

// Ping issues a GET against path and discards the body.
func (c *Client) Ping(ctx context.Context, path string) error {
	resp, err := c.Open(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}
