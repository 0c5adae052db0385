package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	chatPath   = "/chat"
	healthPath = "/health"

	// HopHeader marks requests sent by this client. A proxy seeing it on an
	// inbound request is being called by itself.
	HopHeader = "X-Textbook-Proxy-Hop"

	// maxBodyBytes bounds how much of a backend reply is buffered.
	maxBodyBytes = 10 << 20
)

// ErrUnavailable marks failures to get any reply out of the backend.
var ErrUnavailable = errors.New("backend unavailable")

// StatusError is returned when the backend answered with a non-2xx status.
type StatusError struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d", e.StatusCode)
}

// Reply is a successful backend response, kept as raw bytes so it can be
// relayed verbatim.
type Reply struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

type Client struct {
	http *http.Client
	// markHops adds HopHeader to every request.
	markHops bool
}

// NewClient wraps httpClient, or http.DefaultClient when it is nil. Timeouts
// are applied per call through the context.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient}
}

// NewForwardingClient is NewClient for proxies: requests carry HopHeader so a
// backend URL that points back at the proxy is detected instead of looping.
func NewForwardingClient(httpClient *http.Client) *Client {
	c := NewClient(httpClient)
	c.markHops = true
	return c
}

// Chat posts the JSON payload to the backend chat endpoint under baseURL.
func (c *Client) Chat(ctx context.Context, baseURL string, payload []byte, timeout time.Duration) (*Reply, error) {
	return c.do(ctx, http.MethodPost, baseURL+chatPath, payload, timeout)
}

// Health queries the backend health endpoint under baseURL.
func (c *Client) Health(ctx context.Context, baseURL string, timeout time.Duration) (*Reply, error) {
	return c.do(ctx, http.MethodGet, baseURL+healthPath, nil, timeout)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, timeout time.Duration) (*Reply, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request for %s: %v", ErrUnavailable, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.markHops {
		req.Header.Set(HopHeader, "1")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response from %s: %v", ErrUnavailable, url, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			StatusCode:  resp.StatusCode,
			ContentType: contentType,
			Body:        respBytes,
		}
	}

	return &Reply{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        respBytes,
	}, nil
}
