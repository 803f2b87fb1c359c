package http

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"Synapse/backend/go/internal/config"
	"Synapse/backend/go/pkg/circuitbreaker"
)

// Client wraps http.Client with an optional circuit breaker and a fixed User-Agent.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient replaces the underlying http.Client, for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client. When cfg is disabled no breaker is installed.
func NewClient(cfg config.CircuitBreakerConfig, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	c := &Client{httpClient: &http.Client{Timeout: timeout}}
	if cfg.Enabled {
		breaker, err := NewCircuitBreaker(cfg)
		if err != nil {
			return nil, err
		}
		c.breaker = breaker
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do executes an HTTP request with circuit breaker protection.
// Status codes >= 500 count as breaker failures.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			// drain before close
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
