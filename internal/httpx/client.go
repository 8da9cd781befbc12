// Package httpx provides a small retrying HTTP client used by the LLM
// transport, following the same backoff-and-retry shape the teacher
// repo's own HTTP client wraps around outbound model calls.
package httpx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps http.Client with bounded retries and exponential
// backoff on transport errors and 5xx responses.
type Client struct {
	HTTPClient *http.Client
	MaxRetries int
	BaseDelay  time.Duration
}

// New builds a Client with the given timeout and retry policy.
func New(timeout time.Duration, maxRetries int, baseDelay time.Duration) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
	}
}

// Do executes req, retrying on network errors and 5xx status codes up
// to MaxRetries times with exponential backoff. The caller's body, if
// any, must be re-creatable via req.GetBody since a retry re-sends it.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := c.BaseDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("rewind request body for retry: %w", err)
				}
				req.Body = body
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		resp, err := c.HTTPClient.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= 500 && attempt < c.MaxRetries {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.MaxRetries+1, lastErr)
}
