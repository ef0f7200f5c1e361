package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

// HTTPClient is a small retrying HTTP helper shared by the source adapters.
type HTTPClient struct {
	client    *http.Client
	retries   int
	backoff   time.Duration
	userAgent string
}

func NewHTTPClient(timeout time.Duration, retries int, userAgent string) *HTTPClient {
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		retries:   retries,
		backoff:   300 * time.Millisecond,
		userAgent: userAgent,
	}
}

// DoJSON performs a request and decodes a JSON response body into out.
// Non-2xx statuses and transport errors are retried with exponential backoff.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, headers map[string]string, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	raw, err := c.do(ctx, method, url, headers, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// GetBody performs a GET and returns the raw response body. Used for
// non-JSON upstreams (RSS/XML).
func (c *HTTPClient) GetBody(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, url, headers, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, url string, headers map[string]string, payload []byte) ([]byte, error) {
	var lastErr error
	tries := c.retries + 1
	for attempt := 0; attempt < tries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		if payload != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
			resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				if readErr != nil {
					return nil, readErr
				}
				return raw, nil
			}
			if len(raw) > 4096 {
				raw = raw[:4096]
			}
			lastErr = errors.New(resp.Status + ": " + string(raw))
		}

		if attempt < tries-1 {
			select {
			case <-time.After(c.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
