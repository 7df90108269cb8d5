// Package webhook delivers automation webhook payloads over HTTP with
// retry and backoff.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/campaign-engine/internal/pkg/httpretry"
)

// Caller delivers a webhook payload. Implementations must not retry
// forever; the engine treats failures as log-and-continue.
type Caller interface {
	Call(ctx context.Context, url string, payload map[string]any) error
}

// HTTPCaller posts JSON payloads using a retrying HTTP client.
type HTTPCaller struct {
	client httpretry.HTTPDoer
}

// NewHTTPCaller creates a caller with exponential-backoff retries.
// maxRetries <= 0 uses the httpretry default.
func NewHTTPCaller(maxRetries int, timeout time.Duration) *HTTPCaller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := &http.Client{Timeout: timeout}
	return &HTTPCaller{client: httpretry.NewRetryClient(base, maxRetries)}
}

// Call POSTs the payload as JSON and fails on any non-2xx response.
func (c *HTTPCaller) Call(ctx context.Context, url string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: %w", url, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: status %d", url, resp.StatusCode)
	}
	return nil
}
