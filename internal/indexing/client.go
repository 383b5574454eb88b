// Package indexing talks to the external vector indexing service and runs
// indexing requests in the background.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultTimeout    = 10 * time.Second
	maxErrorBodyBytes = 512
)

// ErrNotConfigured is returned when no indexing base URL is set.
var ErrNotConfigured = errors.New("indexing base URL is not configured")

// StatusError reports a non-2xx answer from the indexing service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("indexing service returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("indexing service returned HTTP %d: %s", e.StatusCode, e.Body)
}

// TimeoutError wraps a request that ran past its deadline.
type TimeoutError struct {
	Cause error
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("indexing request timed out: %v", e.Cause) }
func (e *TimeoutError) Unwrap() error { return e.Cause }

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an indexing client. A zero timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// IndexArticle asks the indexing service to ingest one article. Any 2xx
// answer is success; the response body is ignored.
func (c *Client) IndexArticle(ctx context.Context, articleID string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	endpoint := c.baseURL + "/ingest/article/" + url.PathEscape(articleID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build indexing request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyCallError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes+1))
		return &StatusError{StatusCode: resp.StatusCode, Body: truncateBody(raw)}
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func classifyCallError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TimeoutError{Cause: err}
	}
	return fmt.Errorf("indexing request failed: %w", err)
}

func truncateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) <= maxErrorBodyBytes {
		return body
	}
	return body[:maxErrorBodyBytes] + "..."
}
