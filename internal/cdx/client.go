package cdx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client wraps outbound HTTP calls with a blocking token-bucket limiter.
// One Client instance is shared by all workers that need the same ceiling,
// so the limiter bounds the process-wide call rate, not the per-worker rate.
// A caller that exceeds the ceiling blocks in Wait until capacity frees up;
// the limiter is cooperative, not a circuit breaker.
//
// Design decision: We take the limiter ceiling in (calls, period) form rather
// than exposing rate.Limit directly because that is how the Wayback Machine's
// informal limits are stated (2 calls per second), and it keeps
// golang.org/x/time out of caller signatures.
type Client struct {
	// httpClient performs the actual requests.
	httpClient *http.Client

	// limiter bounds calls per unit time across all users of this Client.
	limiter *rate.Limiter

	// userAgent is sent with every request.
	userAgent string

	// headers are extra headers sent with every request.
	headers map[string]string

	// maxBodySize truncates response bodies to prevent memory exhaustion.
	// Zero means unlimited.
	maxBodySize int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom underlying HTTP client. Useful for tests and
// for configuring a request timeout; the default client has none, so a hung
// call blocks its worker until the process is interrupted.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header for all requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithHeaders sets extra headers for all requests.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = headers
	}
}

// WithMaxBodySize limits how many response bytes are read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		c.maxBodySize = n
	}
}

// NewClient creates a Client limited to at most calls requests per period.
// The burst equals calls, so a quiet client may issue a full window's worth
// of requests back to back before the per-interval pacing kicks in.
func NewClient(calls int, period time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Every(period/time.Duration(calls)), calls),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Fetch performs a rate-limited GET and returns the body and status code.
// Transport errors and non-2xx statuses return a *FetchError; the body is
// still returned for non-2xx responses when it was readable. Fetch never
// retries.
func (c *Client) Fetch(ctx context.Context, url string) (string, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", 0, &FetchError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, &FetchError{URL: url, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	var bodyReader io.Reader = resp.Body
	if c.maxBodySize > 0 {
		bodyReader = io.LimitReader(resp.Body, c.maxBodySize)
	}
	body, err := io.ReadAll(bodyReader)
	if err != nil {
		return "", resp.StatusCode, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return string(body), resp.StatusCode, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	return string(body), resp.StatusCode, nil
}
