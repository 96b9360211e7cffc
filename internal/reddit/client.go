// Package reddit talks to the Reddit API on behalf of one account.
//
// The client tracks the rate-limit telemetry Reddit returns on every
// response and throttles itself before the quota runs out.
package reddit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const DefaultBaseURL = "https://oauth.reddit.com"

const (
	// Remaining-quota level below which the client sleeps out the reset
	// window before handing control back. This throttles the call after the
	// one that observed the headers.
	lowWaterMark = 5

	// How long to back off when Reddit answers 429 outright.
	defaultThrottleCooldown = 60 * time.Second
	maxThrottleRetries      = 3
)

// ErrTokenExpired surfaces a 401 from Reddit. The client never retries it;
// the caller owns the refresh.
var ErrTokenExpired = errors.New("Token expired")

// Marks a response that should be retried after the throttle cooldown.
var errThrottled = errors.New("too many requests")

// APIError is any unexpected status code from Reddit.
type APIError struct {
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d", e.StatusCode)
}

type Client struct {
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	accessToken string

	remaining  float64
	resetDelay time.Duration

	throttleCooldown time.Duration
	sleep            func(context.Context, time.Duration)
}

type ClientOption func(*Client)

// WithBaseURL points the client somewhere other than oauth.reddit.com.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithSleep replaces the blocking waits, so tests don't serve real time.
func WithSleep(f func(context.Context, time.Duration)) ClientOption {
	return func(c *Client) { c.sleep = f }
}

func WithThrottleCooldown(d time.Duration) ClientOption {
	return func(c *Client) { c.throttleCooldown = d }
}

func NewClient(accessToken, userAgent string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:          DefaultBaseURL,
		userAgent:        userAgent,
		accessToken:      accessToken,
		remaining:        60,
		throttleCooldown: defaultThrottleCooldown,
		sleep:            sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Saved fetches one page of the account's saved listing. An empty after
// cursor requests the first page.
func (c *Client) Saved(ctx context.Context, username, after string, limit int) (Listing, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	if after != "" {
		query.Set("after", after)
	}

	var listing Listing
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/user/%s/saved", username), query, nil, &listing); err != nil {
		return Listing{}, err
	}

	return listing, nil
}

// Unsave removes the item from the account's saved listing on Reddit.
func (c *Client) Unsave(ctx context.Context, fullname string) error {
	return c.do(ctx, http.MethodPost, "/api/unsave", nil, url.Values{"id": {fullname}}, nil)
}

// Me fetches the identity of the account behind the token.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	var ident Identity
	if err := c.do(ctx, http.MethodGet, "/api/v1/me", nil, nil, &ident); err != nil {
		return Identity{}, err
	}

	return ident, nil
}

// do issues one call, retrying a bounded number of times when Reddit
// answers 429. Everything else is the caller's problem.
func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, out any) error {
	b := retry.WithMaxRetries(maxThrottleRetries, retry.NewConstant(c.throttleCooldown))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := c.doOnce(ctx, method, path, query, form, out)
		if errors.Is(err, errThrottled) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, query, form url.Values, out any) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %s", err)
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("error calling reddit: %w", err)
	}
	defer resp.Body.Close()

	byts, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response: %s", err)
	}

	// Even failed responses carry quota headers.
	c.observeRateLimit(ctx, resp.Header)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrTokenExpired
	case resp.StatusCode == http.StatusTooManyRequests:
		return errThrottled
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted:
		return &APIError{StatusCode: resp.StatusCode}
	}

	// Some endpoints (unsave among them) return nothing on success.
	if out == nil || len(bytes.TrimSpace(byts)) == 0 {
		return nil
	}
	if err := json.Unmarshal(byts, out); err != nil {
		return fmt.Errorf("error decoding response: %s", err)
	}

	return nil
}

// observeRateLimit records the quota headers and, when the remaining quota
// is below the low-water mark, sleeps out the reported reset window (at
// least a second) so the next call lands in fresh quota.
func (c *Client) observeRateLimit(ctx context.Context, h http.Header) {
	if v := h.Get("x-ratelimit-remaining"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.remaining = f
		}
	}
	if v := h.Get("x-ratelimit-reset"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.resetDelay = time.Duration(f * float64(time.Second))
		}
	}

	if c.remaining >= lowWaterMark {
		return
	}

	wait := c.resetDelay
	if wait < time.Second {
		wait = time.Second
	}
	c.sleep(ctx, wait)
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
