package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "paceline/1.0 (+personal-best import)"
)

// Client fetches and parses athlete pages.
type Client struct {
	http      *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout bounds a single fetch.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:      http.DefaultClient,
		timeout:   defaultTimeout,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch downloads rawURL and returns the personal bests found on it. The
// page is fetched once; no scripts are run and no cookies are kept.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]PB, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %d: %w", u.Host, resp.StatusCode, ErrStatus)
	}
	return Parse(resp.Body)
}
