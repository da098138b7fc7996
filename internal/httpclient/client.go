package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
)

// DefaultMaxBodySize bounds how much of a response body is read.
// Larger bodies fail with ErrBodyTooLarge.
const DefaultMaxBodySize = 5 * 1024 * 1024

// Client issues identified, time-bounded GET requests.
//
// Design decision: We wrap http.Client rather than handing it out because:
//  1. The identification headers must be on every request, including robots.txt
//  2. Timeouts differ per caller (robots vs index pages), so they are per request
//  3. Callers get the body fully read, so the timeout covers the whole transfer
type Client struct {
	// httpClient is reused for every request to keep connections alive.
	httpClient *http.Client

	// userAgent is sent as the User-Agent header.
	userAgent string

	// headers are extra headers sent on every request (e.g. From).
	headers map[string]string

	// maxBodySize limits the bytes read from a response body.
	maxBodySize int64

	// proxyURL is the configured proxy, nil for direct connections.
	proxyURL *url.URL
}

// Response is a fully read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the response body, truncated to the client's max body size.
	Body []byte
}

// IsSuccess reports whether the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Option configures a Client.
type Option func(*Client) error

// WithHeaders adds extra headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) error {
		for k, v := range headers {
			c.headers[k] = v
		}
		return nil
	}
}

// WithMaxBodySize sets the maximum response body size. Values <= 0 keep the default.
func WithMaxBodySize(size int64) Option {
	return func(c *Client) error {
		if size > 0 {
			c.maxBodySize = size
		}
		return nil
	}
}

// WithProxy routes requests through the given proxy URL.
// An empty string means direct connections.
func WithProxy(rawURL string) Option {
	return func(c *Client) error {
		if rawURL == "" {
			return nil
		}
		u, err := parseProxyURL(rawURL)
		if err != nil {
			return err
		}
		c.proxyURL = u
		return nil
	}
}

// WithTransport replaces the underlying transport. Used by tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) error {
		c.httpClient.Transport = rt
		return nil
	}
}

// New creates a Client that identifies itself with userAgent.
//
// This function does not perform any network operation; a bad proxy
// address only shows up on the first request.
func New(userAgent string, opts ...Option) (*Client, error) {
	if userAgent == "" {
		return nil, ErrEmptyUserAgent
	}

	c := &Client{
		httpClient:  &http.Client{},
		userAgent:   userAgent,
		headers:     make(map[string]string),
		maxBodySize: DefaultMaxBodySize,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if c.httpClient.Transport == nil {
		transport, err := newTransport(c.proxyURL)
		if err != nil {
			return nil, err
		}
		c.httpClient.Transport = transport
	}

	return c, nil
}

// parseProxyURL validates a proxy URL.
func parseProxyURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	if u.Host == "" {
		return nil, ErrInvalidProxy
	}
	switch u.Scheme {
	case "socks5", "socks5h", "http", "https":
		return u, nil
	default:
		return nil, ErrInvalidProxy
	}
}

// newTransport builds the transport for the given proxy (nil for direct).
//
// SOCKS proxies are dialed with golang.org/x/net/proxy; HTTP proxies use the
// standard transport's CONNECT support.
func newTransport(proxyURL *url.URL) (*http.Transport, error) {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		base = &http.Transport{}
	}
	transport := base.Clone()
	transport.IdleConnTimeout = 30 * time.Second

	if proxyURL == nil {
		return transport, nil
	}

	switch proxyURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(proxyURL)
		return transport, nil
	}

	dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	transport.Proxy = nil
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}

// Get fetches rawURL with the identification headers, reading the full body
// before timeout elapses. A zero timeout means no per-request deadline.
//
// Non-2xx responses are returned without error; callers decide what a
// status code means for them.
func (c *Client) Get(ctx context.Context, rawURL string, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Read one byte past the limit to tell a full body from a cut one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%w (%d bytes): %s", ErrBodyTooLarge, c.maxBodySize, rawURL)
	}

	return &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// UserAgent returns the identification string sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// ProxyURL returns the configured proxy with any password redacted,
// or "" for direct connections.
func (c *Client) ProxyURL() string {
	if c.proxyURL == nil {
		return ""
	}
	return c.proxyURL.Redacted()
}

// CloseIdleConnections releases pooled connections at the end of a run.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
