package httpclient

import "errors"

var (
	// ErrInvalidProxy is returned when the proxy URL cannot be parsed or uses
	// an unsupported scheme. Supported schemes are socks5, socks5h, http and https.
	ErrInvalidProxy = errors.New("invalid proxy: expected socks5://, socks5h://, http:// or https:// URL")

	// ErrEmptyUserAgent is returned when no identification header is configured.
	ErrEmptyUserAgent = errors.New("user agent must not be empty")

	// ErrBodyTooLarge is returned when a response body exceeds the configured
	// maximum size. A truncated page is never returned as a success.
	ErrBodyTooLarge = errors.New("response body exceeds maximum size")
)
