// Package httpclient builds the single HTTP client shared by the permission
// gate and the index page fetcher.
//
// The client is constructed once per run and passed explicitly to the
// components that need it. There is no package-level session: connection
// reuse comes from the one http.Transport the Client owns.
//
// Every request carries the identification headers (User-Agent plus any
// configured extras) and is bounded by a per-request timeout. Traffic can
// optionally be routed through a SOCKS5 or HTTP proxy.
package httpclient
