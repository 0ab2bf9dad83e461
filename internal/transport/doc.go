// Package transport performs the HTTP requests of a mirror run.
//
// Client wraps net/http with the settings every request shares: an optional
// forwarding proxy (HTTP CONNECT or SOCKS5), static headers and cookie from the
// site configuration, a user agent, a body size limit, and decoding of gzip,
// deflate, and brotli content encodings. EmbeddedTor starts a private Tor
// daemon whose SOCKS port can serve as the forwarding proxy.
//
// Design decision: the forwarding proxy is configured on the transport and
// never appears in URLs. A URL-rewriting proxy is handled by package proxy
// before the request reaches this package, so both can be combined.
package transport
