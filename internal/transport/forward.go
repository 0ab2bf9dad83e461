package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// checkTimeout bounds CheckProxy. It is a reachability check, not a request.
const checkTimeout = 2 * time.Second

// ForwardProxy is a parsed forwarding proxy setting.
type ForwardProxy struct {
	// URL is the normalized proxy URL. Its scheme is http, https, or socks5.
	URL *url.URL
}

// ParseForwardProxy parses raw. A bare host:port is treated as an HTTP proxy.
// An empty raw returns (nil, nil).
func ParseForwardProxy(raw string) (*ForwardProxy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	if !strings.Contains(raw, "://") {
		if !isValidProxyAddress(raw) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, raw)
		}
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProxyAddress, err)
	}

	switch u.Scheme {
	case "http", "https":
	case "socks5", "socks5h":
		u.Scheme = "socks5"
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxyAddress, u.Scheme)
	}

	if !isValidProxyAddress(u.Host) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, u.Host)
	}
	return &ForwardProxy{URL: u}, nil
}

// IsSOCKS reports whether the proxy speaks SOCKS5.
func (p *ForwardProxy) IsSOCKS() bool {
	return p.URL.Scheme == "socks5"
}

// Addr returns the proxy host:port.
func (p *ForwardProxy) Addr() string {
	return p.URL.Host
}

// HostPort returns the proxy in the host:port form browsers accept, with a
// socks5:// prefix for SOCKS proxies.
func (p *ForwardProxy) HostPort() string {
	if p.IsSOCKS() {
		return "socks5://" + p.URL.Host
	}
	return p.URL.Host
}

// String returns the proxy URL without credentials.
func (p *ForwardProxy) String() string {
	u := *p.URL
	u.User = nil
	return u.String()
}

// isValidProxyAddress checks for host:port with a non-empty host and a port
// in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}

// SOCKS5 handshake bytes used by CheckProxy.
const (
	socks5Version      = 0x05
	socks5AuthNone     = 0x00
	socks5AuthPassword = 0x02
	socks5AuthNoAccept = 0xFF
)

// CheckProxy checks that the forwarding proxy accepts connections. For SOCKS5
// proxies it also performs the method negotiation so that a plain HTTP
// listener on the port is reported as ProxyStatusWrongType.
//
// Design decision: a SOCKS5 server answers the greeting at once. A listener
// that accepted the connection and the greeting but stays silent is waiting
// for another protocol (an HTTP server waits for a request line), so a read
// timeout at that point is ProxyStatusWrongType, not ProxyStatusTimeout.
func CheckProxy(ctx context.Context, p *ForwardProxy) ProxyStatus {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", p.Addr())
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	if !p.IsSOCKS() {
		return ProxyStatusOK
	}

	if err := conn.SetDeadline(time.Now().Add(checkTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	methods := []byte{socks5Version, 0x01, socks5AuthNone}
	if p.URL.User != nil {
		methods = []byte{socks5Version, 0x02, socks5AuthNone, socks5AuthPassword}
	}
	if _, err := conn.Write(methods); err != nil {
		return ProxyStatusCannotConnect
	}

	resp := make([]byte, 2)
	if _, err := io.ReadFull(conn, resp); err != nil {
		return ProxyStatusWrongType
	}
	if resp[0] != socks5Version || resp[1] == socks5AuthNoAccept {
		return ProxyStatusWrongType
	}
	return ProxyStatusOK
}
