package transport

import "errors"

// Forwarding proxy errors.
var (
	// ErrInvalidProxyAddress is returned when the forwarding proxy setting
	// is neither host:port nor a URL with a supported scheme.
	ErrInvalidProxyAddress = errors.New("invalid forwarding proxy: expected host:port or http(s)/socks5 URL")

	// ErrProxyCannotConnect is returned when the proxy does not accept TCP connections.
	ErrProxyCannotConnect = errors.New("cannot connect to forwarding proxy")

	// ErrProxyTimeout is returned when the proxy does not answer in time.
	ErrProxyTimeout = errors.New("timeout connecting to forwarding proxy")

	// ErrProxyWrongType is returned when a socks5 proxy does not speak SOCKS5.
	ErrProxyWrongType = errors.New("forwarding proxy does not speak the configured protocol")

	// ErrBodyTooLarge is returned when a response exceeds the body size limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// ProxyStatus is the result of probing a forwarding proxy before a run.
type ProxyStatus int

const (
	// ProxyStatusOK means the proxy accepted a connection (and, for SOCKS5, a handshake).
	ProxyStatusOK ProxyStatus = iota
	// ProxyStatusWrongType means the proxy answered but not with SOCKS5.
	ProxyStatusWrongType
	// ProxyStatusCannotConnect means the TCP connection failed.
	ProxyStatusCannotConnect
	// ProxyStatusTimeout means the proxy did not answer within the check timeout.
	ProxyStatusTimeout
)

// String returns a short description of the status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong protocol"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Err returns the error for the status, or nil for ProxyStatusOK.
func (s ProxyStatus) Err() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyWrongType
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
