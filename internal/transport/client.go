package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

// Defaults applied by NewClient.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxBodySize = 50 * 1024 * 1024
	DefaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	maxRedirects       = 10
)

// Response is a fully read HTTP response.
type Response struct {
	// URL is the final URL after redirects.
	URL        string
	StatusCode int
	Header     http.Header
	// Body is the decoded (content-encoding removed) response body.
	Body []byte
}

// ContentType returns the Content-Type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client issues GET requests with the run's shared settings.
type Client struct {
	http        *http.Client
	userAgent   string
	maxBodySize int64
	forward     *ForwardProxy
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout     time.Duration
	forward     *ForwardProxy
	userAgent   string
	maxBodySize int64
	headers     map[string]string
	cookie      string
	base        http.RoundTripper
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithForwardProxy routes every request through p. A nil p means no proxy.
func WithForwardProxy(p *ForwardProxy) Option {
	return func(o *clientOptions) {
		o.forward = p
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how many decoded bytes are read per response.
func WithMaxBodySize(n int64) Option {
	return func(o *clientOptions) {
		if n > 0 {
			o.maxBodySize = n
		}
	}
}

// WithHeaders adds static headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *clientOptions) {
		o.headers = headers
	}
}

// WithCookie adds a raw Cookie header value to every request.
func WithCookie(cookie string) Option {
	return func(o *clientOptions) {
		o.cookie = cookie
	}
}

// WithBaseTransport replaces the underlying RoundTripper. The forwarding
// proxy option has no effect when a base transport is supplied.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) {
		o.base = rt
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) (*Client, error) {
	o := clientOptions{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	base := o.base
	if base == nil {
		t, err := newHTTPTransport(o.forward)
		if err != nil {
			return nil, err
		}
		base = t
	}

	var rt http.RoundTripper = base
	if o.cookie != "" || len(o.headers) > 0 {
		rt = &headerInjectingTransport{base: base, cookie: o.cookie, headers: o.headers}
	}

	return &Client{
		http: &http.Client{
			Transport: rt,
			Timeout:   o.timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		userAgent:   o.userAgent,
		maxBodySize: o.maxBodySize,
		forward:     o.forward,
	}, nil
}

// newHTTPTransport builds the transport. HTTP(S) proxies use the standard
// CONNECT support; SOCKS5 proxies dial through golang.org/x/net/proxy.
//
// Compression is negotiated by Client.Get itself so that brotli is accepted too.
func newHTTPTransport(forward *ForwardProxy) (*http.Transport, error) {
	t := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: time.Second,
		DisableCompression:    true,
	}
	if forward == nil {
		return t, nil
	}

	if !forward.IsSOCKS() {
		t.Proxy = http.ProxyURL(forward.URL)
		return t, nil
	}

	var auth *proxy.Auth
	if forward.URL.User != nil {
		password, _ := forward.URL.User.Password()
		auth = &proxy.Auth{User: forward.URL.User.Username(), Password: password}
	}
	dialer, err := proxy.SOCKS5("tcp", forward.Addr(), auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		t.DialContext = cd.DialContext
	} else {
		t.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return t, nil
}

// ForwardProxy returns the configured forwarding proxy, or nil.
func (c *Client) ForwardProxy() *ForwardProxy {
	return c.forward
}

// UserAgent returns the User-Agent sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// Get fetches rawURL and reads the whole decoded body. Non-2xx responses are
// returned without error; the caller decides what counts as success.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp, c.maxBodySize)
	if err != nil {
		return nil, err
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Response{
		URL:        finalURL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// headerInjectingTransport adds the configured cookie and headers to every
// request, redirects included.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	return t.base.RoundTrip(clone)
}
