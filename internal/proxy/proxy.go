// Package proxy converts origin URLs to the URLs actually fetched.
//
// A run uses exactly one Rewriter. RewritingProxy prefixes every origin URL
// with a proxy base and percent-encodes the origin, so the proxy service can
// recover it from the path. Direct leaves URLs untouched; a forwarding proxy
// for direct runs lives on the HTTP transport instead.
package proxy

import (
	"errors"
	"net/url"
	"strings"

	"github.com/nao1215/sitemirror/internal/model"
)

// ErrEmptyBase is returned when a rewriting proxy is created without a base.
var ErrEmptyBase = errors.New("proxy base must not be empty")

// Rewriter maps origin URLs to fetch URLs and back.
type Rewriter interface {
	// Mode reports which run mode the rewriter implements.
	Mode() model.Mode
	// Wrap returns the URL to fetch for origin.
	Wrap(origin string) string
	// Unwrap recovers the origin URL from a fetched URL. ok is false when
	// fetched was not produced by Wrap.
	Unwrap(fetched string) (origin string, ok bool)
}

// New returns the Rewriter for mode. state receives the proxy URL mapping.
func New(mode model.Mode, base string, state *model.CrawlState) (Rewriter, error) {
	if mode != model.ModeProxy {
		return Direct{}, nil
	}
	p, err := NewRewritingProxy(base, state)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RewritingProxy fetches origin URLs through a URL-prefix proxy service.
type RewritingProxy struct {
	base  string
	state *model.CrawlState
}

// NewRewritingProxy creates a RewritingProxy for base. Every wrapped URL is
// recorded in state's mapping.
func NewRewritingProxy(base string, state *model.CrawlState) (*RewritingProxy, error) {
	if strings.TrimSpace(base) == "" {
		return nil, ErrEmptyBase
	}
	return &RewritingProxy{base: base, state: state}, nil
}

// Mode returns model.ModeProxy.
func (p *RewritingProxy) Mode() model.Mode {
	return model.ModeProxy
}

// Base returns the proxy base URL.
func (p *RewritingProxy) Base() string {
	return p.base
}

// Wrap returns base + Quote(origin). The first value computed for an origin
// is recorded and returned on every later call.
func (p *RewritingProxy) Wrap(origin string) string {
	proxied := p.base + Quote(origin)
	if p.state == nil {
		return proxied
	}
	return p.state.MappingOrStore(origin, proxied)
}

// Unwrap strips the proxy base from fetched and percent-decodes the rest.
func (p *RewritingProxy) Unwrap(fetched string) (string, bool) {
	rest, ok := strings.CutPrefix(fetched, p.base)
	if !ok {
		return fetched, false
	}
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return rest, true
	}
	return decoded, true
}

// Direct is the identity Rewriter.
type Direct struct{}

// Mode returns model.ModeDirect.
func (Direct) Mode() model.Mode {
	return model.ModeDirect
}

// Wrap returns origin unchanged.
func (Direct) Wrap(origin string) string {
	return origin
}

// Unwrap returns fetched unchanged and false.
func (Direct) Unwrap(fetched string) (string, bool) {
	return fetched, false
}
