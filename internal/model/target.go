package model

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidTarget is returned when a target URL cannot be used as a crawl root.
var ErrInvalidTarget = errors.New("invalid target URL")

// CrawlTarget identifies the site being mirrored.
// It is created once per run and never mutated afterwards.
type CrawlTarget struct {
	// URL is the starting URL as supplied by the user.
	URL string `json:"url"`

	// BaseURL is the scheme and authority of URL (for example https://example.com).
	BaseURL string `json:"base_url"`

	// Domain is the host of URL including any port. Scope checks compare against it.
	Domain string `json:"domain"`
}

// NewCrawlTarget parses raw and derives the base URL and domain.
// Only absolute http and https URLs are accepted.
func NewCrawlTarget(raw string) (CrawlTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CrawlTarget{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return CrawlTarget{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return CrawlTarget{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}
	if u.Host == "" {
		return CrawlTarget{}, fmt.Errorf("%w: missing host", ErrInvalidTarget)
	}

	host := strings.ToLower(u.Host)
	return CrawlTarget{
		URL:     raw,
		BaseURL: scheme + "://" + host,
		Domain:  host,
	}, nil
}

// Hostname returns Domain without a port.
func (t CrawlTarget) Hostname() string {
	u := url.URL{Host: t.Domain}
	return u.Hostname()
}
