// Package urlutil resolves and scopes the URLs discovered while crawling.
//
// Normalize turns any reference found in a page or stylesheet into an
// absolute, fragment-free http(s) URL, and InScope decides whether such a URL
// belongs to the target site. Both are pure and safe for concurrent use.
package urlutil

import (
	"net/url"
	"strings"
)

// Normalize resolves ref against base and returns the canonical absolute URL.
// It returns "" (no URL) when ref is empty or only a fragment, cannot be
// parsed, or does not resolve to an http or https URL with a host.
//
// The fragment is dropped, dot segments are removed, scheme and host are
// lower-cased, and an empty path becomes "/". Normalize(Normalize(ref, base), base) == Normalize(ref, base).
func Normalize(ref, base string) string {
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}

	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}

	// ResolveReference removes dot segments from absolute refs too, so
	// "/a/../b.png" and "https://host/b.png" name the same URL.
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		if !r.IsAbs() {
			return ""
		}
		b = r
	}
	u := b.ResolveReference(r)

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" || u.Opaque != "" {
		return ""
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	return u.String()
}

// InScope reports whether u belongs to baseDomain. A URL without a host is
// relative to the current page and therefore in scope. Subdomains and other
// ports are out of scope; www.example.com does not match example.com.
func InScope(u, baseDomain string) bool {
	if u == "" {
		return false
	}
	p, err := url.Parse(u)
	if err != nil {
		return false
	}
	if p.Host == "" {
		return true
	}
	return strings.EqualFold(p.Host, baseDomain)
}

// IsDataURI reports whether ref is an inline data: URI.
func IsDataURI(ref string) bool {
	ref = strings.TrimSpace(ref)
	return len(ref) >= 5 && strings.EqualFold(ref[:5], "data:")
}
