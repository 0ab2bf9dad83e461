package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// LinkFilter applies the ignore and follow patterns of a site configuration
// to page links. Patterns are globs matched against the URL path
// ("/admin/*", "*.pdf", "/api/v?").
//
// The zero value allows every link.
type LinkFilter struct {
	Ignore []string
	Follow []string
}

// Allow reports whether u should be crawled: no ignore pattern may match and,
// when follow patterns are set, at least one must match.
func (f LinkFilter) Allow(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	p := parsed.Path
	if p == "" {
		p = "/"
	}

	for _, pattern := range f.Ignore {
		if matchPattern(pattern, p) {
			return false
		}
	}
	if len(f.Follow) == 0 {
		return true
	}
	for _, pattern := range f.Follow {
		if matchPattern(pattern, p) {
			return true
		}
	}
	return false
}

// Apply returns the links Allow accepts, keeping their order.
func (f LinkFilter) Apply(links []string) []string {
	if len(f.Ignore) == 0 && len(f.Follow) == 0 {
		return links
	}
	out := make([]string, 0, len(links))
	for _, l := range links {
		if f.Allow(l) {
			out = append(out, l)
		}
	}
	return out
}

// matchPattern matches a URL path against a glob. A trailing "/*" matches the
// whole subtree, and a pattern without "/" is also tried against the last
// path segment.
func matchPattern(pattern, p string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && !strings.ContainsAny(ext, "*?[") {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, p); err == nil && matched {
		return true
	}
	if strings.ContainsAny(pattern, "*?") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(p)); err == nil && matched {
			return true
		}
	}
	return false
}
