package crawler

import (
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/proxy"
	"github.com/nao1215/sitemirror/internal/urlutil"
)

// Resolver turns a reference found in a document into an origin URL, or ""
// when the reference is not a fetchable URL.
type Resolver func(ref string) string

// newResolver builds the Resolver for a document whose origin URL is origin
// and which was actually served from docURL.
//
// In proxy mode the document comes from the proxy, so its references may be
// proxied URLs, either absolute or relative to the proxied address. A
// reference that resolves against docURL to something carrying the proxy
// prefix is unwrapped; anything else is resolved against the origin URL.
func newResolver(rw proxy.Rewriter, origin, docURL string) Resolver {
	if docURL == "" {
		docURL = origin
	}
	if rw.Mode() != model.ModeProxy {
		return func(ref string) string {
			return urlutil.Normalize(ref, docURL)
		}
	}
	return func(ref string) string {
		if abs := urlutil.Normalize(ref, docURL); abs != "" {
			if unwrapped, ok := rw.Unwrap(abs); ok {
				return urlutil.Normalize(unwrapped, origin)
			}
		}
		return urlutil.Normalize(ref, origin)
	}
}
