package crawler

import (
	"regexp"
	"strings"

	"github.com/nao1215/sitemirror/internal/urlutil"
)

var (
	cssURLPattern    = regexp.MustCompile(`url\s*\(\s*['"]?([^'"\)]+)['"]?\s*\)`)
	cssImportPattern = regexp.MustCompile(`@import\s+['"]([^'"]+)['"]`)
)

// CSSRef is a reference found in a stylesheet.
type CSSRef struct {
	Ref string
	// Import is true for @import "..." references, which are stylesheets.
	Import bool
}

// ExtractCSSRefs returns the url(...) and @import references of css in
// source order, url() first. Inline data: URIs are omitted.
func ExtractCSSRefs(css string) []CSSRef {
	var refs []CSSRef
	for _, m := range cssURLPattern.FindAllStringSubmatch(css, -1) {
		ref := strings.TrimSpace(m[1])
		if ref == "" || urlutil.IsDataURI(ref) {
			continue
		}
		refs = append(refs, CSSRef{Ref: ref})
	}
	for _, m := range cssImportPattern.FindAllStringSubmatch(css, -1) {
		ref := strings.TrimSpace(m[1])
		if ref == "" || urlutil.IsDataURI(ref) {
			continue
		}
		refs = append(refs, CSSRef{Ref: ref, Import: true})
	}
	return refs
}
