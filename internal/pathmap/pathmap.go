// Package pathmap maps captured URLs to file paths relative to the output directory.
//
// Two layouts exist. LayoutFlat puts pages at the output root (mirroring the
// URL path) and every resource by basename under js/, css/, or assets/. It
// matches what a rewriting proxy run has always produced, and basenames can
// collide. LayoutMirrored puts every file under <host>/ with its full URL path,
// which is what direct runs use.
//
// Mapper is pure: the same URL and category always give the same path. Index
// wraps a Mapper for one run and resolves collisions between distinct URLs.
package pathmap

import (
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/sitemirror/internal/model"
)

// Layout selects how files are arranged under the output directory.
type Layout int

const (
	// LayoutFlat is the proxy-mode layout.
	LayoutFlat Layout = iota
	// LayoutMirrored is the direct-mode layout.
	LayoutMirrored
)

// String returns the layout name.
func (l Layout) String() string {
	if l == LayoutMirrored {
		return "mirrored"
	}
	return "flat"
}

// LayoutFor returns the layout used for a run mode.
func LayoutFor(m model.Mode) Layout {
	if m == model.ModeProxy {
		return LayoutFlat
	}
	return LayoutMirrored
}

// Resource directories used by LayoutFlat.
const (
	ScriptDir = "js"
	StyleDir  = "css"
	AssetDir  = "assets"
)

// indexFile is the name given to directory-like page paths.
const indexFile = "index.html"

// unsafeReplacer replaces query characters that cannot appear in a portable file name.
var unsafeReplacer = strings.NewReplacer("?", "_", "&", "_", "=", "_")

// Mapper computes local paths for one layout.
type Mapper struct {
	layout Layout
}

// NewMapper creates a Mapper for layout.
func NewMapper(layout Layout) Mapper {
	return Mapper{layout: layout}
}

// Layout returns the mapper's layout.
func (m Mapper) Layout() Layout {
	return m.layout
}

// LocalPath returns the slash-separated path, relative to the output
// directory, for u in category c. It never starts with "/" and never
// contains ".." segments. An unparsable URL maps to "index.html" under its
// category directory.
func (m Mapper) LocalPath(u string, c model.Category) string {
	parsed, err := url.Parse(u)
	if err != nil {
		parsed = &url.URL{}
	}

	if m.layout == LayoutMirrored {
		host := hostDir(parsed.Host)
		if c == model.CategoryPage {
			return path.Join(host, pagePath(parsed))
		}
		return path.Join(host, resourcePath(parsed))
	}

	if c == model.CategoryPage {
		return pagePath(parsed)
	}
	return path.Join(CategoryDir(c), baseName(parsed))
}

// CategoryDir returns the LayoutFlat directory for category c.
func CategoryDir(c model.Category) string {
	switch c {
	case model.CategoryScript:
		return ScriptDir
	case model.CategoryStyle:
		return StyleDir
	default:
		return AssetDir
	}
}

// pagePath maps a page URL path (with its query folded in) to a file path.
func pagePath(u *url.URL) string {
	p := strings.TrimSuffix(u.Path, "/")
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	if p == "" {
		return indexFile
	}

	p = unsafeReplacer.Replace(p)
	if !strings.Contains(path.Base(p), ".") {
		p = path.Join(p, indexFile)
	}
	return clean(p)
}

// resourcePath keeps the full URL path of a resource. The query is dropped;
// URLs that differ only by query are told apart by Index.
func resourcePath(u *url.URL) string {
	p := u.Path
	if p == "" || strings.HasSuffix(p, "/") {
		p += "index"
	}
	return clean(unsafeReplacer.Replace(p))
}

func baseName(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		name = "index"
	}
	return unsafeReplacer.Replace(name)
}

func hostDir(host string) string {
	if host == "" {
		return "_"
	}
	return strings.ReplaceAll(strings.ToLower(host), ":", "_")
}

// clean removes leading slashes and any ".." segments that would escape the root.
func clean(p string) string {
	p = path.Clean("/" + p)
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return indexFile
	}
	return p
}
