// Package render produces the final HTML of a page and the script URLs it loaded.
//
// BrowserRenderer drives headless Chrome through go-rod with the stealth
// patches applied, so client-side rendering and script injection are captured.
// HTTPRenderer fetches the page without executing JavaScript; it is used with
// --no-browser and in tests.
package render

import (
	"context"
	"errors"
)

// ErrClosed is returned when Render is called after Close.
var ErrClosed = errors.New("renderer is closed")

// Result is the outcome of rendering one page.
type Result struct {
	// URL is the address that was rendered, after redirects.
	URL string
	// HTML is the serialized document after rendering.
	HTML string
	// Scripts lists the src of every script element, in document order,
	// exactly as the document reports them. Inline scripts give "".
	Scripts []string
}

// Renderer renders pages. Implementations must be safe for concurrent use
// when the crawl runs more than one worker.
type Renderer interface {
	Render(ctx context.Context, url string) (*Result, error)
	Close() error
}
