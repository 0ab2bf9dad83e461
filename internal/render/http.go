package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitemirror/internal/transport"
	"github.com/nao1215/sitemirror/internal/urlutil"
)

// Fetcher is the subset of transport.Client used by HTTPRenderer.
type Fetcher interface {
	Get(ctx context.Context, url string) (*transport.Response, error)
}

// HTTPRenderer returns the page as served, without running scripts.
// Script sources are resolved to absolute URLs, as a browser reports them.
type HTTPRenderer struct {
	client Fetcher
}

// NewHTTPRenderer creates a renderer backed by client.
func NewHTTPRenderer(client Fetcher) *HTTPRenderer {
	return &HTTPRenderer{client: client}
}

// Render fetches url and parses its script elements.
func (r *HTTPRenderer) Render(ctx context.Context, url string) (*Result, error) {
	resp, err := r.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	html, err := transport.DecodeText(resp.Body, resp.ContentType())
	if err != nil {
		html = string(resp.Body)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var scripts []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok {
			scripts = append(scripts, "")
			return
		}
		scripts = append(scripts, urlutil.Normalize(src, resp.URL))
	})

	return &Result{URL: resp.URL, HTML: html, Scripts: scripts}, nil
}

// Close is a no-op.
func (r *HTTPRenderer) Close() error {
	return nil
}
