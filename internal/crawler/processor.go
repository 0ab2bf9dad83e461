package crawler

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/urlutil"
)

// ResourceRef is a resource discovered in a page.
type ResourceRef struct {
	URL      string
	Category model.Category
}

// Extraction is what a page contributes to the crawl.
type Extraction struct {
	// Resources holds scripts, stylesheets, and images, in that order and in
	// document order within each group. Each URL appears once.
	Resources []ResourceRef
	// Links holds same-domain hyperlinks in document order, each once.
	Links []string
}

// Processor extracts resources and links from rendered pages.
type Processor struct {
	domain string
}

// NewProcessor creates a Processor scoped to domain.
func NewProcessor(domain string) *Processor {
	return &Processor{domain: domain}
}

// Extract parses html from pageURL and resolves references against pageURL.
func (p *Processor) Extract(pageURL string, html io.Reader) (*Extraction, error) {
	return p.ExtractWith(html, func(ref string) string {
		return urlutil.Normalize(ref, pageURL)
	})
}

// ExtractWith parses html and resolves each reference with resolve.
// References that resolve to "" or fall outside the domain are dropped.
func (p *Processor) ExtractWith(html io.Reader, resolve Resolver) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(html)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	ext := &Extraction{}
	seen := make(map[string]struct{})
	add := func(ref string, c model.Category) {
		u := resolve(ref)
		if u == "" || !urlutil.InScope(u, p.domain) {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		ext.Resources = append(ext.Resources, ResourceRef{URL: u, Category: c})
	}

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("src", ""), model.CategoryScript)
	})
	doc.Find(`link[rel~="stylesheet"][href]`).Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("href", ""), model.CategoryStyle)
	})
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		add(s.AttrOr("src", ""), model.CategoryImage)
	})

	linkSeen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		u := resolve(s.AttrOr("href", ""))
		if u == "" || !urlutil.InScope(u, p.domain) {
			return
		}
		if _, ok := linkSeen[u]; ok {
			return
		}
		linkSeen[u] = struct{}{}
		ext.Links = append(ext.Links, u)
	})

	return ext, nil
}
