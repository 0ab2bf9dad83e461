// Package main provides the entry point for the sitemirror CLI.
//
// sitemirror copies a single website to local disk: it crawls same-domain
// pages breadth-first, saves every page with its scripts, stylesheets, and
// images, and writes a metadata.json manifest describing the capture.
//
// Usage:
//
//	sitemirror mirror https://example.com/
//	sitemirror serve ./example.com
//
// See --help for all available options.
package main

func main() {
	Execute()
}
