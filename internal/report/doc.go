// Package report writes the artifacts that describe a finished mirror:
//   - ManifestWriter: metadata.json, the machine-readable record of a run
//   - IndexWriter: index.html, a browsable archive index for direct runs
//   - MarkdownWriter: a human-readable summary of a manifest
//
// Design decision: the data lives in the model package and only rendering
// lives here, so new output formats do not touch the crawl.
package report
