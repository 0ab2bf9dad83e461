// Package model defines the data structures shared by every stage of a mirror run.
//
// This package contains the following main types:
//   - CrawlTarget: the site being mirrored, fixed for the lifetime of a run
//   - Mode: whether pages are fetched through a rewriting proxy or directly
//   - Category: the classification of a captured file (page, script, style, ...)
//   - CrawlState: the visited set, proxy URL mapping, and resource inventory
//   - Run: one crawl from start to termination, handed to the finalizers
//   - Manifest: the metadata.json record written when a run drains
//
// Design decision: CrawlState is an explicit value passed to the components that
// need it. There is no package-level state, so two runs in the same process never
// share a visited set.
package model
