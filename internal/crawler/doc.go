// Package crawler mirrors a site breadth-first.
//
// # Architecture
//
// The Scheduler owns the crawl loop. It takes page URLs from a FIFO Frontier,
// claims each one in the run's CrawlState, renders it (through the proxy
// rewriter when one is configured), saves the HTML, and hands the document to
// the Processor. The Processor extracts resource references and same-domain
// links. Resources go to the ResourceFetcher, which downloads them, saves
// them, and follows url() and @import references inside stylesheets. Links
// re-enter the Frontier.
//
// Design decision: every fetch, page or resource, first claims its URL with
// CrawlState.Claim. The claim is the only deduplication point and the only
// recursion bound for stylesheets, and it enforces the visited cap.
//
// # States
//
// A Scheduler moves Idle -> Running -> Draining -> Terminated. Draining runs
// the finalizers (manifest, archive index, history) whether the crawl ended
// normally, reached the cap, was cancelled, or failed.
//
// # Failure handling
//
// Page and resource failures are logged and counted; they never stop the
// crawl. There are no retries.
//
// # Usage
//
//	s := crawler.NewScheduler(run, crawler.Components{...}, crawler.WithDelay(time.Second))
//	run, err := s.Run(ctx)
package crawler
