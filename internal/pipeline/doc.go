// Package pipeline runs the finalization steps of a mirror run.
//
// When the crawl loop stops, for whatever reason, the scheduler hands the
// run to a Pipeline: the manifest is written, the archive index is built for
// direct runs, and the run is recorded in the history database. Each stage
// is a Step.
//
// Design decision: a list of steps rather than hard-coded calls, so the
// mirror command decides which artifacts a run produces and one failing
// artifact does not prevent the others.
package pipeline
