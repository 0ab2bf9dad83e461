package model

import "time"

// Termination describes why a run left the Running state.
type Termination string

const (
	// TerminationFrontierEmpty means every reachable page was processed.
	TerminationFrontierEmpty Termination = "frontier_empty"
	// TerminationCapReached means the visited set reached its bound.
	TerminationCapReached Termination = "cap_reached"
	// TerminationCancelled means the run context was cancelled.
	TerminationCancelled Termination = "cancelled"
	// TerminationPanic means an unexpected failure escaped page processing.
	TerminationPanic Termination = "panic"
)

// Run describes one crawl from start to termination.
// The scheduler fills in the counters; finalizers read the whole struct.
type Run struct {
	// ID uniquely identifies the run in the history database.
	ID string

	Target    CrawlTarget
	Mode      Mode
	ProxyBase string

	// OutputDir is the directory every file of the run is written under.
	OutputDir string

	State *CrawlState

	StartedAt  time.Time
	FinishedAt time.Time

	PagesProcessed    int
	PagesFailed       int
	ResourcesFailed   int
	FrontierRemaining int
	Termination       Termination
}

// Duration returns how long the run took. It is zero until FinishedAt is set.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
