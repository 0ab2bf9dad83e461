package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/pathmap"
	"github.com/nao1215/sitemirror/internal/proxy"
	"github.com/nao1215/sitemirror/internal/render"
	"github.com/nao1215/sitemirror/internal/urlutil"
)

// Scheduler defaults.
const (
	DefaultDelay         = time.Second
	DefaultRenderTimeout = 60 * time.Second
)

// State is the lifecycle state of a Scheduler.
type State int

const (
	// StateIdle is the state before Run.
	StateIdle State = iota
	// StateRunning means pages are being crawled.
	StateRunning
	// StateDraining means the crawl loop has stopped and finalizers are running.
	StateDraining
	// StateTerminated means Run has returned.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Drainer finalizes a run. It is called exactly once, in StateDraining,
// with a context that is not cancelled even when the crawl was.
type Drainer interface {
	Execute(ctx context.Context, run *model.Run) error
}

// Components are the collaborators a Scheduler drives.
type Components struct {
	Rewriter proxy.Rewriter
	Renderer render.Renderer
	Fetcher  *ResourceFetcher
	Paths    *pathmap.Index
	Store    Writer
}

// PageResult is the outcome of processing one page.
type PageResult struct {
	URL   string
	Links []string
	Err   error
}

// Scheduler runs the breadth-first crawl of one site.
type Scheduler struct {
	run        *model.Run
	components Components
	processor  *Processor
	frontier   *Frontier
	filter     LinkFilter
	drainer    Drainer

	delay         time.Duration
	renderTimeout time.Duration
	workers       int
	logger        *slog.Logger

	mu    sync.Mutex
	state State
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithDelay sets the politeness delay after each page.
func WithDelay(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithRenderTimeout bounds how long one page may take to render.
func WithRenderTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.renderTimeout = d
		}
	}
}

// WithWorkers sets how many pages are processed concurrently.
func WithWorkers(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLinkFilter applies ignore and follow patterns to discovered links.
func WithLinkFilter(f LinkFilter) SchedulerOption {
	return func(s *Scheduler) {
		s.filter = f
	}
}

// WithDrainer sets the finalizer run in StateDraining.
func WithDrainer(d Drainer) SchedulerOption {
	return func(s *Scheduler) {
		s.drainer = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScheduler creates a Scheduler for run. run.Target and run.State must be set.
func NewScheduler(run *model.Run, c Components, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		run:           run,
		components:    c,
		processor:     NewProcessor(run.Target.Domain),
		frontier:      NewFrontier(),
		delay:         DefaultDelay,
		renderTimeout: DefaultRenderTimeout,
		workers:       1,
		logger:        slog.Default(),
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.logger.Debug("scheduler state changed", "state", st.String())
}

// Run crawls until the frontier is empty, the visited cap is reached, or ctx
// is cancelled, then drains. It returns the completed run. The returned error
// is non-nil only when the crawl loop itself failed or the drainer did.
func (s *Scheduler) Run(ctx context.Context) (run *model.Run, err error) {
	s.setState(StateRunning)
	s.run.StartedAt = time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.run.Termination = model.TerminationPanic
			err = fmt.Errorf("crawl aborted: %v", r)
			s.logger.Error("crawl aborted", "error", err)
		}
		if drainErr := s.drain(ctx); drainErr != nil && err == nil {
			err = drainErr
		}
		s.setState(StateTerminated)
		run = s.run
	}()

	start := urlutil.Normalize(s.run.Target.URL, s.run.Target.URL)
	s.frontier.Push(start)
	s.run.Termination = s.loop(ctx)
	return s.run, nil
}

func (s *Scheduler) loop(ctx context.Context) model.Termination {
	state := s.run.State
	for {
		if ctx.Err() != nil {
			return model.TerminationCancelled
		}
		if state.CapReached() {
			return model.TerminationCapReached
		}

		batch := s.nextBatch()
		if len(batch) == 0 {
			if state.CapReached() {
				return model.TerminationCapReached
			}
			return model.TerminationFrontierEmpty
		}

		for _, res := range s.processBatch(ctx, batch) {
			s.run.PagesProcessed++
			if res.Err != nil {
				s.run.PagesFailed++
			}
			for _, link := range res.Links {
				if !state.IsVisited(link) {
					s.frontier.Push(link)
				}
			}
		}
	}
}

// nextBatch pops and claims up to workers page URLs. URLs already visited
// are discarded; a URL that cannot be claimed because the cap was reached is
// put back.
func (s *Scheduler) nextBatch() []string {
	state := s.run.State
	batch := make([]string, 0, s.workers)
	for len(batch) < s.workers && !state.CapReached() {
		u, ok := s.frontier.Pop()
		if !ok {
			break
		}
		switch state.Claim(u) {
		case model.Claimed:
			batch = append(batch, u)
		case model.AlreadyVisited:
			s.logger.Debug("skipped page", "url", u, "reason", "already_visited")
		case model.CapReached:
			s.frontier.Requeue(u)
			return batch
		}
	}
	return batch
}

func (s *Scheduler) processBatch(ctx context.Context, batch []string) []PageResult {
	results := make([]PageResult, len(batch))
	if len(batch) == 1 {
		results[0] = s.processPage(ctx, batch[0])
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, u := range batch {
		g.Go(func() error {
			results[i] = s.processPage(ctx, u)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // page failures are carried in results
	return results
}

// processPage renders, saves, and mines one claimed page. A panic is turned
// into a page failure.
func (s *Scheduler) processPage(ctx context.Context, pageURL string) (res PageResult) {
	res.URL = pageURL
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic while processing page: %v", r)
			s.logger.Error("page processing panicked", "url", pageURL, "error", res.Err)
		}
	}()
	defer s.politeWait(ctx)

	c := s.components
	fetchURL := c.Rewriter.Wrap(pageURL)
	s.logger.Info("scraping page", "url", pageURL, "fetch_url", fetchURL)

	rctx, cancel := context.WithTimeout(ctx, s.renderTimeout)
	out, err := c.Renderer.Render(rctx, fetchURL)
	cancel()
	if err != nil {
		res.Err = &RenderError{URL: pageURL, Err: err}
		s.logger.Warn("failed to render page", "url", pageURL, "error", err)
		return res
	}

	localPath := c.Paths.Assign(pageURL, model.CategoryPage)
	if err := c.Store.Write(localPath, []byte(out.HTML)); err != nil {
		s.logger.Warn("failed to save page", "url", pageURL, "path", localPath, "error", err)
	} else {
		s.run.State.RecordFile(pageURL, localPath, model.CategoryPage)
		s.logger.Info("saved page", "url", pageURL, "path", localPath)
	}

	docURL := out.URL
	if docURL == "" {
		docURL = fetchURL
	}
	resolve := newResolver(c.Rewriter, pageURL, docURL)

	ext, err := s.processor.ExtractWith(strings.NewReader(out.HTML), resolve)
	if err != nil {
		res.Err = err
		s.logger.Warn("failed to parse page", "url", pageURL, "error", err)
		return res
	}

	for _, r := range ext.Resources {
		if ctx.Err() != nil {
			return res
		}
		if s.run.State.IsVisited(r.URL) {
			continue
		}
		c.Fetcher.Fetch(ctx, r.URL, r.Category)
	}
	s.reconcileScripts(ctx, out.Scripts, resolve)

	res.Links = s.filter.Apply(ext.Links)
	return res
}

// reconcileScripts fetches scripts the rendered page loaded that the
// document markup did not reveal, such as injected or proxy-rewritten ones.
func (s *Scheduler) reconcileScripts(ctx context.Context, scripts []string, resolve Resolver) {
	state := s.run.State
	for _, src := range scripts {
		if src == "" || ctx.Err() != nil {
			continue
		}
		origin := resolve(src)
		if origin == "" || !urlutil.InScope(origin, s.run.Target.Domain) {
			continue
		}
		if state.HasResource(model.CategoryScript, origin) || state.IsVisited(origin) {
			continue
		}
		s.components.Fetcher.Fetch(ctx, origin, model.CategoryScript)
	}
}

func (s *Scheduler) politeWait(ctx context.Context) {
	if s.delay <= 0 {
		return
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// drain closes the renderer and runs the drainer.
func (s *Scheduler) drain(ctx context.Context) error {
	s.setState(StateDraining)

	s.run.FinishedAt = time.Now()
	s.run.FrontierRemaining = s.frontier.Len()
	if s.components.Fetcher != nil {
		s.run.ResourcesFailed = s.components.Fetcher.Failures()
	}

	if s.components.Renderer != nil {
		if err := s.components.Renderer.Close(); err != nil {
			s.logger.Warn("failed to close renderer", "error", err)
		}
	}

	s.logger.Info("crawl finished",
		"termination", string(s.run.Termination),
		"pages", s.run.PagesProcessed,
		"failed_pages", s.run.PagesFailed,
		"visited", s.run.State.VisitedCount(),
		"frontier_remaining", s.run.FrontierRemaining,
	)

	if s.drainer == nil {
		return nil
	}
	return s.drainer.Execute(context.WithoutCancel(ctx), s.run)
}
