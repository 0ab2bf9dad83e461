package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/pathmap"
	"github.com/nao1215/sitemirror/internal/proxy"
	"github.com/nao1215/sitemirror/internal/transport"
)

// DefaultFetchTimeout bounds a single resource download.
const DefaultFetchTimeout = 30 * time.Second

// Getter performs HTTP GET requests. *transport.Client implements it.
type Getter interface {
	Get(ctx context.Context, url string) (*transport.Response, error)
}

// Writer persists files relative to the output directory. *storage.Store implements it.
type Writer interface {
	Write(rel string, data []byte) error
}

// FetchStatus is the outcome of ResourceFetcher.Fetch.
type FetchStatus int

const (
	// FetchStatusFetched means the resource was downloaded and recorded.
	FetchStatusFetched FetchStatus = iota
	// FetchStatusSkipped means the URL was already claimed or the cap was reached.
	FetchStatusSkipped
	// FetchStatusFailed means the download failed. The URL stays visited.
	FetchStatusFailed
)

// String returns the status name.
func (s FetchStatus) String() string {
	switch s {
	case FetchStatusFetched:
		return "fetched"
	case FetchStatusSkipped:
		return "skipped"
	case FetchStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult reports what happened to one resource.
type FetchResult struct {
	URL      string
	Category model.Category
	Status   FetchStatus
	// Path is the local path the resource was assigned, when fetched.
	Path string
	// Err is a *FetchError when Status is FetchStatusFailed, or the persist
	// error when the download succeeded but the write did not.
	Err error
}

// ResourceFetcher downloads resources, stores them, and follows stylesheet
// references. It is safe for concurrent use.
type ResourceFetcher struct {
	client   Getter
	rewriter proxy.Rewriter
	state    *model.CrawlState
	paths    *pathmap.Index
	store    Writer
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger
	failures atomic.Int64
}

// FetcherOption configures a ResourceFetcher.
type FetcherOption func(*ResourceFetcher)

// WithFetchTimeout sets the per-resource timeout.
func WithFetchTimeout(d time.Duration) FetcherOption {
	return func(f *ResourceFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRateLimit caps resource requests at perSecond with the given burst.
// A perSecond of zero or less disables the limit.
func WithRateLimit(perSecond float64, burst int) FetcherOption {
	return func(f *ResourceFetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithFetcherLogger sets the logger.
func WithFetcherLogger(l *slog.Logger) FetcherOption {
	return func(f *ResourceFetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewResourceFetcher creates a ResourceFetcher.
func NewResourceFetcher(client Getter, rw proxy.Rewriter, state *model.CrawlState, paths *pathmap.Index, store Writer, opts ...FetcherOption) *ResourceFetcher {
	f := &ResourceFetcher{
		client:   client,
		rewriter: rw,
		state:    state,
		paths:    paths,
		store:    store,
		timeout:  DefaultFetchTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch claims u and, if the claim succeeds, downloads it through the
// rewriter, records it in the inventory under c, and writes it to disk.
// Stylesheets are scanned for further references, each fetched through
// Fetch again.
//
// Failures are logged and reported in the result; Fetch never panics on
// network or filesystem errors.
func (f *ResourceFetcher) Fetch(ctx context.Context, u string, c model.Category) FetchResult {
	res := FetchResult{URL: u, Category: c}

	if claim := f.state.Claim(u); claim != model.Claimed {
		res.Status = FetchStatusSkipped
		f.logger.Debug("skipped resource", "url", u, "reason", claim.String())
		return res
	}

	fetchURL := f.rewriter.Wrap(u)
	resp, err := f.get(ctx, fetchURL)
	if err != nil {
		return f.fail(res, &FetchError{URL: u, Err: err})
	}
	if resp.StatusCode != http.StatusOK {
		return f.fail(res, &FetchError{URL: u, Status: resp.StatusCode})
	}

	// Stylesheets are read as text whatever their declared type, so a sheet
	// served as application/octet-stream still has its references followed.
	// Other binary content is written byte-exact.
	content := resp.Body
	var text string
	isText := transport.IsText(resp.ContentType())
	if isText || c == model.CategoryStyle {
		decoded, err := transport.DecodeText(resp.Body, resp.ContentType())
		if err != nil {
			decoded = string(resp.Body)
		}
		text = decoded
		if isText {
			content = []byte(decoded)
		}
	}

	f.state.AddResource(c, u)
	res.Path = f.paths.Assign(u, c)
	res.Status = FetchStatusFetched
	if err := f.store.Write(res.Path, content); err != nil {
		res.Err = err
		f.logger.Warn("failed to save resource", "url", u, "path", res.Path, "error", err)
	} else {
		f.state.RecordFile(u, res.Path, c)
		f.logger.Info("saved resource", "url", u, "path", res.Path, "category", c.String())
	}

	if c == model.CategoryStyle {
		f.followStylesheet(ctx, u, resp.URL, text)
	}
	return res
}

// Failures returns how many resource downloads failed so far.
func (f *ResourceFetcher) Failures() int {
	return int(f.failures.Load())
}

func (f *ResourceFetcher) get(ctx context.Context, fetchURL string) (*transport.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.client.Get(ctx, fetchURL)
}

func (f *ResourceFetcher) fail(res FetchResult, err *FetchError) FetchResult {
	res.Status = FetchStatusFailed
	res.Err = err
	f.failures.Add(1)
	level := slog.LevelWarn
	if errors.Is(err.Err, context.Canceled) {
		level = slog.LevelDebug
	}
	f.logger.Log(context.Background(), level, "failed to fetch resource", "url", res.URL, "category", res.Category.String(), "error", err)
	return res
}

// followStylesheet fetches every url() and @import target of a stylesheet.
// References resolve against the stylesheet, not the page that linked it.
func (f *ResourceFetcher) followStylesheet(ctx context.Context, sheetURL, servedURL, css string) {
	resolve := newResolver(f.rewriter, sheetURL, servedURL)
	for _, ref := range ExtractCSSRefs(css) {
		if ctx.Err() != nil {
			return
		}
		target := resolve(ref.Ref)
		if target == "" || f.state.IsVisited(target) {
			continue
		}
		c := model.CategoryStyle
		if !ref.Import {
			c = categoryOf(target)
		}
		f.Fetch(ctx, target, c)
	}
}

func categoryOf(u string) model.Category {
	parsed, err := url.Parse(u)
	if err != nil {
		return model.CategoryOther
	}
	return model.CategoryFromPath(parsed.Path)
}
