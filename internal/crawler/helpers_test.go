package crawler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/pathmap"
	"github.com/nao1215/sitemirror/internal/proxy"
	"github.com/nao1215/sitemirror/internal/render"
	"github.com/nao1215/sitemirror/internal/storage"
	"github.com/nao1215/sitemirror/internal/transport"
)

// fakeRenderer serves pages produced by a function and records calls.
type fakeRenderer struct {
	mu     sync.Mutex
	render func(url string) (*render.Result, error)
	calls  []string
	closed int
}

func (f *fakeRenderer) Render(_ context.Context, url string) (*render.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	return f.render(url)
}

func (f *fakeRenderer) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeRenderer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// pageMap renders from a fixed URL -> HTML map.
func pageMap(pages map[string]string) func(string) (*render.Result, error) {
	return func(url string) (*render.Result, error) {
		html, ok := pages[url]
		if !ok {
			return nil, errors.New("page not found")
		}
		return &render.Result{URL: url, HTML: html}, nil
	}
}

// fakeGetter answers resource requests from a map and counts requests.
type fakeGetter struct {
	mu        sync.Mutex
	responses map[string]*transport.Response
	requests  map[string]int
}

func newFakeGetter(responses map[string]*transport.Response) *fakeGetter {
	return &fakeGetter{responses: responses, requests: make(map[string]int)}
}

func (g *fakeGetter) Get(_ context.Context, url string) (*transport.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests[url]++
	resp, ok := g.responses[url]
	if !ok {
		return &transport.Response{URL: url, StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
	}
	if resp.URL == "" {
		resp.URL = url
	}
	return resp, nil
}

func (g *fakeGetter) Requests(url string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[url]
}

func textResponse(contentType, body string) *transport.Response {
	h := http.Header{}
	h.Set("Content-Type", contentType)
	return &transport.Response{StatusCode: http.StatusOK, Header: h, Body: []byte(body)}
}

// recordingDrainer remembers every run it finalizes.
type recordingDrainer struct {
	mu     sync.Mutex
	runs   []*model.Run
	ctxErr error
}

func (d *recordingDrainer) Execute(ctx context.Context, run *model.Run) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.runs = append(d.runs, run)
	d.ctxErr = ctx.Err()
	return nil
}

// harness wires a Scheduler the way the mirror command does.
type harness struct {
	run      *model.Run
	store    *storage.Store
	renderer *fakeRenderer
	getter   Getter
	fetcher  *ResourceFetcher
	drainer  *recordingDrainer
	rewriter proxy.Rewriter
}

func newHarness(t *testing.T, mode model.Mode, proxyBase string, maxVisits int, renderer *fakeRenderer, getter Getter) *harness {
	t.Helper()

	target, err := model.NewCrawlTarget("https://example.com/")
	if err != nil {
		t.Fatal(err)
	}
	state := model.NewCrawlState(maxVisits)
	rw, err := proxy.New(mode, proxyBase, state)
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	paths := pathmap.NewIndex(pathmap.NewMapper(pathmap.LayoutFor(mode)))

	return &harness{
		run: &model.Run{
			Target:    target,
			Mode:      mode,
			ProxyBase: proxyBase,
			OutputDir: store.Root(),
			State:     state,
		},
		store:    store,
		renderer: renderer,
		getter:   getter,
		fetcher:  NewResourceFetcher(getter, rw, state, paths, store),
		drainer:  &recordingDrainer{},
		rewriter: rw,
	}
}

func (h *harness) scheduler(opts ...SchedulerOption) *Scheduler {
	paths := h.fetcher.paths
	opts = append([]SchedulerOption{WithDelay(0), WithDrainer(h.drainer)}, opts...)
	return NewScheduler(h.run, Components{
		Rewriter: h.rewriter,
		Renderer: h.renderer,
		Fetcher:  h.fetcher,
		Paths:    paths,
		Store:    h.store,
	}, opts...)
}
