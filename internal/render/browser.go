package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// scriptSourcesJS collects the src attribute of every script element.
const scriptSourcesJS = `() => Array.from(document.querySelectorAll('script')).map(s => s.src)`

// BrowserOptions configures a BrowserRenderer.
type BrowserOptions struct {
	// ProxyServer is passed to Chrome as --proxy-server (host:port or socks5://host:port).
	ProxyServer string
	// UserAgent overrides the browser user agent when set.
	UserAgent string
	// Headless runs Chrome without a window. Defaults to true via NewBrowserRenderer.
	Headless bool
	// Stealth applies the go-rod/stealth evasions to every tab.
	Stealth bool
	// SettleWait is an extra pause after the network goes idle.
	SettleWait time.Duration
	// ViewportWidth and ViewportHeight set the emulated viewport.
	ViewportWidth  int
	ViewportHeight int
	// ControlURL connects to an already running browser instead of launching one.
	ControlURL string
	Logger     *slog.Logger
}

// BrowserRenderer renders pages in headless Chrome. The browser is launched
// on the first Render call and reused for the rest of the run; each page gets
// its own tab.
type BrowserRenderer struct {
	opts BrowserOptions

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	closed   bool
}

// NewBrowserRenderer creates a renderer. No browser is started yet.
func NewBrowserRenderer(opts BrowserOptions) *BrowserRenderer {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 1920
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 1080
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &BrowserRenderer{opts: opts}
}

// Render opens url in a new tab, waits for the network to go idle, and
// returns the document HTML and script sources.
func (r *BrowserRenderer) Render(ctx context.Context, url string) (*Result, error) {
	b, err := r.ensureBrowser()
	if err != nil {
		return nil, err
	}

	tab, err := r.openTab(b)
	if err != nil {
		return nil, fmt.Errorf("create tab: %w", err)
	}
	// The tab is closed through the value returned by openTab, which is not
	// bound to ctx, so it still closes after a render timeout.
	defer r.closeTab(tab, url)
	page := tab.Context(ctx)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  r.opts.ViewportWidth,
		Height: r.opts.ViewportHeight,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if r.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.opts.UserAgent}); err != nil {
			return nil, fmt.Errorf("set user agent: %w", err)
		}
	}

	waitIdle := page.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	waitIdle()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if r.opts.SettleWait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.opts.SettleWait):
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	res, err := page.Eval(scriptSourcesJS)
	if err != nil {
		return nil, fmt.Errorf("collect script sources: %w", err)
	}
	var scripts []string
	for _, v := range res.Value.Arr() {
		scripts = append(scripts, v.Str())
	}

	finalURL := url
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	return &Result{URL: finalURL, HTML: html, Scripts: scripts}, nil
}

// tabCloser is the part of *rod.Page closeTab needs.
type tabCloser interface {
	Close() error
}

// closeTab closes a tab and reports failures, since a tab left open stays in
// the shared browser for the rest of the run.
func (r *BrowserRenderer) closeTab(tab tabCloser, url string) {
	if err := tab.Close(); err != nil {
		r.opts.Logger.Warn("failed to close tab", "url", url, "error", err)
	}
}

func (r *BrowserRenderer) openTab(b *rod.Browser) (*rod.Page, error) {
	if r.opts.Stealth {
		return stealth.Page(b)
	}
	return b.Page(proto.TargetCreateTarget{})
}

// ensureBrowser launches or connects to Chrome once.
func (r *BrowserRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if r.browser != nil {
		return r.browser, nil
	}

	controlURL := r.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().
			Headless(r.opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		if r.opts.ProxyServer != "" {
			l = l.Proxy(strings.TrimPrefix(r.opts.ProxyServer, "http://"))
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
		r.launcher = l
		r.opts.Logger.Debug("launched browser", "control_url", controlURL)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		if r.launcher != nil {
			r.launcher.Cleanup()
			r.launcher = nil
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		r.opts.Logger.Warn("failed to ignore certificate errors", "error", err)
	}

	r.browser = b
	return b, nil
}

// Close shuts the browser down. Further Render calls fail with ErrClosed.
func (r *BrowserRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Cleanup()
		r.launcher = nil
	}
	return err
}
