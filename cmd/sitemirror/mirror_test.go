package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/sitemirror/internal/config"
	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/report"
)

// testSite serves a small site and records every requested path.
type testSite struct {
	*httptest.Server

	mu      sync.Mutex
	hits    map[string]int
	cookies map[string]string
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()

	site := &testSite{hits: make(map[string]int), cookies: make(map[string]string)}
	pages := map[string]string{
		"/": `<html><head>
<link rel="stylesheet" href="/static/site.css">
<script src="/static/app.js"></script>
</head><body>
<a href="/about">About</a>
<a href="/private/admin">Admin</a>
<a href="https://elsewhere.example.org/">Elsewhere</a>
<img src="/img/logo.png">
</body></html>`,
		"/about":         `<html><body><a href="/">Home</a></body></html>`,
		"/private/admin": `<html><body>secret</body></html>`,
	}
	files := map[string]struct{ ct, body string }{
		"/static/site.css": {"text/css", `body { background: url("/img/bg.png"); }`},
		"/static/app.js":   {"application/javascript", `console.log("app")`},
		"/img/logo.png":    {"image/png", "\x89PNG logo"},
		"/img/bg.png":      {"image/png", "\x89PNG bg"},
	}

	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		site.cookies[r.URL.Path] = r.Header.Get("Cookie")
		site.mu.Unlock()

		if body, ok := pages[r.URL.Path]; ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(body))
			return
		}
		if f, ok := files[r.URL.Path]; ok {
			w.Header().Set("Content-Type", f.ct)
			_, _ = w.Write([]byte(f.body))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(site.Close)
	return site
}

func (s *testSite) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *testSite) Cookie(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies[path]
}

func (s *testSite) Host(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(s.URL)
	if err != nil {
		t.Fatal(err)
	}
	return u.Host
}

func writeSiteConfig(t *testing.T, host string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitemirror.yaml")
	content := `defaults:
  maxPages: 5
sites:
  "` + host + `":
    cookie: "consent=yes"
    ignorePatterns:
      - "/private/*"
    maxPages: 50
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMirrorCmdDirectEndToEnd(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	host := site.Host(t)
	out := t.TempDir()

	stdout, _, err := execute(t, "mirror",
		"--mode", "direct",
		"--no-browser",
		"--no-history",
		"--delay", "0s",
		"--output", out,
		"--config", writeSiteConfig(t, host),
		site.URL+"/",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "Mirrored "+site.URL+"/") {
		t.Errorf("summary missing:\n%s", stdout)
	}
	if !strings.Contains(stdout, string(model.TerminationFrontierEmpty)) {
		t.Errorf("summary does not report frontier exhaustion:\n%s", stdout)
	}

	hostDir := strings.ReplaceAll(host, ":", "_")
	for _, rel := range []string{
		filepath.Join(hostDir, "index.html"),
		filepath.Join(hostDir, "about", "index.html"),
		filepath.Join(hostDir, "static", "site.css"),
		filepath.Join(hostDir, "static", "app.js"),
		filepath.Join(hostDir, "img", "logo.png"),
		filepath.Join(hostDir, "img", "bg.png"),
		report.ManifestFile,
		report.IndexFile,
	} {
		if _, err := os.Stat(filepath.Join(out, rel)); err != nil {
			t.Errorf("expected %s: %v", rel, err)
		}
	}

	if got := site.Hits("/private/admin"); got != 0 {
		t.Errorf("ignored page fetched %d times", got)
	}
	for _, p := range []string{"/", "/about", "/static/app.js"} {
		if got := site.Hits(p); got != 1 {
			t.Errorf("%s fetched %d times, want 1", p, got)
		}
	}
	if got := site.Cookie("/about"); got != "consent=yes" {
		t.Errorf("cookie sent = %q, want consent=yes", got)
	}

	m, err := report.ReadManifest(out)
	if err != nil {
		t.Fatal(err)
	}
	if m.Mode != model.ModeDirect {
		t.Errorf("manifest mode = %v, want direct", m.Mode)
	}
	if len(m.JSFiles) != 1 || len(m.CSSFiles) != 1 || len(m.ImageFiles) != 2 {
		t.Errorf("inventory = js %v css %v images %v", m.JSFiles, m.CSSFiles, m.ImageFiles)
	}
	if _, ok := m.DownloadedFiles[site.URL+"/about"]; !ok {
		t.Errorf("downloaded_files misses the about page: %v", m.DownloadedFiles)
	}
}

func TestMirrorCmdCapStopsCrawl(t *testing.T) {
	t.Parallel()

	site := newTestSite(t)
	out := t.TempDir()

	stdout, _, err := execute(t, "mirror",
		"--mode", "direct",
		"--no-browser",
		"--no-history",
		"--delay", "0s",
		"--max-pages", "1",
		"--output", out,
		"--config", writeSiteConfig(t, site.Host(t)),
		site.URL+"/",
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, string(model.TerminationCapReached)) {
		t.Errorf("summary does not report the cap:\n%s", stdout)
	}
	if got := site.Hits("/about"); got != 0 {
		t.Errorf("/about fetched %d times after the cap", got)
	}

	m, err := report.ReadManifest(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.ScrapedPages) != 1 {
		t.Errorf("scraped_pages = %v, want only the start page", m.ScrapedPages)
	}
}

func TestMirrorCmdConfigurationErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want error
	}{
		{
			name: "proxy mode without a base",
			args: []string{"mirror", "--mode", "proxy", "https://example.com/"},
			want: config.ErrMissingProxyBase,
		},
		{
			name: "unknown mode",
			args: []string{"mirror", "--mode", "sideways", "https://example.com/"},
			want: config.ErrInvalidMode,
		},
		{
			name: "tor and forward proxy together",
			args: []string{"mirror", "--mode", "direct", "--tor", "--forward-proxy", "socks5://127.0.0.1:9050", "https://example.com/"},
			want: config.ErrConflictingProxies,
		},
		{
			name: "zero workers",
			args: []string{"mirror", "--mode", "direct", "--workers", "0", "https://example.com/"},
			want: config.ErrInvalidWorkers,
		},
		{
			name: "missing config file",
			args: []string{"mirror", "--config", "/nonexistent/sitemirror.yaml", "https://example.com/"},
			want: config.ErrConfigNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := execute(t, tt.args...)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBuildConfigPrecedence(t *testing.T) {
	t.Parallel()

	host := "example.com"
	cfgPath := writeSiteConfig(t, host)

	t.Run("site file fills unset values", func(t *testing.T) {
		t.Parallel()
		cmd := NewMirrorCmd()
		if err := cmd.ParseFlags([]string{"--config", cfgPath}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.MaxPages != 50 {
			t.Errorf("MaxPages = %d, want 50 from the site entry", cfg.MaxPages)
		}
		if cfg.CrawlDelay != config.DefaultCrawlDelay {
			t.Errorf("CrawlDelay = %v, want default", cfg.CrawlDelay)
		}
	})

	t.Run("flags win over the site file", func(t *testing.T) {
		t.Parallel()
		cmd := NewMirrorCmd()
		if err := cmd.ParseFlags([]string{"--config", cfgPath, "--max-pages", "7", "--delay", "250ms", "--no-browser"}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.MaxPages != 7 {
			t.Errorf("MaxPages = %d, want 7", cfg.MaxPages)
		}
		if cfg.CrawlDelay != 250*time.Millisecond {
			t.Errorf("CrawlDelay = %v, want 250ms", cfg.CrawlDelay)
		}
		if cfg.UseBrowser {
			t.Error("UseBrowser = true, want false")
		}
	})

	t.Run("proxy base selects proxy mode", func(t *testing.T) {
		t.Parallel()
		cmd := NewMirrorCmd()
		if err := cmd.ParseFlags([]string{"--config", cfgPath, "--proxy-base", "https://proxy.example.net/p?u="}); err != nil {
			t.Fatal(err)
		}
		cfg, err := buildConfig(cmd, []string{"https://example.com/"})
		if err != nil {
			t.Fatal(err)
		}
		mode, err := cfg.RunMode()
		if err != nil {
			t.Fatal(err)
		}
		if mode != model.ModeProxy {
			t.Errorf("mode = %v, want proxy", mode)
		}
	})
}
