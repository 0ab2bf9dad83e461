package render

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nao1215/sitemirror/internal/transport"
)

func TestHTTPRendererRender(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/page" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head>
<script src="/static/app.js"></script>
<script>console.log("inline")</script>
<script src="https://cdn.example.net/lib.js"></script>
</head><body>hi</body></html>`))
	}))
	t.Cleanup(srv.Close)

	client, err := transport.NewClient()
	if err != nil {
		t.Fatal(err)
	}
	r := NewHTTPRenderer(client)
	t.Cleanup(func() { _ = r.Close() })

	res, err := r.Render(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{srv.URL + "/static/app.js", "", "https://cdn.example.net/lib.js"}
	if len(res.Scripts) != len(want) {
		t.Fatalf("Scripts = %v, want %v", res.Scripts, want)
	}
	for i := range want {
		if res.Scripts[i] != want[i] {
			t.Errorf("Scripts[%d] = %q, want %q", i, res.Scripts[i], want[i])
		}
	}
	if res.URL != srv.URL+"/page" {
		t.Errorf("URL = %q", res.URL)
	}
}

func TestHTTPRendererRenderErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	client, err := transport.NewClient()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewHTTPRenderer(client).Render(context.Background(), srv.URL); err == nil {
		t.Error("Render() of a 404 page succeeded, want error")
	}
}

func TestBrowserRendererDefaultsAndClose(t *testing.T) {
	t.Parallel()

	r := NewBrowserRenderer(BrowserOptions{})
	if r.opts.ViewportWidth != 1920 || r.opts.ViewportHeight != 1080 {
		t.Errorf("viewport = %dx%d, want 1920x1080", r.opts.ViewportWidth, r.opts.ViewportHeight)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() before launch = %v", err)
	}
	if _, err := r.Render(context.Background(), "https://example.com/"); !errors.Is(err, ErrClosed) {
		t.Errorf("Render() after Close = %v, want ErrClosed", err)
	}
}

type failingTab struct {
	closed int
}

func (f *failingTab) Close() error {
	f.closed++
	return errors.New("target closed: context deadline exceeded")
}

func TestBrowserRendererCloseTabWarns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	r := NewBrowserRenderer(BrowserOptions{Logger: logger})

	tab := &failingTab{}
	r.closeTab(tab, "https://example.com/slow")

	if tab.closed != 1 {
		t.Errorf("Close() called %d times, want 1", tab.closed)
	}
	out := buf.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "failed to close tab") {
		t.Errorf("close failure not logged at warn level:\n%s", out)
	}
}
