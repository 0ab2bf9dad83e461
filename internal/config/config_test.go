package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitemirror/internal/model"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.MaxPages != 1000 {
		t.Errorf("MaxPages = %d, want 1000", cfg.MaxPages)
	}
	if cfg.CrawlDelay != time.Second {
		t.Errorf("CrawlDelay = %v, want 1s", cfg.CrawlDelay)
	}
	if cfg.Workers != 1 {
		t.Errorf("Workers = %d, want 1", cfg.Workers)
	}
	if !cfg.UseBrowser || !cfg.SaveHistory {
		t.Error("browser rendering and history should be on by default")
	}
	if cfg.HistoryDir != XDGDataDir() {
		t.Errorf("HistoryDir = %q, want %q", cfg.HistoryDir, XDGDataDir())
	}
}

func TestConfigRunMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mode    string
		base    string
		want    model.Mode
		wantErr bool
	}{
		{name: "auto without base", want: model.ModeDirect},
		{name: "auto with base", base: "https://p/_ja/", want: model.ModeProxy},
		{name: "explicit direct with base", mode: "direct", base: "https://p/_ja/", want: model.ModeDirect},
		{name: "explicit proxy", mode: "PROXY", want: model.ModeProxy},
		{name: "unknown", mode: "mirror", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := &Config{Mode: tt.mode, ProxyBase: tt.base}
			got, err := cfg.RunMode()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMode) {
					t.Errorf("RunMode() error = %v, want ErrInvalidMode", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("RunMode() = %v, %v; want %v", got, err, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.TargetURL = "https://example.com/"
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "valid direct", modify: func(*Config) {}},
		{name: "valid proxy", modify: func(c *Config) { c.ProxyBase = "https://p.test/_ja/" }},
		{name: "missing target", modify: func(c *Config) { c.TargetURL = "" }, want: ErrMissingTarget},
		{name: "bad target", modify: func(c *Config) { c.TargetURL = "ftp://example.com/" }, want: model.ErrInvalidTarget},
		{name: "proxy mode without base", modify: func(c *Config) { c.Mode = "proxy" }, want: ErrMissingProxyBase},
		{name: "bad mode", modify: func(c *Config) { c.Mode = "x" }, want: ErrInvalidMode},
		{name: "tor with forward proxy", modify: func(c *Config) { c.UseTor = true; c.ForwardProxy = "http://127.0.0.1:3128" }, want: ErrConflictingProxies},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "zero render timeout", modify: func(c *Config) { c.RenderTimeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative delay", modify: func(c *Config) { c.CrawlDelay = -time.Second }, want: ErrInvalidCrawlDelay},
		{name: "zero delay is fine", modify: func(c *Config) { c.CrawlDelay = 0 }},
		{name: "zero max pages", modify: func(c *Config) { c.MaxPages = 0 }, want: ErrInvalidMaxPages},
		{name: "zero workers", modify: func(c *Config) { c.Workers = 0 }, want: ErrInvalidWorkers},
		{name: "negative rate", modify: func(c *Config) { c.ResourceRate = -1 }, want: ErrInvalidResourceRate},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfigApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvTargetURL:    "https://example.com/start",
		EnvProxyBase:    "https://proxy.test/_ja/",
		EnvForwardProxy: "socks5://127.0.0.1:9050",
		EnvSiteFolder:   "/tmp/out",
		EnvMode:         "proxy",
		EnvMaxPages:     "25",
		EnvDelay:        "0.5",
		EnvWorkers:      "3",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := NewConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		t.Fatal(err)
	}

	if cfg.TargetURL != "https://example.com/start" || cfg.ProxyBase != "https://proxy.test/_ja/" {
		t.Errorf("target/proxy = %q %q", cfg.TargetURL, cfg.ProxyBase)
	}
	if cfg.ForwardProxy != "socks5://127.0.0.1:9050" || cfg.OutputDir != "/tmp/out" || cfg.Mode != "proxy" {
		t.Errorf("forward/output/mode = %q %q %q", cfg.ForwardProxy, cfg.OutputDir, cfg.Mode)
	}
	if cfg.MaxPages != 25 || cfg.CrawlDelay != 500*time.Millisecond || cfg.Workers != 3 {
		t.Errorf("max/delay/workers = %d %v %d", cfg.MaxPages, cfg.CrawlDelay, cfg.Workers)
	}
	if !cfg.IsExplicit(FieldMaxPages) || !cfg.IsExplicit(FieldDelay) {
		t.Error("env-set fields should be explicit")
	}
}

func TestConfigApplyEnvInvalid(t *testing.T) {
	t.Parallel()

	for _, key := range []string{EnvMaxPages, EnvDelay, EnvWorkers} {
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			lookup := func(k string) (string, bool) {
				if k == key {
					return "lots", true
				}
				return "", false
			}
			err := NewConfig().ApplyEnv(lookup)
			if !errors.Is(err, ErrInvalidEnv) || !strings.Contains(err.Error(), key) {
				t.Errorf("ApplyEnv() = %v, want ErrInvalidEnv naming %s", err, key)
			}
		})
	}
}

// Not parallel: LoadDotEnv writes the process environment.
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SITEMIRROR_TEST_A=from-file\nSITEMIRROR_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SITEMIRROR_TEST_B", "from-env")
	t.Setenv("SITEMIRROR_TEST_A", "")
	os.Unsetenv("SITEMIRROR_TEST_A") //nolint:errcheck // restored by t.Setenv cleanup

	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("SITEMIRROR_TEST_A"); got != "from-file" {
		t.Errorf("A = %q, want from-file", got)
	}
	if got := os.Getenv("SITEMIRROR_TEST_B"); got != "from-env" {
		t.Errorf("B = %q, real environment must win", got)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}

func TestConfigApplySite(t *testing.T) {
	t.Parallel()

	sc := SiteConfig{MaxPages: 50, Delay: 3 * time.Second}

	cfg := NewConfig()
	cfg.ApplySite(sc)
	if cfg.MaxPages != 50 || cfg.CrawlDelay != 3*time.Second {
		t.Errorf("site values not applied: %d %v", cfg.MaxPages, cfg.CrawlDelay)
	}

	cfg = NewConfig()
	cfg.MaxPages = 10
	cfg.MarkExplicit(FieldMaxPages)
	cfg.ApplySite(sc)
	if cfg.MaxPages != 10 {
		t.Errorf("explicit MaxPages overridden: %d", cfg.MaxPages)
	}
	if cfg.CrawlDelay != 3*time.Second {
		t.Errorf("CrawlDelay = %v, want site value", cfg.CrawlDelay)
	}
}

func TestConfigResolveOutputDir(t *testing.T) {
	t.Parallel()

	target, err := model.NewCrawlTarget("http://localhost:8080/")
	if err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	if got, want := cfg.ResolveOutputDir(target), filepath.Join(XDGDataDir(), "localhost_8080"); got != want {
		t.Errorf("ResolveOutputDir() = %q, want %q", got, want)
	}
	cfg.OutputDir = "/srv/mirror"
	if got := cfg.ResolveOutputDir(target); got != "/srv/mirror" {
		t.Errorf("ResolveOutputDir() = %q", got)
	}
}

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Cookie:         "lang=en",
			Headers:        map[string]string{"Accept-Language": "en"},
			IgnorePatterns: []string{"*.pdf"},
			Delay:          time.Second,
		},
		Sites: map[string]SiteConfig{
			"example.com": {
				Headers:        map[string]string{"X-Archive": "1"},
				FollowPatterns: []string{"/docs/*"},
				MaxPages:       20,
			},
		},
	}

	got := cf.GetSiteConfig("example.com")
	if got.Cookie != "lang=en" || got.Delay != time.Second || got.MaxPages != 20 {
		t.Errorf("merged scalars = %+v", got)
	}
	if got.Headers["Accept-Language"] != "en" || got.Headers["X-Archive"] != "1" {
		t.Errorf("merged headers = %v", got.Headers)
	}
	if len(got.IgnorePatterns) != 1 || len(got.FollowPatterns) != 1 {
		t.Errorf("patterns = %v %v", got.IgnorePatterns, got.FollowPatterns)
	}
	if _, ok := cf.Defaults.Headers["X-Archive"]; ok {
		t.Error("merging mutated the defaults")
	}

	other := cf.GetSiteConfig("other.org")
	if other.Cookie != "lang=en" || other.MaxPages != 0 {
		t.Errorf("defaults-only config = %+v", other)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("valid file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".sitemirror")
		content := `defaults:
  delay: 500ms
  ignorePatterns:
    - "/logout"
sites:
  example.com:
    cookie: "consent=yes"
    maxPages: 200
    headers:
      X-Archive: "1"
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if cf.Defaults.Delay != 500*time.Millisecond {
			t.Errorf("Defaults.Delay = %v", cf.Defaults.Delay)
		}
		site := cf.Sites["example.com"]
		if site.Cookie != "consent=yes" || site.MaxPages != 200 || site.Headers["X-Archive"] != "1" {
			t.Errorf("site = %+v", site)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("LoadConfigFile() = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".sitemirror")
		if err := os.WriteFile(path, []byte("sites: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("LoadConfigFile() of invalid YAML succeeded")
		}
	})

	t.Run("empty file gets a sites map", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), ".sitemirror")
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if cf.Sites == nil {
			t.Error("Sites is nil")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	if got := FindConfigFile(path); got != path {
		t.Errorf("FindConfigFile(explicit) = %q", got)
	}
	if got := FindConfigFile(path + ".missing"); got != "" {
		t.Errorf("FindConfigFile(missing explicit) = %q, want empty", got)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if filepath.Base(XDGDataDir()) != AppName || filepath.Base(XDGConfigDir()) != AppName {
		t.Errorf("XDG dirs = %q %q", XDGDataDir(), XDGConfigDir())
	}
}
