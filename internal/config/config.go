package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/sitemirror/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitemirror"

	// DefaultMaxPages caps visited URLs, pages and resources together.
	DefaultMaxPages = model.DefaultMaxVisits

	// DefaultCrawlDelay is the politeness delay after each page.
	DefaultCrawlDelay = 1 * time.Second

	// DefaultNavigationWait is how long the browser settles after navigation
	// so late scripts can register.
	DefaultNavigationWait = 2 * time.Second

	// DefaultTimeout bounds a single resource download.
	DefaultTimeout = 30 * time.Second

	// DefaultRenderTimeout bounds rendering one page.
	DefaultRenderTimeout = 60 * time.Second

	// DefaultWorkers is the number of pages processed concurrently.
	DefaultWorkers = 1

	// DefaultUserAgent is sent with every request and by the browser.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	// DefaultMaxBodySize limits a single response body.
	DefaultMaxBodySize = 50 * 1024 * 1024

	// DefaultTorStartupTimeout is how long the embedded Tor daemon may take
	// to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Names of settings that can be set explicitly. A setting marked explicit
// is not overridden by the site file.
const (
	FieldMaxPages = "max-pages"
	FieldDelay    = "delay"
)

// Config holds every option of a mirror run.
//
// Design decision: one flat struct, populated from env and flags and then
// passed down explicitly. Nothing reads the environment after loading.
type Config struct {
	// TargetURL is the site to mirror.
	TargetURL string

	// Mode is "proxy", "direct", or empty. Empty selects proxy mode when a
	// proxy base is configured and direct mode otherwise.
	Mode string

	// ProxyBase is the URL prefix of the content-rewriting proxy service.
	ProxyBase string

	// ForwardProxy is an optional http, https, or socks5 proxy all traffic
	// goes through.
	ForwardProxy string

	// UseTor starts an embedded Tor daemon and uses it as the forward proxy.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// OutputDir is where the mirror is written. Empty means
	// <xdg data>/sitemirror/<host>.
	OutputDir string

	// MaxPages caps visited URLs.
	MaxPages int

	// CrawlDelay is the politeness delay after each page.
	CrawlDelay time.Duration

	// NavigationWait is the browser settle time after navigation.
	NavigationWait time.Duration

	// Timeout bounds a single resource download.
	Timeout time.Duration

	// RenderTimeout bounds rendering one page.
	RenderTimeout time.Duration

	// Workers is the number of pages processed concurrently.
	Workers int

	// ResourceRate limits resource requests per second. Zero disables it.
	ResourceRate float64

	// UseBrowser renders pages in headless Chrome. When false, pages are
	// fetched over plain HTTP and scripts are not executed.
	UseBrowser bool

	// SaveHistory records the run in the history database.
	SaveHistory bool

	// HistoryDir holds the history database.
	HistoryDir string

	// ConfigFilePath is an explicit .sitemirror path.
	ConfigFilePath string

	// SiteConfigs holds the loaded site file, if any.
	SiteConfigs *File

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize limits a single response body in bytes.
	MaxBodySize int64

	// Verbose enables debug logging.
	Verbose bool

	explicit map[string]bool
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		TorStartupTimeout: DefaultTorStartupTimeout,
		MaxPages:          DefaultMaxPages,
		CrawlDelay:        DefaultCrawlDelay,
		NavigationWait:    DefaultNavigationWait,
		Timeout:           DefaultTimeout,
		RenderTimeout:     DefaultRenderTimeout,
		Workers:           DefaultWorkers,
		UseBrowser:        true,
		SaveHistory:       true,
		HistoryDir:        XDGDataDir(),
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
	}
}

// MarkExplicit records that field was set by the user, so the site file
// must not override it.
func (c *Config) MarkExplicit(field string) {
	if c.explicit == nil {
		c.explicit = make(map[string]bool)
	}
	c.explicit[field] = true
}

// IsExplicit reports whether field was set by the user.
func (c *Config) IsExplicit(field string) bool {
	return c.explicit[field]
}

// RunMode returns the effective mode.
// An empty Mode selects ModeProxy when ProxyBase is set and ModeDirect
// otherwise; any other value must parse with model.ParseMode.
func (c *Config) RunMode() (model.Mode, error) {
	if strings.TrimSpace(c.Mode) == "" {
		if c.ProxyBase != "" {
			return model.ModeProxy, nil
		}
		return model.ModeDirect, nil
	}
	m, err := model.ParseMode(c.Mode)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	return m, nil
}

// Target parses TargetURL.
func (c *Config) Target() (model.CrawlTarget, error) {
	if strings.TrimSpace(c.TargetURL) == "" {
		return model.CrawlTarget{}, ErrMissingTarget
	}
	return model.NewCrawlTarget(c.TargetURL)
}

// ResolveOutputDir returns OutputDir, or the default directory for target.
func (c *Config) ResolveOutputDir(target model.CrawlTarget) string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return filepath.Join(XDGDataDir(), strings.ReplaceAll(target.Domain, ":", "_"))
}

// ApplySite merges site-file settings that the user did not set explicitly.
//
// Precedence, lowest first: built-in defaults, the site file, the
// environment, flags. Values from the last two are marked with MarkExplicit
// before ApplySite runs, so only unset fields take the site value.
// Headers and cookies are read by the transport straight from sc.
func (c *Config) ApplySite(sc SiteConfig) {
	if sc.MaxPages > 0 && !c.IsExplicit(FieldMaxPages) {
		c.MaxPages = sc.MaxPages
	}
	if sc.Delay > 0 && !c.IsExplicit(FieldDelay) {
		c.CrawlDelay = sc.Delay
	}
}

// XDGDataDir returns the data directory: ~/.local/share/sitemirror on Linux.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the config directory: ~/.config/sitemirror on Linux.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
// Every returned error is, or wraps, one of the sentinels in errors.go, so
// callers can test for a specific problem with errors.Is.
//
// Design decision: Validate runs before any network activity. A run with a
// bad setting fails at once instead of after the browser and Tor started.
func (c *Config) Validate() error {
	if _, err := c.Target(); err != nil {
		return err
	}

	mode, err := c.RunMode()
	if err != nil {
		return err
	}
	if mode == model.ModeProxy && strings.TrimSpace(c.ProxyBase) == "" {
		return ErrMissingProxyBase
	}

	if c.UseTor && c.ForwardProxy != "" {
		return ErrConflictingProxies
	}
	if c.Timeout <= 0 || c.RenderTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CrawlDelay < 0 || c.NavigationWait < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.ResourceRate < 0 {
		return ErrInvalidResourceRate
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}
