package config

import (
	"maps"
	"time"
)

// SiteConfig holds per-site crawl settings.
// Fields left at their zero value fall back to the defaults section and then
// to the built-in defaults.
type SiteConfig struct {
	// Cookie is sent with every request to the site: "a=1; b=2".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra request headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are path globs never crawled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns, when set, restrict crawling to matching paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// MaxPages overrides the visited cap.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Delay overrides the politeness delay ("500ms", "2s").
	Delay time.Duration `yaml:"delay,omitempty"`
}

// File is the structure of a .sitemirror file.
type File struct {
	// Sites maps a host, including a non-default port, to its settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the defaults with the host entry; settings present in the host
// entry win, and headers are merged key by key with the host's values
// overriding the defaults.
//
// The host must match the map key exactly, including a non-default port
// ("localhost:8080"). An unknown host gets the defaults alone.
//
// The returned Headers map is a copy, so callers may modify it.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}
	if site.Cookie != "" {
		result.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(site.Headers))
		}
		maps.Copy(result.Headers, site.Headers)
	}
	if len(site.IgnorePatterns) > 0 {
		result.IgnorePatterns = site.IgnorePatterns
	}
	if len(site.FollowPatterns) > 0 {
		result.FollowPatterns = site.FollowPatterns
	}
	if site.MaxPages != 0 {
		result.MaxPages = site.MaxPages
	}
	if site.Delay != 0 {
		result.Delay = site.Delay
	}
	return result
}
