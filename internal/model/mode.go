package model

import (
	"fmt"
	"strings"
)

// Mode selects how pages and resources reach the target site.
// Exactly one mode is active for a run.
type Mode int

const (
	// ModeDirect fetches origin URLs as-is. A forwarding proxy, if any,
	// is configured on the transport and is invisible to URLs.
	ModeDirect Mode = iota

	// ModeProxy fetches every URL through a URL-prefix rewriting proxy.
	// The proxied form of each origin URL is recorded in the manifest.
	ModeProxy
)

// String returns the lowercase name used in configuration and reports.
func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeProxy:
		return "proxy"
	default:
		return "unknown"
	}
}

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "direct":
		return ModeDirect, nil
	case "proxy":
		return ModeProxy, nil
	default:
		return ModeDirect, fmt.Errorf("unknown mode %q (want proxy or direct)", s)
	}
}
