package config

import "errors"

// Configuration errors. Every error returned by Config.Validate wraps one of
// these, so callers can match them with errors.Is and exit before any
// network activity.
//
// Design decision: sentinel errors rather than a ConfigError struct. The
// command layer only needs to know that the run cannot start and print why.
var (
	// ErrMissingTarget is returned when neither TARGET_URL nor an argument names a site.
	ErrMissingTarget = errors.New("no target specified: set TARGET_URL or pass a URL")

	// ErrMissingProxyBase is returned in proxy mode without CROCSEEK_PROXY_BASE.
	ErrMissingProxyBase = errors.New("proxy mode requires a proxy base: set CROCSEEK_PROXY_BASE or --proxy-base")

	// ErrInvalidMode is returned for a mode other than proxy or direct.
	ErrInvalidMode = errors.New("invalid mode: must be proxy or direct")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxPages is returned when the visited cap is not positive.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidResourceRate is returned when the resource rate is negative.
	ErrInvalidResourceRate = errors.New("invalid resource rate: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the body limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingProxies is returned when both --tor and a forward proxy are set.
	ErrConflictingProxies = errors.New("conflicting proxies: --tor and a forward proxy cannot be used together")

	// ErrInvalidEnv is returned when an environment variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
