package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvTargetURL    = "TARGET_URL"
	EnvProxyBase    = "CROCSEEK_PROXY_BASE"
	EnvForwardProxy = "ADDITIONAL_PROXY_URL"
	EnvSiteFolder   = "SITE_FOLDER"
	EnvMode         = "SITEMIRROR_MODE"
	EnvMaxPages     = "SITEMIRROR_MAX_PAGES"
	EnvDelay        = "SITEMIRROR_DELAY"
	EnvWorkers      = "SITEMIRROR_WORKERS"
)

// DefaultEnvFile is the dotenv file loaded from the working directory.
const DefaultEnvFile = ".env"

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads a dotenv file into the process environment.
//
// Parameters:
//   - path: The file to load; "" means DefaultEnvFile in the working directory
//
// Variables already present in the environment win over the file, so a
// shell export always overrides .env. A missing file is not an error: the
// file is optional and most runs configure through flags.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides c with the variables lookup returns.
//
// Design decision: the environment is read through a LookupFunc instead of
// os.Getenv so that tests can pass a map and never touch process state.
// Numeric and duration variables that were set mark their field explicit,
// which keeps the site file from overriding them in ApplySite.
//
// Returns an error wrapping ErrInvalidEnv when a variable cannot be parsed.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str(EnvTargetURL, &c.TargetURL)
	str(EnvProxyBase, &c.ProxyBase)
	str(EnvForwardProxy, &c.ForwardProxy)
	str(EnvSiteFolder, &c.OutputDir)
	str(EnvMode, &c.Mode)

	if v, ok := lookup(EnvMaxPages); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvMaxPages, v)
		}
		c.MaxPages = n
		c.MarkExplicit(FieldMaxPages)
	}
	if v, ok := lookup(EnvDelay); ok && v != "" {
		d, err := parseDelay(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvDelay, v)
		}
		c.CrawlDelay = d
		c.MarkExplicit(FieldDelay)
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidEnv, EnvWorkers, v)
		}
		c.Workers = n
	}
	return nil
}

// parseDelay accepts a Go duration ("1.5s") or a bare number of seconds.
func parseDelay(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}
