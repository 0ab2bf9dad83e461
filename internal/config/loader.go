package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the site file name searched for.
const DefaultConfigFile = ".sitemirror"

// ErrConfigNotFound is returned when the site file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile reads and parses a site file.
//
// Returns ErrConfigNotFound when path does not exist, and the yaml error when
// the file cannot be parsed. The returned File always has a non-nil Sites map.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}
	return &cf, nil
}

// FindConfigFile searches for a site file.
//
// Search order:
//  1. configPath, if non-empty (and only it: an explicit path is never
//     replaced by a discovered one)
//  2. .sitemirror in the current working directory
//  3. .sitemirror in the home directory
//  4. config.yaml in the XDG config directory
//
// Returns the first path that exists, or "" when there is none.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
