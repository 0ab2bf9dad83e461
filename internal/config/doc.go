// Package config holds the settings of a mirror run and loads them from the
// environment, a .env file, and the per-site .sitemirror YAML file.
//
// Precedence, lowest first: built-in defaults, the site file, environment
// variables (including .env), command-line flags.
package config
