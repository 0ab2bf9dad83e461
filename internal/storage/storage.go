// Package storage writes captured files under the output directory of a run.
//
// Paths handed to Store are slash-separated and relative to the root, as
// produced by package pathmap. Store refuses any path that would resolve
// outside the root.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that escape the output directory.
var ErrOutsideRoot = errors.New("path escapes the output directory")

// PersistError reports a failed write. The crawl logs it and carries on.
type PersistError struct {
	Path string
	Err  error
}

// Error implements error.
func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistError) Unwrap() error {
	return e.Err
}

// Store writes files below a root directory.
type Store struct {
	root string
}

// New creates root if needed and returns a Store for it.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute output directory.
func (s *Store) Root() string {
	return s.root
}

// Prepare creates the given subdirectories up front.
func (s *Store) Prepare(dirs ...string) error {
	for _, d := range dirs {
		p, err := s.resolve(d)
		if err != nil {
			return &PersistError{Path: d, Err: err}
		}
		if err := os.MkdirAll(p, 0o750); err != nil {
			return &PersistError{Path: d, Err: err}
		}
	}
	return nil
}

// Write stores data at rel, creating parent directories. An existing file
// is replaced.
func (s *Store) Write(rel string, data []byte) error {
	p, err := s.resolve(rel)
	if err != nil {
		return &PersistError{Path: rel, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return &PersistError{Path: rel, Err: err}
	}
	if err := os.WriteFile(p, data, 0o644); err != nil { //nolint:gosec // mirrored files are meant to be served
		return &PersistError{Path: rel, Err: err}
	}
	return nil
}

// WriteText stores text encoded as UTF-8.
func (s *Store) WriteText(rel, text string) error {
	return s.Write(rel, []byte(text))
}

// Read returns the content stored at rel.
func (s *Store) Read(rel string) ([]byte, error) {
	p, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Clean(p))
}

// Path returns the absolute file path for rel.
func (s *Store) Path(rel string) (string, error) {
	return s.resolve(rel)
}

func (s *Store) resolve(rel string) (string, error) {
	p := filepath.Join(s.root, filepath.FromSlash(rel))
	if p != s.root && !strings.HasPrefix(p, s.root+string(filepath.Separator)) {
		return "", ErrOutsideRoot
	}
	return p, nil
}
