package model

import (
	"sort"
	"sync"
)

// DefaultMaxVisits is the default upper bound on the visited set.
const DefaultMaxVisits = 1000

// ClaimResult reports the outcome of CrawlState.Claim.
type ClaimResult int

const (
	// Claimed means the caller now owns the URL and must fetch it.
	Claimed ClaimResult = iota
	// AlreadyVisited means another caller claimed the URL earlier in the run.
	AlreadyVisited
	// CapReached means the visited set is full and nothing more may be claimed.
	CapReached
)

// String returns a short label for logs.
func (r ClaimResult) String() string {
	switch r {
	case Claimed:
		return "claimed"
	case AlreadyVisited:
		return "already_visited"
	case CapReached:
		return "cap_reached"
	default:
		return "unknown"
	}
}

// FileEntry records where one captured URL was written.
type FileEntry struct {
	URL      string
	Path     string
	Category Category
}

// CrawlState is the mutable state of one run: the visited set, the
// origin-to-proxied URL mapping, the resource inventory, and the files written.
//
// Pages and resources share one visited set, so the cap bounds the total
// number of fetches. The set only grows.
//
// All methods are safe for concurrent use.
type CrawlState struct {
	mu        sync.Mutex
	maxVisits int
	visited   map[string]struct{}
	mapping   map[string]string
	inventory map[Category]map[string]struct{}
	files     map[string]FileEntry
	pages     []string
}

// NewCrawlState creates an empty state. A maxVisits of zero or less selects
// DefaultMaxVisits.
func NewCrawlState(maxVisits int) *CrawlState {
	if maxVisits <= 0 {
		maxVisits = DefaultMaxVisits
	}
	inventory := make(map[Category]map[string]struct{}, len(ResourceCategories))
	for _, c := range ResourceCategories {
		inventory[c] = make(map[string]struct{})
	}
	return &CrawlState{
		maxVisits: maxVisits,
		visited:   make(map[string]struct{}),
		mapping:   make(map[string]string),
		inventory: inventory,
		files:     make(map[string]FileEntry),
	}
}

// Claim marks u as visited if it is not already and the cap has room.
// The check and the insert happen under one lock, so exactly one caller
// receives Claimed for a given URL.
func (s *CrawlState) Claim(u string) ClaimResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.visited[u]; ok {
		return AlreadyVisited
	}
	if len(s.visited) >= s.maxVisits {
		return CapReached
	}
	s.visited[u] = struct{}{}
	return Claimed
}

// IsVisited reports whether u has been claimed.
func (s *CrawlState) IsVisited(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.visited[u]
	return ok
}

// CapReached reports whether the visited set has reached its bound.
func (s *CrawlState) CapReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited) >= s.maxVisits
}

// MaxVisits returns the configured cap.
func (s *CrawlState) MaxVisits() int {
	return s.maxVisits
}

// VisitedCount returns the size of the visited set.
func (s *CrawlState) VisitedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// Visited returns a sorted snapshot of the visited set.
func (s *CrawlState) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.visited)
}

// MappingOrStore returns the proxied URL recorded for origin, storing proxied
// first if there is none. Repeated calls for one origin always return the
// first stored value.
func (s *CrawlState) MappingOrStore(origin, proxied string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.mapping[origin]; ok {
		return existing
	}
	s.mapping[origin] = proxied
	return proxied
}

// Mapping returns a copy of the origin-to-proxied URL mapping.
func (s *CrawlState) Mapping() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.mapping))
	for k, v := range s.mapping {
		out[k] = v
	}
	return out
}

// AddResource records u in the inventory of category c.
// Pages are not part of the inventory and are ignored.
func (s *CrawlState) AddResource(c Category, u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.inventory[c]; ok {
		set[u] = struct{}{}
	}
}

// HasResource reports whether u is in the inventory of category c.
func (s *CrawlState) HasResource(c Category, u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inventory[c][u]
	return ok
}

// Resources returns the sorted inventory of category c.
func (s *CrawlState) Resources(c Category) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedKeys(s.inventory[c])
}

// RecordFile records that u was written to the local path p.
func (s *CrawlState) RecordFile(u, p string, c Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[u] = FileEntry{URL: u, Path: p, Category: c}
	if c == CategoryPage {
		s.pages = append(s.pages, u)
	}
}

// Files returns every recorded file, sorted by URL.
func (s *CrawlState) Files() []FileEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileEntry, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// SavedPages returns the pages that were written, in the order they were saved.
func (s *CrawlState) SavedPages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.pages))
	copy(out, s.pages)
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
