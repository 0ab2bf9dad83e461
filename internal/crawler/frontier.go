package crawler

import "sync"

// Frontier is the FIFO queue of page URLs waiting to be crawled.
// A URL is admitted at most once for the lifetime of the Frontier, even
// after it has been popped.
type Frontier struct {
	mu       sync.Mutex
	queue    []string
	admitted map[string]struct{}
}

// NewFrontier returns an empty Frontier.
func NewFrontier() *Frontier {
	return &Frontier{admitted: make(map[string]struct{})}
}

// Push appends u unless it was admitted before. It reports whether u was added.
func (f *Frontier) Push(u string) bool {
	if u == "" {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.admitted[u]; ok {
		return false
	}
	f.admitted[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

// Pop removes and returns the oldest URL.
func (f *Frontier) Pop() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return "", false
	}
	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	return u, true
}

// Requeue puts u back at the head of the queue. It is used when a popped
// URL could not be claimed and must stay pending.
func (f *Frontier) Requeue(u string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append([]string{u}, f.queue...)
}

// Len returns the number of pending URLs.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}
