// Package accumulator collects the URLs that survived classification.
package accumulator

import "sync"

// Accumulator is an append-only, concurrency-safe list of ALIVE URLs shared
// by every chunk worker of a run.
type Accumulator struct {
	mu   sync.RWMutex
	urls []string
}

// New constructs an empty Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// Add appends url. Calls from different goroutines never lose entries.
func (a *Accumulator) Add(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.urls = append(a.urls, url)
}

// Len reports how many URLs have been added.
func (a *Accumulator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.urls)
}

// Snapshot returns a copy of the URLs in the order they were added.
func (a *Accumulator) Snapshot() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]string(nil), a.urls...)
}
