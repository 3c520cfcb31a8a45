package filter

import (
	"net/url"
	"sync"
)

// Location is the externally observable, navigable address that holds the
// encoded filter. It is the single source of truth for filter state.
type Location interface {
	// Query returns the current address parameters. A malformed address
	// returns an error together with whatever could be parsed.
	Query() (url.Values, error)

	// Push navigates to v, adding a history entry.
	Push(v url.Values)

	// Replace swaps the current entry for v.
	Replace(v url.Values)

	// Subscribe registers fn for every address change, including
	// back/forward navigation. The returned func unsubscribes.
	Subscribe(fn func(url.Values, error)) func()
}

// History is an in-memory Location with back/forward navigation.
type History struct {
	mu      sync.Mutex
	entries []string
	index   int
	subs    map[int]func(url.Values, error)
	nextSub int
}

var _ Location = (*History)(nil)

// NewHistory creates a history positioned at the raw query string initial.
func NewHistory(initial string) *History {
	return &History{
		entries: []string{initial},
		subs:    make(map[int]func(url.Values, error)),
	}
}

// Query returns the parameters of the current entry.
func (h *History) Query() (url.Values, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return url.ParseQuery(h.entries[h.index])
}

// String returns the raw query string of the current entry.
func (h *History) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Push drops any forward entries and appends v.
func (h *History) Push(v url.Values) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], v.Encode())
	h.index++
	h.mu.Unlock()
	h.notify()
}

// Replace overwrites the current entry.
func (h *History) Replace(v url.Values) {
	h.mu.Lock()
	h.entries[h.index] = v.Encode()
	h.mu.Unlock()
	h.notify()
}

// Navigate pushes a raw query string, as when an address is pasted.
func (h *History) Navigate(raw string) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], raw)
	h.index++
	h.mu.Unlock()
	h.notify()
}

// Back moves one entry back. It reports false at the first entry.
func (h *History) Back() bool {
	h.mu.Lock()
	if h.index == 0 {
		h.mu.Unlock()
		return false
	}
	h.index--
	h.mu.Unlock()
	h.notify()
	return true
}

// Forward moves one entry forward. It reports false at the last entry.
func (h *History) Forward() bool {
	h.mu.Lock()
	if h.index == len(h.entries)-1 {
		h.mu.Unlock()
		return false
	}
	h.index++
	h.mu.Unlock()
	h.notify()
	return true
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

func (h *History) Subscribe(fn func(url.Values, error)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *History) notify() {
	h.mu.Lock()
	v, err := url.ParseQuery(h.entries[h.index])
	subs := make([]func(url.Values, error), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.mu.Unlock()

	for _, fn := range subs {
		fn(v, err)
	}
}
