package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned when a response arrives after its view moved
// on to another key. The response is discarded.
var ErrSuperseded = errors.New("response superseded")

// Result is a value loaded through a View.
type Result[T any] struct {
	Value T

	// Stale is set when Value is last-known-good data served after a
	// failed fetch.
	Stale bool

	// Cached is set when Value came from the cache without a fetch.
	Cached bool
}

// View is one independently loaded read view. It remembers the key of the
// latest request so responses for other keys can be dropped.
type View[T any] struct {
	cache *Cache

	mu      sync.Mutex
	current Key
}

// NewView creates a view over c.
func NewView[T any](c *Cache) *View[T] {
	return &View[T]{cache: c}
}

// Current returns the key of the latest request.
func (v *View[T]) Current() Key {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Load serves key from the cache when fresh and otherwise calls fetch. If
// the view moved to another key while fetch was running, the response is
// dropped with ErrSuperseded. A failed fetch returns the cached value, if any,
// flagged stale together with the error.
func (v *View[T]) Load(ctx context.Context, key Key, fetch func(context.Context) (T, error)) (Result[T], error) {
	v.mu.Lock()
	v.current = key
	v.mu.Unlock()

	cached, hit := v.cache.Get(key)
	if hit && !cached.Stale {
		if val, ok := cached.Value.(T); ok {
			return Result[T]{Value: val, Cached: true}, nil
		}
	}

	gen := v.cache.Generation(key.Tag)
	val, err := fetch(ctx)

	v.mu.Lock()
	superseded := v.current != key
	v.mu.Unlock()
	if superseded {
		return Result[T]{}, ErrSuperseded
	}

	if err != nil {
		if hit {
			if old, ok := cached.Value.(T); ok {
				return Result[T]{Value: old, Stale: true}, err
			}
		}
		return Result[T]{}, err
	}

	v.cache.Put(key, val, gen)
	return Result[T]{Value: val}, nil
}
