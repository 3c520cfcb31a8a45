// Package cache holds the read views derived from the task store. Entries
// are grouped under coarse (tenant, kind) tags; invalidating a tag marks
// every variant of that view stale without dropping its value.
package cache

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mitchellh/hashstructure/v2"
	"github.com/rs/zerolog"
)

// Kind names a cached view.
type Kind string

const (
	KindList          Kind = "task.list"
	KindDetail        Kind = "task.detail"
	KindCountStatus   Kind = "task.count.status"
	KindCountCategory Kind = "task.count.category"
	KindCountManager  Kind = "task.count.manager"
	KindTaxonomy      Kind = "task.category"
	KindByType        Kind = "task.by_type"
	KindCustomer      Kind = "task.customer"
)

// CountKinds are the three aggregate count views.
var CountKinds = []Kind{KindCountStatus, KindCountCategory, KindCountManager}

// Tag is the coarse invalidation key.
type Tag struct {
	Tenant string
	Kind   Kind
}

func (t Tag) String() string { return t.Tenant + "/" + string(t.Kind) }

// Key identifies one variant of a view: the tag plus a hash of the request
// parameters.
type Key struct {
	Tag
	Variant uint64
}

// NewKey hashes params into a key of kind for tenant.
func NewKey(tenant string, kind Kind, params any) (Key, error) {
	h, err := hashstructure.Hash(params, hashstructure.FormatV2, nil)
	if err != nil {
		return Key{}, fmt.Errorf("hash %s params: %w", kind, err)
	}
	return Key{Tag: Tag{Tenant: tenant, Kind: kind}, Variant: h}, nil
}

type entry struct {
	value     any
	stale     bool
	fetchedAt time.Time
}

// Entry is a snapshot of a cached value.
type Entry struct {
	Value     any
	Stale     bool
	FetchedAt time.Time
}

// Cache is a bounded LRU of view entries with a tag index.
type Cache struct {
	log zerolog.Logger
	now func() time.Time

	mu   sync.Mutex
	lru  *lru.Cache[Key, *entry]
	tags map[Tag]map[Key]struct{}
	gens map[Tag]uint64
}

// New creates a cache holding at most size entries.
func New(size int, log zerolog.Logger) (*Cache, error) {
	c := &Cache{
		log:  log,
		now:  time.Now,
		tags: make(map[Tag]map[Key]struct{}),
		gens: make(map[Tag]uint64),
	}

	l, err := lru.NewWithEvict[Key, *entry](size, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c.lru = l
	return c, nil
}

// onEvict runs inside lru calls made with c.mu held.
func (c *Cache) onEvict(key Key, _ *entry) {
	keys := c.tags[key.Tag]
	delete(keys, key)
	if len(keys) == 0 {
		delete(c.tags, key.Tag)
	}
}

// Get returns the entry stored under key.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		return Entry{}, false
	}
	return Entry{Value: e.value, Stale: e.stale, FetchedAt: e.fetchedAt}, true
}

// Generation returns the invalidation counter of tag. Pass it to Put to
// detect invalidations that happened while a fetch was in flight.
func (c *Cache) Generation(tag Tag) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[tag]
}

// Put stores value under key. When tag of key was invalidated after gen
// was read, the value is stored already stale.
func (c *Cache) Put(key Key, value any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := c.gens[key.Tag] != gen
	c.lru.Add(key, &entry{value: value, stale: stale, fetchedAt: c.now()})

	keys, ok := c.tags[key.Tag]
	if !ok {
		keys = make(map[Key]struct{})
		c.tags[key.Tag] = keys
	}
	keys[key] = struct{}{}
}

// Invalidate marks every variant of each tag stale and returns how many
// entries were affected. Stale values stay readable as last-known-good.
func (c *Cache) Invalidate(tags ...Tag) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, tag := range tags {
		c.gens[tag]++
		for key := range c.tags[tag] {
			if e, ok := c.lru.Peek(key); ok && !e.stale {
				e.stale = true
				n++
			}
		}
	}

	c.log.Debug().Int("entries", n).Interface("tags", tags).Msg("invalidated")
	return n
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Variants returns the number of cached variants under tag.
func (c *Cache) Variants(tag Tag) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tags[tag])
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
