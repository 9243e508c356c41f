// Package docstore persists each content collection as one JSON array
// document in a remote store. Reads go through a process-wide TTL cache;
// writes overwrite the whole document and refresh the cache entry.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"
)

// ErrNotFound reports that a document id has no backing document yet.
var ErrNotFound = errors.New("document not found")

// Backend reads and writes whole documents by their external id.
type Backend interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
	Store(ctx context.Context, id string, data []byte) error
	Create(ctx context.Context, id string, data []byte) error
	Ping(ctx context.Context) error
}

type cacheEntry struct {
	data    any
	fetched time.Time
}

// Cache is the process-wide read-through cache shared by all collections.
// Entries expire after the freshness window; a successful write replaces the
// entry immediately and, when an invalidator is wired, busts peer caches.
type Cache struct {
	mu          sync.Mutex
	ttl         time.Duration
	entries     map[string]cacheEntry
	invalidator *Invalidator
	now         func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// SetInvalidator wires cross-process bust-on-write and starts dropping local
// entries when peers announce a save.
func (c *Cache) SetInvalidator(ctx context.Context, inv *Invalidator) {
	c.mu.Lock()
	c.invalidator = inv
	c.mu.Unlock()
	inv.Listen(ctx, c.Drop)
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.fetched) >= c.ttl {
		return nil, false
	}
	return entry.data, true
}

func (c *Cache) put(key string, data any) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{data: data, fetched: c.now()}
	c.mu.Unlock()
}

// Drop removes a cache entry so the next read hits the backend.
func (c *Cache) Drop(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) announce(ctx context.Context, key string) {
	c.mu.Lock()
	inv := c.invalidator
	c.mu.Unlock()
	if inv == nil {
		return
	}
	if err := inv.Publish(ctx, key); err != nil {
		log.Printf("docstore: announce %s: %v", key, err)
	}
}

// Collection is a typed accessor for one collection document.
type Collection[T any] struct {
	backend Backend
	cache   *Cache
	id      string // external document id
	key     string // collection name, doubles as the cache key
}

func NewCollection[T any](backend Backend, cache *Cache, id, key string) *Collection[T] {
	return &Collection[T]{backend: backend, cache: cache, id: id, key: key}
}

// Get returns the collection, served from cache while the entry is fresh.
// The returned slice is detached from the cache entry; callers may mutate it
// without affecting later reads. A missing backing document is created lazily
// (best effort) and reported as an empty collection; any other failure is
// returned to the caller.
func (c *Collection[T]) Get(ctx context.Context) ([]T, error) {
	if cached, ok := c.cache.get(c.key); ok {
		return slices.Clone(cached.([]T)), nil
	}

	raw, err := c.backend.Fetch(ctx, c.id)
	if errors.Is(err, ErrNotFound) {
		c.createIfMissing(ctx)
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.key, err)
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	c.cache.put(c.key, slices.Clone(items))
	return items, nil
}

// Save overwrites the backing document with the given records. On success
// the cache entry is replaced and peers are told to drop theirs; on failure
// the previous cache entry is left untouched.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.backend.Store(ctx, c.id, data); err != nil {
		return fmt.Errorf("write %s: %w", c.key, err)
	}
	c.cache.put(c.key, slices.Clone(items))
	c.cache.announce(ctx, c.key)
	return nil
}

// Key returns the collection name.
func (c *Collection[T]) Key() string {
	return c.key
}

func (c *Collection[T]) createIfMissing(ctx context.Context) {
	if err := c.backend.Create(ctx, c.id, []byte("[]")); err != nil {
		log.Printf("docstore: create %s (%s): %v", c.key, c.id, err)
		return
	}
	log.Printf("docstore: created empty document for %s", c.key)
	c.cache.put(c.key, []T{})
}
