// Package cache holds previously fetched shelf payloads keyed by owning
// identity or shelf. It performs no I/O; the remote stays the source of truth.
package cache

import (
	"sync"
	"time"
)

// Entry is immutable once inserted. Replacing a value means Set again.
type Entry struct {
	Key        Key
	Value      any
	InsertedAt time.Time
}

// ShelfContainer is implemented by collection payloads so InvalidateForShelf
// can tell which entries might hold a shelf.
type ShelfContainer interface {
	ContainsShelf(id string) bool
}

// Cloner lets Set and Get hand out copies of slice-backed payloads.
type Cloner[T any] interface {
	Clone() T
}

type Option func(*Cache)

// WithTTL expires entries after d. Zero disables expiry.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		c.ttl = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache is safe for concurrent use. Construct one per process at the
// composition root and inject it.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]Entry
	ttl     time.Duration
	now     func() time.Time
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[Key]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value stored under key. Expired entries are misses.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.InsertedAt.Equal(e.InsertedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.Value, true
}

// Lookup is Get with the value asserted to T. A value of another type is a miss.
func Lookup[T any](c *Cache, key Key) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	if cl, ok := any(t).(Cloner[T]); ok {
		return cl.Clone(), true
	}
	return t, true
}

// Set inserts value under key, replacing any previous entry wholesale.
// The caller must not mutate value afterwards.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = Entry{Key: key, Value: value, InsertedAt: c.now()}
}

func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateForPrincipal drops every entry scoped to identity.
func (c *Cache) InvalidateForPrincipal(identity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Kind == KindShelves && k.Scope == identity {
			delete(c.entries, k)
		}
	}
}

// InvalidateForShelf drops entries scoped to shelfID and every collection
// that holds it. Collections whose payload cannot be inspected are dropped too.
func (c *Cache) InvalidateForShelf(shelfID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		switch {
		case (k.Kind == KindShelf || k.Kind == KindEditors) && k.Scope == shelfID:
			delete(c.entries, k)
		case k.Kind.collection():
			sc, ok := e.Value.(ShelfContainer)
			if !ok || sc.ContainsShelf(shelfID) {
				delete(c.entries, k)
			}
		}
	}
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]Entry)
}

// Len counts entries, expired ones included until they are next read.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Keys lists the live keys in no particular order.
func (c *Cache) Keys() []Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]Key, 0, len(c.entries))
	for k, e := range c.entries {
		if !c.expired(e) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.InsertedAt) >= c.ttl
}
