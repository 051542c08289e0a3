// Package tagcache caches dist-tag maps fetched during the version
// calculation step, so the snapshot builder runs against memory and the
// missing-entry precondition is checkable without network access.
package tagcache

import (
	"context"
	"sort"

	gocache "github.com/patrickmn/go-cache"
)

// Source fetches a package's dist-tag map from the live registry.
type Source interface {
	DistTags(ctx context.Context, name string) (map[string]string, error)
}

// Cache is a read-through dist-tag cache. Get never touches the network;
// Fetch fills the cache on a miss. Entries do not expire within a run.
type Cache struct {
	source Source
	cache  *gocache.Cache
}

// New creates a cache over source.
func New(source Source) *Cache {
	return &Cache{
		source: source,
		cache:  gocache.New(gocache.NoExpiration, 0),
	}
}

// Get returns the cached dist-tag map for key, if present.
func (c *Cache) Get(key string) (map[string]string, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]string)
	return m, ok
}

// Fetch returns the dist-tag map for key, filling the cache on a miss.
func (c *Cache) Fetch(ctx context.Context, key string) (map[string]string, error) {
	if m, ok := c.Get(key); ok {
		return m, nil
	}
	m, err := c.source.DistTags(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, m, gocache.NoExpiration)
	return m, nil
}

// Put seeds the cache directly, for upstream steps that already hold the
// tag map.
func (c *Cache) Put(key string, tags map[string]string) {
	c.cache.Set(key, tags, gocache.NoExpiration)
}

// Keys returns every cached key, sorted.
func (c *Cache) Keys() []string {
	items := c.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
