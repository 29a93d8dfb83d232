package router

import (
	lru "github.com/hashicorp/golang-lru"
)

// MatchCache is a bounded LRU cache of match results keyed by pathname.
// Trees are immutable, so entries never go stale for the tree that owns
// the cache.
type MatchCache struct {
	cache *lru.Cache
}

// NewMatchCache creates a cache holding up to size entries.
func NewMatchCache(size int) (*MatchCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &MatchCache{cache: c}, nil
}

// Get returns the cached matches for pathname. A cached nil means the
// pathname is known not to match.
func (c *MatchCache) Get(pathname string) ([]Match, bool) {
	v, ok := c.cache.Get(pathname)
	if !ok {
		return nil, false
	}
	return v.([]Match), true
}

// Add stores matches for pathname.
func (c *MatchCache) Add(pathname string, matches []Match) {
	c.cache.Add(pathname, matches)
}

// Len returns the number of cached pathnames.
func (c *MatchCache) Len() int {
	return c.cache.Len()
}

// Purge removes every entry.
func (c *MatchCache) Purge() {
	c.cache.Purge()
}
