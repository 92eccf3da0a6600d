package feed

import (
	"strconv"
	"time"

	"hud/models"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hud_feed_cache_hits_total",
		Help: "Number of feed page requests served from cache",
	})
	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hud_feed_cache_misses_total",
		Help: "Number of feed page requests that missed the cache",
	})
)

// CacheKey identifies one assembled feed page. The blend weight is rounded to
// two decimals so equivalent requests share an entry.
type CacheKey struct {
	UserID string
	Limit  int
	Cursor string
	Weight string
}

// NewCacheKey builds a key from request parameters. An absent cursor is keyed
// as "root".
func NewCacheKey(userID string, limit int, cursor string, weight float64) CacheKey {
	if cursor == "" {
		cursor = "root"
	}
	return CacheKey{
		UserID: userID,
		Limit:  limit,
		Cursor: cursor,
		Weight: strconv.FormatFloat(weight, 'f', 2, 64),
	}
}

// Cache memoizes assembled feed pages for a short TTL. Entries are never
// updated in place, always replaced. Bounded so abandoned keys cannot grow
// without limit.
type Cache struct {
	lru *expirable.LRU[CacheKey, *models.FeedResponse]
}

func NewCache(maxEntries int, ttl time.Duration) *Cache {
	return &Cache{
		lru: expirable.NewLRU[CacheKey, *models.FeedResponse](maxEntries, nil, ttl),
	}
}

// Get returns the cached page for key, or a miss once the TTL has elapsed.
func (c *Cache) Get(key CacheKey) (*models.FeedResponse, bool) {
	payload, ok := c.lru.Get(key)
	if ok {
		cacheHits.Inc()
		return payload, true
	}
	cacheMisses.Inc()
	return nil, false
}

// Set unconditionally overwrites the entry for key.
func (c *Cache) Set(key CacheKey, payload *models.FeedResponse) {
	c.lru.Add(key, payload)
}
