package feed_test

import (
	"testing"
	"time"

	"hud/feed"
	"hud/models"

	"github.com/stretchr/testify/assert"
)

func TestCacheKeyRounding(t *testing.T) {
	// Weights that agree to two decimals share an entry.
	a := feed.NewCacheKey("user-1", 20, "", 0.7)
	b := feed.NewCacheKey("user-1", 20, "", 0.70)
	assert.Equal(t, a, b)

	c := feed.NewCacheKey("user-1", 20, "", 0.71)
	assert.NotEqual(t, a, c)
}

func TestCacheKeyRootCursor(t *testing.T) {
	key := feed.NewCacheKey("user-1", 20, "", 0.7)
	assert.Equal(t, "root", key.Cursor)

	key = feed.NewCacheKey("user-1", 20, "2026-01-02T15:04:05Z", 0.7)
	assert.Equal(t, "2026-01-02T15:04:05Z", key.Cursor)
}

func TestCacheHitWithinTTL(t *testing.T) {
	cache := feed.NewCache(16, time.Minute)
	key := feed.NewCacheKey("user-1", 20, "", 0.7)

	payload := &models.FeedResponse{Items: []models.FeedEntry{{ID: "item-1"}}}
	cache.Set(key, payload)

	got, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Same(t, payload, got)
}

func TestCacheMissAfterTTL(t *testing.T) {
	cache := feed.NewCache(16, 30*time.Millisecond)
	key := feed.NewCacheKey("user-1", 20, "", 0.7)

	cache.Set(key, &models.FeedResponse{Items: []models.FeedEntry{}})

	time.Sleep(80 * time.Millisecond)

	_, ok := cache.Get(key)
	assert.False(t, ok)
}

func TestCacheSetReplaces(t *testing.T) {
	cache := feed.NewCache(16, time.Minute)
	key := feed.NewCacheKey("user-1", 20, "", 0.7)

	cache.Set(key, &models.FeedResponse{Items: []models.FeedEntry{{ID: "old"}}})
	cache.Set(key, &models.FeedResponse{Items: []models.FeedEntry{{ID: "new"}}})

	got, ok := cache.Get(key)
	assert.True(t, ok)
	assert.Equal(t, "new", got.Items[0].ID)
}
