package feed_test

import (
	"context"
	"testing"
	"time"

	"hud/feed"
	"hud/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore implements feed.Store and counts page queries so cache behavior
// is observable.
type fakeStore struct {
	sources    []models.Source
	items      []models.SourcedItem
	bookmarked map[string]bool

	listCalls int
	pageCalls int
}

func (f *fakeStore) ListSources(ctx context.Context, userID string) ([]models.Source, error) {
	f.listCalls++
	return f.sources, nil
}

func (f *fakeStore) PageItems(ctx context.Context, userID string, before *time.Time, limit int) ([]models.SourcedItem, error) {
	f.pageCalls++

	var page []models.SourcedItem
	for _, item := range f.items {
		if before != nil {
			if item.PublishedAt == nil || !item.PublishedAt.Before(*before) {
				continue
			}
		}
		page = append(page, item)
		if len(page) == limit {
			break
		}
	}
	return page, nil
}

func (f *fakeStore) BookmarkedItemIDs(ctx context.Context, userID string) (map[string]bool, error) {
	if f.bookmarked == nil {
		return map[string]bool{}, nil
	}
	return f.bookmarked, nil
}

func testItem(id string, publishedAt time.Time, topics []string) models.SourcedItem {
	at := publishedAt
	return models.SourcedItem{
		Item: models.Item{
			ID:          id,
			SourceID:    "src-1",
			Title:       "Title " + id,
			URL:         "https://example.com/" + id,
			PublishedAt: &at,
			FocusTopics: topics,
		},
		SourceName: "Example",
	}
}

func newAssembler(store *fakeStore, jobs chan models.RefreshJob) *feed.Assembler {
	cache := feed.NewCache(16, time.Minute)
	throttler := feed.NewThrottler(5*time.Minute, 15*time.Minute)
	return feed.NewAssembler(store, cache, throttler, jobs)
}

func TestAssembleEmptyFeed(t *testing.T) {
	store := &fakeStore{}
	jobs := make(chan models.RefreshJob, 4)
	assembler := newAssembler(store, jobs)

	resp, err := assembler.Assemble(context.Background(), feed.Query{
		UserID: "user-1", Limit: 20, Weight: 0.7,
	})
	require.NoError(t, err)

	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
	assert.Nil(t, resp.NextCursor)
}

func TestAssembleScoresAndOrder(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		items: []models.SourcedItem{
			testItem("item-1", base, []string{"ai"}),
			testItem("item-2", base.Add(-time.Hour), nil),
		},
		bookmarked: map[string]bool{"item-2": true},
	}
	jobs := make(chan models.RefreshJob, 4)
	assembler := newAssembler(store, jobs)

	resp, err := assembler.Assemble(context.Background(), feed.Query{
		UserID: "user-1", Limit: 20, Weight: 0.7,
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)

	first := resp.Items[0]
	assert.Equal(t, 0.7, first.FocusScore)
	assert.Equal(t, 0.5, first.PopularityScore)
	assert.InDelta(t, 0.7*0.7+0.3*0.5, first.FinalScore, 1e-9)
	assert.False(t, first.IsBookmarked)

	second := resp.Items[1]
	assert.Equal(t, 0.4, second.FocusScore)
	assert.True(t, second.IsBookmarked)

	// Partial page means end of stream.
	assert.Nil(t, resp.NextCursor)
}

func TestAssembleWeightExtremes(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	pop := 0.9
	item := testItem("item-1", base, []string{"ai"})
	item.Metadata.Popularity = &pop

	store := &fakeStore{items: []models.SourcedItem{item}}
	jobs := make(chan models.RefreshJob, 4)
	assembler := newAssembler(store, jobs)

	resp, err := assembler.Assemble(context.Background(), feed.Query{
		UserID: "user-1", Limit: 20, Weight: 1.0,
	})
	require.NoError(t, err)
	assert.InDelta(t, resp.Items[0].FocusScore, resp.Items[0].FinalScore, 1e-9)

	resp, err = assembler.Assemble(context.Background(), feed.Query{
		UserID: "user-1", Limit: 20, Weight: 0.0,
	})
	require.NoError(t, err)
	assert.InDelta(t, resp.Items[0].PopularityScore, resp.Items[0].FinalScore, 1e-9)
}

func TestAssemblePagination(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{
		items: []models.SourcedItem{
			testItem("item-1", base, nil),
			testItem("item-2", base.Add(-time.Hour), nil),
			testItem("item-3", base.Add(-2*time.Hour), nil),
		},
	}
	jobs := make(chan models.RefreshJob, 4)
	assembler := newAssembler(store, jobs)

	resp, err := assembler.Assemble(context.Background(), feed.Query{
		UserID: "user-1", Limit: 2, Weight: 0.7,
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	require.NotNil(t, resp.NextCursor)

	cursor, err := time.Parse(time.RFC3339, *resp.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, base.Add(-time.Hour), cursor.UTC())

	resp, err = assembler.Assemble(context.Background(), feed.Query{
		UserID: "user-1", Limit: 2, Before: &cursor, Weight: 0.7,
	})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "item-3", resp.Items[0].ID)
	assert.Nil(t, resp.NextCursor)

	// No item at or after the cursor boundary.
	for _, entry := range resp.Items {
		require.NotNil(t, entry.PublishedAt)
		assert.True(t, entry.PublishedAt.Before(cursor))
	}
}

func TestAssembleCacheAvoidsSecondQuery(t *testing.T) {
	store := &fakeStore{
		items: []models.SourcedItem{
			testItem("item-1", time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), nil),
		},
	}
	jobs := make(chan models.RefreshJob, 4)
	assembler := newAssembler(store, jobs)

	query := feed.Query{UserID: "user-1", Limit: 20, Weight: 0.7}

	first, err := assembler.Assemble(context.Background(), query)
	require.NoError(t, err)
	second, err := assembler.Assemble(context.Background(), query)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, store.pageCalls)

	// A different weight is a different key.
	_, err = assembler.Assemble(context.Background(), feed.Query{UserID: "user-1", Limit: 20, Weight: 0.5})
	require.NoError(t, err)
	assert.Equal(t, 2, store.pageCalls)
}

func TestAssembleTriggersRefreshForStaleSources(t *testing.T) {
	polled := time.Now().Add(-time.Minute)
	store := &fakeStore{
		sources: []models.Source{
			{ID: "stale", Kind: models.KindRSS},
			{ID: "fresh", Kind: models.KindRSS, LastPolledAt: &polled},
			{ID: "tw", Kind: models.KindTwitter},
		},
	}
	jobs := make(chan models.RefreshJob, 4)
	assembler := newAssembler(store, jobs)

	_, err := assembler.Assemble(context.Background(), feed.Query{UserID: "user-1", Limit: 20, Weight: 0.7})
	require.NoError(t, err)

	require.Len(t, jobs, 1)
	job := <-jobs
	assert.Equal(t, "stale", job.SourceID)
}

func TestAssembleTweetEnrichment(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	withMetrics := testItem("item-1", base, nil)
	withMetrics.Metadata.Tweet = &models.TweetMetadata{
		AuthorHandle: "@RundownAI",
		Likes:        120,
		Retweets:     14,
	}

	zeroMetrics := testItem("item-2", base.Add(-time.Hour), nil)
	zeroMetrics.Metadata.Tweet = &models.TweetMetadata{AuthorHandle: "someone"}

	store := &fakeStore{items: []models.SourcedItem{withMetrics, zeroMetrics}}
	jobs := make(chan models.RefreshJob, 4)
	assembler := newAssembler(store, jobs)

	resp, err := assembler.Assemble(context.Background(), feed.Query{UserID: "user-1", Limit: 20, Weight: 0.7})
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)

	assert.Equal(t, "@rundownai", resp.Items[0].AuthorHandle)
	require.NotNil(t, resp.Items[0].Metrics)
	assert.Equal(t, int64(120), resp.Items[0].Metrics.Likes)

	// All-zero engagement counts are omitted entirely.
	assert.Equal(t, "@someone", resp.Items[1].AuthorHandle)
	assert.Nil(t, resp.Items[1].Metrics)
}
