package feed

import (
	"context"
	"fmt"
	"time"

	"hud/handles"
	"hud/models"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Store is the narrow read surface the assembler needs from the database.
type Store interface {
	ListSources(ctx context.Context, userID string) ([]models.Source, error)
	PageItems(ctx context.Context, userID string, before *time.Time, limit int) ([]models.SourcedItem, error)
	BookmarkedItemIDs(ctx context.Context, userID string) (map[string]bool, error)
}

// Query holds the validated parameters of one feed request.
type Query struct {
	UserID string
	Limit  int
	Before *time.Time
	Weight float64
}

// Assembler produces ordered, scored feed pages. It checks the page cache,
// triggers throttled background refreshes as a side effect and never blocks
// on them.
type Assembler struct {
	store     Store
	cache     *Cache
	throttler *Throttler
	jobs      chan<- models.RefreshJob
}

func NewAssembler(store Store, cache *Cache, throttler *Throttler, jobs chan<- models.RefreshJob) *Assembler {
	return &Assembler{
		store:     store,
		cache:     cache,
		throttler: throttler,
		jobs:      jobs,
	}
}

// Assemble builds one feed page for the query, serving from cache when a
// fresh entry exists.
func (a *Assembler) Assemble(ctx context.Context, q Query) (*models.FeedResponse, error) {
	key := NewCacheKey(q.UserID, q.Limit, cursorString(q.Before), q.Weight)
	if payload, ok := a.cache.Get(key); ok {
		return payload, nil
	}

	sources, err := a.store.ListSources(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	a.requestRefresh(sources)

	items, err := a.store.PageItems(ctx, q.UserID, q.Before, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("page items: %w", err)
	}

	bookmarked, err := a.store.BookmarkedItemIDs(ctx, q.UserID)
	if err != nil {
		// The bookmark flag is enrichment, not the page itself.
		log.WithFields(log.Fields{
			"user":  q.UserID,
			"error": err,
		}).Warn("Could not load bookmark flags for feed page")
		bookmarked = map[string]bool{}
	}

	entries := lo.Map(items, func(row models.SourcedItem, _ int) models.FeedEntry {
		return buildEntry(row, q.Weight, bookmarked)
	})

	var nextCursor *string
	if len(items) == q.Limit && len(items) > 0 {
		if last := items[len(items)-1].PublishedAt; last != nil {
			cursor := last.UTC().Format(time.RFC3339)
			nextCursor = &cursor
		}
	}

	payload := &models.FeedResponse{Items: entries, NextCursor: nextCursor}
	a.cache.Set(key, payload)
	return payload, nil
}

// requestRefresh enqueues refresh jobs for stale sources. Fire and forget: a
// full queue drops the job with a log line, never an error to the caller.
func (a *Assembler) requestRefresh(sources []models.Source) {
	for _, src := range sources {
		if !a.throttler.ShouldRefresh(src) {
			continue
		}
		job := models.RefreshJob{SourceID: src.ID, Kind: src.Kind, Reason: "stale"}
		select {
		case a.jobs <- job:
		default:
			log.WithFields(log.Fields{
				"source": src.ID,
			}).Warn("Refresh queue full, dropping job")
		}
	}
}

func buildEntry(row models.SourcedItem, weight float64, bookmarked map[string]bool) models.FeedEntry {
	focusScore := FocusScore(row.FocusTopics)
	popularity := Popularity(row.Metadata)

	entry := models.FeedEntry{
		ID:              row.ID,
		Title:           row.Title,
		Summary:         row.Summary,
		URL:             row.URL,
		SourceID:        row.SourceID,
		SourceName:      row.SourceName,
		PublishedAt:     row.PublishedAt,
		FocusTopics:     row.FocusTopics,
		FocusScore:      focusScore,
		PopularityScore: popularity,
		FinalScore:      Blend(weight, focusScore, popularity),
		IsBookmarked:    bookmarked[row.ID],
		AISummary:       row.Metadata.AISummary,
	}
	if entry.FocusTopics == nil {
		entry.FocusTopics = []string{}
	}
	if entry.SourceName == "" {
		entry.SourceName = "Source"
	}

	if tweet := row.Metadata.Tweet; tweet != nil {
		if handle, ok := handles.Normalize(tweet.AuthorHandle); ok {
			entry.AuthorHandle = handles.Format(handle)
		}
		entry.Metrics = tweet.Metrics()
	}

	return entry
}

func cursorString(before *time.Time) string {
	if before == nil {
		return ""
	}
	return before.UTC().Format(time.RFC3339)
}
