// Package ingest feeds the item store: an in-process worker consumes refresh
// jobs, polls RSS sources and forwards twitter sources to the external
// fetcher function.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hud/models"

	"github.com/mmcdole/gofeed"
	"github.com/samber/lo"
)

// Fetcher fetches and parses RSS sources into items.
type Fetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		parser:  gofeed.NewParser(),
		timeout: timeout,
	}
}

// Fetch pulls one RSS source and maps its entries to items. Entries without
// any usable identity (guid or link) are skipped.
func (f *Fetcher) Fetch(ctx context.Context, src models.Source) ([]models.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parsed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	items := make([]models.Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if item, ok := MapItem(src.ID, entry); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

// MapItem converts one parsed feed entry into an item. The guid falls back
// to the link, the publish time to the update time; categories become focus
// topic tags.
func MapItem(sourceID string, entry *gofeed.Item) (models.Item, bool) {
	guid := entry.GUID
	if guid == "" {
		guid = entry.Link
	}
	if guid == "" {
		return models.Item{}, false
	}

	published := entry.PublishedParsed
	if published == nil {
		published = entry.UpdatedParsed
	}

	topics := lo.Uniq(lo.FilterMap(entry.Categories, func(c string, _ int) (string, bool) {
		tag := strings.ToLower(strings.TrimSpace(c))
		return tag, tag != ""
	}))

	return models.Item{
		SourceID:    sourceID,
		GUID:        guid,
		Title:       entry.Title,
		Summary:     entry.Description,
		URL:         entry.Link,
		PublishedAt: published,
		FocusTopics: topics,
	}, true
}
