package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hud/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

const itemColumns = "items.id, items.source_id, items.guid, items.title, items.summary, items.url, items.published_at, items.metadata, items.focus_topics, sources.display_name"

func scanSourcedItem(row interface{ Scan(...any) error }) (models.SourcedItem, error) {
	var item models.SourcedItem
	var published sql.NullInt64
	var metadataJSON, topicsJSON string
	var sourceName sql.NullString

	err := row.Scan(&item.ID, &item.SourceID, &item.GUID, &item.Title, &item.Summary,
		&item.URL, &published, &metadataJSON, &topicsJSON, &sourceName)
	if err != nil {
		return item, err
	}

	item.PublishedAt = unixPtr(published)
	item.SourceName = sourceName.String
	if err := json.Unmarshal([]byte(metadataJSON), &item.Metadata); err != nil {
		return item, fmt.Errorf("decode item metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(topicsJSON), &item.FocusTopics); err != nil {
		return item, fmt.Errorf("decode focus topics: %w", err)
	}
	return item, nil
}

// PageItems returns one feed page for a user: items from their sources,
// newest first with item id as the deterministic tie-break, optionally
// bounded by a publish-time cursor.
func (d *DB) PageItems(ctx context.Context, userID string, before *time.Time, limit int) ([]models.SourcedItem, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(itemColumns).From("items")
	sb.Join("sources", "sources.id = items.source_id")
	sb.Where(sb.Equal("sources.user_id", userID))
	if before != nil {
		sb.Where(sb.LessThan("items.published_at", before.Unix()))
	}
	sb.OrderBy("items.published_at DESC", "items.id DESC")
	sb.Limit(limit)

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("page items: %w", err)
	}
	defer rows.Close()

	items := []models.SourcedItem{}
	for rows.Next() {
		item, err := scanSourcedItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetItemForUser returns one item with its owning user id, for authorization
// at the call site.
func (d *DB) GetItemForUser(ctx context.Context, itemID string) (models.SourcedItem, string, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(itemColumns + ", sources.user_id").From("items")
	sb.Join("sources", "sources.id = items.source_id")
	sb.Where(sb.Equal("items.id", itemID))

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	row := d.db.QueryRowContext(ctx, query, args...)

	var item models.SourcedItem
	var published sql.NullInt64
	var metadataJSON, topicsJSON string
	var sourceName sql.NullString
	var ownerID string

	err := row.Scan(&item.ID, &item.SourceID, &item.GUID, &item.Title, &item.Summary,
		&item.URL, &published, &metadataJSON, &topicsJSON, &sourceName, &ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return item, "", ErrNotFound
	}
	if err != nil {
		return item, "", fmt.Errorf("get item: %w", err)
	}

	item.PublishedAt = unixPtr(published)
	item.SourceName = sourceName.String
	if err := json.Unmarshal([]byte(metadataJSON), &item.Metadata); err != nil {
		return item, "", fmt.Errorf("decode item metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(topicsJSON), &item.FocusTopics); err != nil {
		return item, "", fmt.Errorf("decode focus topics: %w", err)
	}
	return item, ownerID, nil
}

// SetItemMetadata replaces the metadata document of an item, used to write
// back AI summaries.
func (d *DB) SetItemMetadata(ctx context.Context, itemID string, metadata models.ItemMetadata) error {
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode item metadata: %w", err)
	}
	_, err = d.db.ExecContext(ctx, "UPDATE items SET metadata = ? WHERE id = ?", string(encoded), itemID)
	if err != nil {
		return fmt.Errorf("set item metadata: %w", err)
	}
	return nil
}

// UpsertItems stores fetched items, skipping rows already present for the
// same (source, guid). Returns the number of new rows.
func (d *DB) UpsertItems(ctx context.Context, items []models.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	created := 0
	for _, item := range items {
		metadataJSON, err := json.Marshal(item.Metadata)
		if err != nil {
			return created, fmt.Errorf("encode item metadata: %w", err)
		}
		topics := item.FocusTopics
		if topics == nil {
			topics = []string{}
		}
		topicsJSON, err := json.Marshal(topics)
		if err != nil {
			return created, fmt.Errorf("encode focus topics: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO items (id, source_id, guid, title, summary, url, published_at, metadata, focus_topics)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (source_id, guid) DO NOTHING`,
			uuid.New().String(), item.SourceID, item.GUID, item.Title, item.Summary,
			item.URL, nullableUnix(item.PublishedAt), string(metadataJSON), string(topicsJSON))
		if err != nil {
			return created, fmt.Errorf("insert item: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			created += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return created, fmt.Errorf("commit upsert: %w", err)
	}
	return created, nil
}
