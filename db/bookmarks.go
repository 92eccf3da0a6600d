package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hud/models"

	"github.com/google/uuid"
	sqlbuilder "github.com/huandu/go-sqlbuilder"
)

// ListBookmarks returns a user's bookmarks, newest first.
func (d *DB) ListBookmarks(ctx context.Context, userID string) ([]models.Bookmark, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "item_id", "created_at").From("bookmarks")
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("created_at DESC", "id DESC")

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := []models.Bookmark{}
	for rows.Next() {
		var bm models.Bookmark
		var created int64
		if err := rows.Scan(&bm.ID, &bm.ItemID, &created); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		bm.CreatedAt = time.Unix(created, 0).UTC()
		bookmarks = append(bookmarks, bm)
	}
	return bookmarks, rows.Err()
}

// CreateBookmark saves an item for a user. At most one bookmark exists per
// (user, item); bookmarking twice returns the existing id.
func (d *DB) CreateBookmark(ctx context.Context, userID, itemID string) (string, error) {
	id := uuid.New().String()
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, user_id, item_id) VALUES (?, ?, ?)
		ON CONFLICT (user_id, item_id) DO NOTHING`,
		id, userID, itemID)
	if err != nil {
		return "", fmt.Errorf("create bookmark: %w", err)
	}

	var existing string
	err = d.db.QueryRowContext(ctx,
		"SELECT id FROM bookmarks WHERE user_id = ? AND item_id = ?", userID, itemID).
		Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read bookmark: %w", err)
	}
	return existing, nil
}

// DeleteBookmark removes a bookmark by item id. Idempotent.
func (d *DB) DeleteBookmark(ctx context.Context, userID, itemID string) error {
	_, err := d.db.ExecContext(ctx,
		"DELETE FROM bookmarks WHERE user_id = ? AND item_id = ?", userID, itemID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

// BookmarkedItemIDs returns the set of item ids a user has saved.
func (d *DB) BookmarkedItemIDs(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT item_id FROM bookmarks WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("bookmarked item ids: %w", err)
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan bookmark id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// EnqueueJob records a queued ingestion job for a source and returns its id.
func (d *DB) EnqueueJob(ctx context.Context, sourceID string) (string, error) {
	id := uuid.New().String()
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO jobs (id, source_id, scheduled_for) VALUES (?, ?, unixepoch())",
		id, sourceID)
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// FinishJob marks a job done or failed so queue status stays observable.
func (d *DB) FinishJob(ctx context.Context, jobID, status, errMsg string) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE jobs SET status = ?, error = ?, finished_at = unixepoch() WHERE id = ?",
		status, nullableString(errMsg), jobID)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}
