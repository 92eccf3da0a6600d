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

func scanSource(row interface{ Scan(...any) error }) (models.Source, error) {
	var src models.Source
	var url, handle sql.NullString
	var lastPolled sql.NullInt64
	var created int64

	err := row.Scan(&src.ID, &src.UserID, &src.Kind, &url, &handle, &src.DisplayName, &src.Status, &lastPolled, &created)
	if err != nil {
		return src, err
	}

	src.URL = url.String
	src.Handle = handle.String
	src.LastPolledAt = unixPtr(lastPolled)
	src.CreatedAt = time.Unix(created, 0).UTC()
	return src, nil
}

const sourceColumns = "id, user_id, type, url, handle, display_name, status, last_polled_at, created_at"

// ListSources returns all sources owned by a user, newest first.
func (d *DB) ListSources(ctx context.Context, userID string) ([]models.Source, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(sourceColumns).From("sources")
	sb.Where(sb.Equal("user_id", userID))
	sb.OrderBy("created_at DESC", "id DESC")

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	sources := []models.Source{}
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// GetSource returns one source by id.
func (d *DB) GetSource(ctx context.Context, id string) (models.Source, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(sourceColumns).From("sources")
	sb.Where(sb.Equal("id", id))

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	src, err := scanSource(d.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return src, ErrNotFound
	}
	if err != nil {
		return src, fmt.Errorf("get source: %w", err)
	}
	return src, nil
}

// CreateSource inserts a new source and returns it with generated fields set.
func (d *DB) CreateSource(ctx context.Context, src models.Source) (models.Source, error) {
	src.ID = uuid.New().String()
	src.CreatedAt = time.Now().UTC().Truncate(time.Second)
	if src.Status == "" {
		src.Status = models.StatusQueued
	}

	ib := sqlbuilder.NewInsertBuilder()
	ib.InsertInto("sources").
		Cols("id", "user_id", "type", "url", "handle", "display_name", "status", "created_at").
		Values(src.ID, src.UserID, src.Kind, nullableString(src.URL), nullableString(src.Handle),
			src.DisplayName, src.Status, src.CreatedAt.Unix())

	query, args := ib.BuildWithFlavor(sqlbuilder.SQLite)
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		return src, fmt.Errorf("create source: %w", err)
	}
	return src, nil
}

// DeleteSource removes a source owned by the caller. Deleting a source that
// does not exist is not an error.
func (d *DB) DeleteSource(ctx context.Context, userID, id string) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM sources WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}

// UpdateSourceStatus moves a source through its lifecycle states.
func (d *DB) UpdateSourceStatus(ctx context.Context, id, status string) error {
	_, err := d.db.ExecContext(ctx, "UPDATE sources SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update source status: %w", err)
	}
	return nil
}

// MarkSourcePolled records a successful poll and returns the source to idle.
func (d *DB) MarkSourcePolled(ctx context.Context, id string, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE sources SET status = ?, last_polled_at = ? WHERE id = ?",
		models.StatusIdle, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("mark source polled: %w", err)
	}
	return nil
}

// ListStaleSources returns RSS sources never polled or polled before cutoff,
// for the periodic ingest scan.
func (d *DB) ListStaleSources(ctx context.Context, cutoff time.Time) ([]models.Source, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(sourceColumns).From("sources")
	sb.Where(sb.Equal("type", models.KindRSS))
	sb.Where(sb.Or(
		sb.IsNull("last_polled_at"),
		sb.LessThan("last_polled_at", cutoff.Unix()),
	))
	sb.OrderBy("last_polled_at").Asc()

	query, args := sb.BuildWithFlavor(sqlbuilder.SQLite)
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stale sources: %w", err)
	}
	defer rows.Close()

	sources := []models.Source{}
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
