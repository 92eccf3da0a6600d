// Package db provides a typed SQLite repository for the HUD service. All SQL
// lives here; business logic never sees the query language.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hud/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DB handles all database operations with a shared connection pool
type DB struct {
	db *sql.DB
}

func New(database string) (*DB, error) {
	conn, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return &DB{db: conn}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// EnsureProfile creates the caller's profile row on first write, keeping the
// email current on subsequent calls.
func (d *DB) EnsureProfile(ctx context.Context, userID, email string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET email = excluded.email, updated_at = unixepoch()`,
		userID, email)
	if err != nil {
		return fmt.Errorf("ensure profile: %w", err)
	}
	return nil
}

// GetSettings returns the stored settings document and focus tags for a user.
// A missing profile yields empty settings, not an error.
func (d *DB) GetSettings(ctx context.Context, userID string) (models.ProfileSettings, []string, error) {
	var settings models.ProfileSettings
	var tags []string

	var settingsJSON, tagsJSON string
	err := d.db.QueryRowContext(ctx,
		"SELECT ai_settings, focus_tags FROM profiles WHERE id = ?", userID).
		Scan(&settingsJSON, &tagsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return settings, []string{}, nil
	}
	if err != nil {
		return settings, nil, fmt.Errorf("get settings: %w", err)
	}

	if err := json.Unmarshal([]byte(settingsJSON), &settings); err != nil {
		return settings, nil, fmt.Errorf("decode settings: %w", err)
	}
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
		return settings, nil, fmt.Errorf("decode focus tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return settings, tags, nil
}

// SaveSettings upserts the settings document and focus tags for a user.
func (d *DB) SaveSettings(ctx context.Context, userID string, settings models.ProfileSettings, focusTags []string) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if focusTags == nil {
		focusTags = []string{}
	}
	tagsJSON, err := json.Marshal(focusTags)
	if err != nil {
		return fmt.Errorf("encode focus tags: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO profiles (id, ai_settings, focus_tags) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			ai_settings = excluded.ai_settings,
			focus_tags = excluded.focus_tags,
			updated_at = unixepoch()`,
		userID, string(settingsJSON), string(tagsJSON))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// nullableUnix converts an optional timestamp to its storage representation.
func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func unixPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
