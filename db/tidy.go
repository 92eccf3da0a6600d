package db

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Tidy removes items older than 90 days to keep the database size down.
// Bookmarked items are kept regardless of age.
func Tidy(database string) error {
	conn, err := connection(database)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer conn.Close()

	cutoff := time.Now().AddDate(0, 0, -90)

	res, err := conn.Exec(`
		DELETE FROM items
		WHERE published_at IS NOT NULL
		  AND published_at < ?
		  AND id NOT IN (SELECT item_id FROM bookmarks)`, cutoff.Unix())
	if err != nil {
		return fmt.Errorf("tidy items: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil {
		log.WithFields(log.Fields{
			"deleted": n,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Tidied database")
	}

	return nil
}
