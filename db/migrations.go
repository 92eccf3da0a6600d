package db

import (
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var fs embed.FS

func newMigrator(dbPath string) (*migrate.Migrate, error) {
	d, err := iofs.New(fs, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", d, "sqlite://"+dbPath)
}

// Migrate runs the SQLite database migrations using golang-migrate. Creates
// the database file if it does not exist.
func Migrate(dbPath string) error {
	fmt.Println("Running migrations...")
	m, err := newMigrator(dbPath)
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

// Rollback undoes the most recent migration.
func Rollback(dbPath string) error {
	fmt.Println("Rolling back last migration...")
	m, err := newMigrator(dbPath)
	if err != nil {
		return fmt.Errorf("error creating migrate instance: %w", err)
	}

	if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}
