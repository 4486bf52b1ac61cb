package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	appmigrations "github.com/wolfman30/clinic-scheduler/migrations"
)

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("database: migrate driver: %w", err)
	}
	src, err := iofs.New(appmigrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("database: migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("database: create migrator: %w", err)
	}
	return m, nil
}

// MigrateUp applies every embedded migration. It reports whether anything ran.
func MigrateUp(db *sql.DB) (bool, error) {
	m, err := newMigrator(db)
	if err != nil {
		return false, err
	}
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("database: migrate up: %w", err)
	}
	return true, nil
}

// ForceVersion marks version as applied without running it, clearing a dirty state.
func ForceVersion(db *sql.DB, version int) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return fmt.Errorf("database: force version %d: %w", version, err)
	}
	return nil
}
