// Schema migrations, grounded on the teacher's internal/migrate/migrate.go
// golang-migrate + embed.FS pattern. Unlike the teacher, whose core schema
// happened to be dialect-neutral, this schema's primary-key/JSON column
// types genuinely differ between Postgres (BIGSERIAL, JSONB) and SQLite
// (INTEGER PRIMARY KEY AUTOINCREMENT, TEXT) — so each driver gets its own
// embedded migration subtree instead of a shared core plus "extras" pass.
package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

func newMigrateInstance(db *sql.DB, driver string) (*migrate.Migrate, error) {
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, sqlite)", driver)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, fmt.Errorf("load migration source for %s: %w", driver, err)
	}

	var databaseDriver database.Driver
	switch driver {
	case "postgres":
		databaseDriver, err = postgres.WithInstance(db, &postgres.Config{})
	case "sqlite":
		databaseDriver, err = sqlite.WithInstance(db, &sqlite.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("create %s migration driver: %w", driver, err)
	}

	return migrate.NewWithInstance("iofs", sourceDriver, driver, databaseDriver)
}

// RunMigrations applies every pending migration for driver ("postgres" or
// "sqlite") against db.
func RunMigrations(db *sql.DB, driver string) error {
	m, err := newMigrateInstance(db, driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrationVersion reports the current applied schema version for driver.
func MigrationVersion(db *sql.DB, driver string) (version uint, dirty bool, err error) {
	m, err := newMigrateInstance(db, driver)
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}
