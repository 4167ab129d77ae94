package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const DefaultMigrationsPath = "internal/storage/postgres/migrations"

// MigrationStatus reports the schema version recorded by golang-migrate.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func MigrateUp(databaseURL string, migrationsPath string) (err error) {
	m, err := newMigrator(databaseURL, migrationsPath)
	if err != nil {
		return err
	}
	defer closeMigrator(m, &err)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

func MigrateDown(databaseURL string, migrationsPath string, steps int) (err error) {
	if steps <= 0 {
		return fmt.Errorf("migrate down: steps must be > 0")
	}
	m, err := newMigrator(databaseURL, migrationsPath)
	if err != nil {
		return err
	}
	defer closeMigrator(m, &err)

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// CurrentMigration returns the applied schema version. A database with no
// migrations applied reports version 0.
func CurrentMigration(databaseURL string, migrationsPath string) (status MigrationStatus, err error) {
	m, err := newMigrator(databaseURL, migrationsPath)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer closeMigrator(m, &err)

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return MigrationStatus{}, nil
		}
		return MigrationStatus{}, fmt.Errorf("migration version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty}, nil
}

func newMigrator(databaseURL string, migrationsPath string) (*migrate.Migrate, error) {
	if migrationsPath == "" {
		migrationsPath = DefaultMigrationsPath
	}
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("init migrator: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate, errp *error) {
	sourceErr, dbErr := m.Close()
	if *errp != nil {
		return
	}
	if sourceErr != nil {
		*errp = fmt.Errorf("close migration source: %w", sourceErr)
	} else if dbErr != nil {
		*errp = fmt.Errorf("close migration database: %w", dbErr)
	}
}
