package database

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// MigrationStatus reports the schema version after a migration run.
type MigrationStatus struct {
	Version uint
	Applied bool
}

func newMigrator(databaseURL, dir string) (*migrate.Migrate, func(), error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve migrations dir: %w", err)
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(absDir), "postgres", driver)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, func() { db.Close() }, nil
}

// MigrateUp applies every pending migration in dir.
func MigrateUp(databaseURL, dir string) (*MigrationStatus, error) {
	m, closeFn, err := newMigrator(databaseURL, dir)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	applied := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		applied = false
	}

	return status(m, applied)
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(databaseURL, dir string, steps int) (*MigrationStatus, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("steps must be positive")
	}

	m, closeFn, err := newMigrator(databaseURL, dir)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("failed to roll back migrations: %w", err)
	}

	return status(m, true)
}

func status(m *migrate.Migrate, applied bool) (*MigrationStatus, error) {
	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return &MigrationStatus{Applied: applied}, nil
		}
		return nil, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return nil, fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}
	return &MigrationStatus{Version: version, Applied: applied}, nil
}
