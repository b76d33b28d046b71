package migrations

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Status describes where a database stands relative to the embedded migrations.
type Status struct {
	Version uint
	Latest  uint
	Dirty   bool
}

// Pending reports whether migrations remain to be applied.
func (s Status) Pending() bool {
	return s.Version < s.Latest
}

// Up applies all pending migrations. The caller keeps ownership of db.
func Up(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// GetStatus reports the applied and latest versions.
func GetStatus(db *sql.DB) (Status, error) {
	m, err := newMigrate(db)
	if err != nil {
		return Status{}, err
	}

	var st Status
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
	case err != nil:
		return Status{}, fmt.Errorf("failed to get database version: %w", err)
	default:
		st.Version, st.Dirty = version, dirty
	}

	src, err := iofs.New(FS, ".")
	if err != nil {
		return Status{}, fmt.Errorf("failed to read migration files: %w", err)
	}
	defer src.Close()

	if st.Latest, err = latestVersion(src); err != nil {
		return Status{}, fmt.Errorf("failed to determine latest version: %w", err)
	}
	return st, nil
}

// Check returns an error unless the database is exactly at the latest version.
func Check(db *sql.DB) error {
	st, err := GetStatus(db)
	if err != nil {
		return err
	}
	switch {
	case st.Dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", st.Version)
	case st.Version == 0:
		return errors.New("database has no schema version (needs migration)")
	case st.Version < st.Latest:
		return fmt.Errorf("database is at version %d but latest is %d", st.Version, st.Latest)
	case st.Version > st.Latest:
		return fmt.Errorf("database version %d is ahead of binary version %d", st.Version, st.Latest)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	// Not closing the returned Migrate: that would close db, which belongs to the caller.
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if err != nil {
			return v, nil
		}
		v = next
	}
}
