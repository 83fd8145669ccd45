// Package migrations embeds the store schema and applies it with
// golang-migrate on either SQLite driver.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// Dialect names the SQLite driver a connection was opened with.
type Dialect string

const (
	// DialectCGo is github.com/mattn/go-sqlite3, registered as "sqlite3".
	DialectCGo Dialect = "sqlite3"
	// DialectPureGo is modernc.org/sqlite, registered as "sqlite".
	DialectPureGo Dialect = "sqlite"
)

// Status is the schema version of a store next to the newest version this
// binary ships. Current is 0 for a store that was never migrated.
type Status struct {
	Current uint
	Latest  uint
	Dirty   bool
}

// Err describes why the store cannot be used as is, or returns nil.
func (s Status) Err() error {
	switch {
	case s.Current == 0:
		return errors.New("database has no schema version (needs migration)")
	case s.Dirty:
		return fmt.Errorf("database is dirty at version %d (a migration failed part way)", s.Current)
	case s.Current < s.Latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			s.Current, s.Latest, s.Latest-s.Current)
	case s.Current > s.Latest:
		return fmt.Errorf("database version %d is ahead of this binary's %d (upgrade qvcs)",
			s.Current, s.Latest)
	}
	return nil
}

// ReadStatus reports the schema version of db.
func ReadStatus(db *sql.DB, dialect Dialect) (Status, error) {
	latest, err := LatestVersion()
	if err != nil {
		return Status{}, err
	}
	m, err := newMigrate(db, dialect)
	if err != nil {
		return Status{}, err
	}
	// m is not closed: closing it closes db, which the caller owns.

	st := Status{Latest: latest}
	st.Current, st.Dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Status{}, fmt.Errorf("reading schema version: %w", err)
	}
	return st, nil
}

// CheckDBMigrationStatus returns an error unless db is at the latest
// version and clean.
func CheckDBMigrationStatus(db *sql.DB, dialect Dialect) error {
	st, err := ReadStatus(db, dialect)
	if err != nil {
		return err
	}
	return st.Err()
}

// MigrateUp applies every pending migration. An up-to-date store is not an
// error.
func MigrateUp(db *sql.DB, dialect Dialect) error {
	m, err := newMigrate(db, dialect)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// LatestVersion returns the highest migration version embedded in the
// binary.
func LatestVersion() (uint, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("reading migration files: %w", err)
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("reading migration files: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, err
		}
		v = next
	}
}

func newMigrate(db *sql.DB, dialect Dialect) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch dialect {
	case DialectCGo:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case DialectPureGo:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s migration driver: %w", dialect, err)
	}

	var src source.Driver
	if src, err = iofs.New(migrationFiles, "files"); err != nil {
		return nil, fmt.Errorf("reading migration files: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}
