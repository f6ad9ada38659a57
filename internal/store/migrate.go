package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/ZerkerEOD/filecrack/pkg/debug"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending up migration for dialect. The database
// handle stays open.
func Migrate(db *sql.DB, dialect Dialect) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	case DialectPostgres:
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	debug.Info("Database schema at version %d (dirty: %v)", version, dirty)
	return nil
}

// OpenSQL opens driver/dsn, creating the parent directory of a plain sqlite
// file path, and applies migrations.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	db, dialect, err := openWithDir(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, dialect); err != nil {
		db.Close()
		return nil, err
	}
	return NewSQLStore(db, dialect), nil
}

func openWithDir(driver, dsn string) (*sql.DB, Dialect, error) {
	if (driver == "sqlite" || driver == "sqlite3") && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:") {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, "", fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	return Open(driver, dsn)
}
