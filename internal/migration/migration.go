package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ErrDirtySchema means an earlier run stopped half way through a migration.
// An operator has to repair the schema and force the version.
var ErrDirtySchema = errors.New("migration: schema is dirty")

// Result describes the agency schema after a run.
type Result struct {
	Version uint
	Applied bool
}

// RunMigrations brings a postgres database up to the newest embedded agency
// schema.
func RunMigrations(db *sql.DB) (Result, error) {
	if db == nil {
		return Result{}, errors.New("migration database handle is required")
	}

	source, err := iofs.New(embeddedMigrations, migrationsDir)
	if err != nil {
		return Result{}, fmt.Errorf("open migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "newsexpress_schema_migrations"})
	if err != nil {
		return Result{}, fmt.Errorf("create migration driver: %w", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return Result{}, fmt.Errorf("create migrator: %w", err)
	}

	before, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return Result{}, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return Result{Version: before}, fmt.Errorf("%w at version %d", ErrDirtySchema, before)
	}

	// The shared *sql.DB stays open; migrator.Close would close it.
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return Result{}, fmt.Errorf("apply migrations: %w", err)
	}
	after, _, err := migrator.Version()
	if err != nil {
		return Result{}, fmt.Errorf("read schema version: %w", err)
	}
	return Result{Version: after, Applied: after != before}, nil
}

// migrationVersions lists the embedded versions in order and checks that
// every up script has a matching down script.
func migrationVersions(fsys fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(fsys, migrationsDir)
	if err != nil {
		return nil, err
	}
	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s has no version prefix", name)
		}
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[version] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[version] = true
		default:
			return nil, fmt.Errorf("migration %s is neither up nor down", name)
		}
	}
	versions := make([]string, 0, len(ups))
	for version := range ups {
		if !downs[version] {
			return nil, fmt.Errorf("migration %s has no down script", version)
		}
		versions = append(versions, version)
	}
	for version := range downs {
		if !ups[version] {
			return nil, fmt.Errorf("migration %s has no up script", version)
		}
	}
	sort.Strings(versions)
	return versions, nil
}
