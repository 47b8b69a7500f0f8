package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// The ledger and shipment tables ship inside the binary.
//
//go:embed migrations/*.sql
var schemaFS embed.FS

// MigrateSchema brings the agrotrack database at dbPath up to the latest
// ledger and shipment schema and reports the resulting version. Running it
// against an up-to-date database is a no-op.
func MigrateSchema(dbPath string) (uint, error) {
	// golang-migrate closes the handle it is given, so it gets its own.
	schemaDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open %s for schema migration: %w", dbPath, err)
	}
	defer schemaDB.Close()

	target, err := sqlite.WithInstance(schemaDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("prepare sqlite schema target: %w", err)
	}
	source, err := iofs.New(schemaFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("load embedded agrotrack schema: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return 0, fmt.Errorf("init schema migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply agrotrack schema: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty; fix it by hand and rerun", version)
	}
	return version, nil
}
