package components

import (
	"database/sql"
	"fmt"

	"gitlab.com/tozd/go/errors"
)

const schemaVersion = 1

func initSchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Errorf("failed to get schema version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createTables(tx); err != nil {
		return errors.Errorf("failed to create tables: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return errors.Errorf("failed to update schema version: %w", err)
	}
	return tx.Commit()
}

func createTables(tx *sql.Tx) error {
	queries := []string{
		// One row per component known from either definitions file.
		// - listed: the component appears in components.json and is offered
		//   as a completion item
		`CREATE TABLE IF NOT EXISTS components (
            name TEXT PRIMARY KEY,
            alias TEXT NOT NULL DEFAULT '',
            docs TEXT NOT NULL DEFAULT '',
            source TEXT NOT NULL DEFAULT '',
            listed INTEGER NOT NULL DEFAULT 0
        )`,

		// Declared props in declaration order.
		`CREATE TABLE IF NOT EXISTS props (
            component TEXT NOT NULL,
            position INTEGER NOT NULL,
            name TEXT NOT NULL,
            type TEXT NOT NULL DEFAULT '',
            opts TEXT NOT NULL DEFAULT '',
            doc TEXT NOT NULL DEFAULT '',
            line INTEGER NOT NULL DEFAULT 0,
            FOREIGN KEY (component) REFERENCES components(name) ON DELETE CASCADE,
            PRIMARY KEY (component, name)
        )`,

		`CREATE INDEX IF NOT EXISTS idx_components_alias
            ON components(alias)`,
	}

	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return errors.Errorf("failed to execute query %q: %w", query, err)
		}
	}
	return nil
}
