package repositories

import (
	"database/sql"
	"errors"
	"fmt"
)

// Initialize the SQLite database schema.
func InitSchema(db *sql.DB) error {
	createBinsQuery := `
	CREATE TABLE IF NOT EXISTS storage_bins (
		bin_id INTEGER PRIMARY KEY,
		location_code TEXT NOT NULL UNIQUE,
		capacity INTEGER NOT NULL CHECK (capacity > 0)
	);
	`

	createShipmentLogQuery := `
	CREATE TABLE IF NOT EXISTS shipment_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		tracking_id TEXT,
		bin_id INTEGER,
		payload TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_shipment_log_tracking_id
	ON shipment_log(tracking_id);
	`

	return execSchema(db, createBinsQuery, createShipmentLogQuery, createIndexQuery)
}

// Initialize the Postgres database schema.
func InitPostgresSchema(db *sql.DB) error {
	createBinsQuery := `
	CREATE TABLE IF NOT EXISTS storage_bins (
		bin_id INTEGER PRIMARY KEY,
		location_code TEXT NOT NULL UNIQUE,
		capacity INTEGER NOT NULL CHECK (capacity > 0)
	);
	`

	createShipmentLogQuery := `
	CREATE TABLE IF NOT EXISTS shipment_log (
		seq BIGSERIAL PRIMARY KEY,
		event_type TEXT NOT NULL,
		tracking_id TEXT,
		bin_id INTEGER,
		payload JSONB NOT NULL,
		recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_shipment_log_tracking_id
	ON shipment_log(tracking_id);
	`

	return execSchema(db, createBinsQuery, createShipmentLogQuery, createIndexQuery)
}

func execSchema(db *sql.DB, statements ...string) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
