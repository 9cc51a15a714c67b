package db

import (
	"database/sql"
	"fmt"
	"time"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Open a Postgres database through the pgx stdlib driver.
// The caller must import github.com/jackc/pgx/v5/stdlib.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("openDB: open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify postgres connection: %w", err)
	}

	return db, nil
}

// OpenSQLite opens a SQLite database file through modernc.org/sqlite.
// The caller must import the driver.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("openDB: open sqlite database %q: %w", dbPath, err)
	}

	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify sqlite connection to %q: %w", dbPath, err)
	}

	return db, nil
}

// OpenFor picks Postgres when databaseURL is set and SQLite at dbPath
// otherwise, and reports which dialect was opened.
func OpenFor(databaseURL, dbPath string) (*sql.DB, string, error) {
	if databaseURL != "" {
		conn, err := Open(databaseURL)
		return conn, DialectPostgres, err
	}
	conn, err := OpenSQLite(dbPath)
	return conn, DialectSQLite, err
}
