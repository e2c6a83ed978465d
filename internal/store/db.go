package store

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the durable repository for export jobs and warehouse sync records.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database and creates tables if they do not exist.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	jobTable := `
	CREATE TABLE IF NOT EXISTS export_jobs (
		id TEXT PRIMARY KEY,
		publisher_id TEXT NOT NULL,
		data_type TEXT NOT NULL,
		format TEXT NOT NULL,
		destination TEXT NOT NULL,
		status TEXT NOT NULL,
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		rows_exported INTEGER NOT NULL DEFAULT 0,
		file_size INTEGER NOT NULL DEFAULT 0,
		location TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		config TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		completed_at DATETIME
	);
	`
	jobIndex := `
	CREATE INDEX IF NOT EXISTS idx_export_jobs_publisher
	ON export_jobs (publisher_id, created_at DESC);
	`
	syncTable := `
	CREATE TABLE IF NOT EXISTS warehouse_syncs (
		id TEXT PRIMARY KEY,
		publisher_id TEXT NOT NULL,
		warehouse_type TEXT NOT NULL,
		status TEXT NOT NULL,
		sync_interval_hours INTEGER NOT NULL,
		last_sync_time DATETIME NOT NULL,
		next_sync_time DATETIME NOT NULL,
		rows_synced INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	`

	for _, ddl := range []string{jobTable, jobIndex, syncTable} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
