// Package store persists validated order records in an embedded SQLite
// database. The content_hash unique key makes ingestion idempotent; WAL mode
// plus a busy timeout let concurrent writers serialize on the database's own
// locking rather than an application lock.
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sqlx.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS order_records (
    id                    INTEGER PRIMARY KEY AUTOINCREMENT,
    source_file           TEXT,
    content_hash          TEXT UNIQUE,
    order_period          TEXT    NOT NULL,
    period_number         INTEGER NOT NULL,
    medication            TEXT    NOT NULL,
    quantity              INTEGER NOT NULL,
    purchase_date         TEXT    NOT NULL,
    expiration_date       TEXT    NOT NULL,
    quantity_used         INTEGER NOT NULL,
    avg_daily_consumption REAL    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_medication_purchase_date
    ON order_records (medication, purchase_date);
CREATE INDEX IF NOT EXISTS idx_records_period_medication
    ON order_records (period_number, medication);
`

// NewStore opens (and creates, if needed) the database at path.
func NewStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initSchema creates the table and indexes (idempotent).
func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}
