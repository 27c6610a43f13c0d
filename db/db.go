package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	time TEXT NOT NULL,
	kind TEXT NOT NULL,
	knob TEXT,
	channel INTEGER,
	raw INTEGER,
	value INTEGER,
	reachable BOOLEAN DEFAULT FALSE,
	error TEXT
);
CREATE INDEX IF NOT EXISTS events_time ON events (time);
`

// Open opens (creating if needed) the event journal at path and applies the
// schema. ":memory:" is accepted for tests.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer, and an in-memory database only exists on its own connection
	db.SetMaxOpenConns(1)

	if err := ApplySchema(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", path).Msg("Event journal opened")
	return db, nil
}

func ApplySchema(db *sql.DB) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(schema); err != nil {
		RollbackTransaction(tx)
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return CommitTransaction(tx)
}

// timeLayout is fixed width so that text ordering is time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
