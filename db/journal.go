package db

import (
	"context"
	"database/sql"

	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

// Journal records events into sqlite.
type Journal struct {
	db *sql.DB
}

func NewJournal(db *sql.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) Record(ctx context.Context, ev events.Event) error {
	return InsertEvent(j.db, ev)
}
