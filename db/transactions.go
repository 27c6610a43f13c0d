package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

// StartTransaction starts a new database transaction.
func StartTransaction(db *sql.DB) (*sql.Tx, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	return tx, nil
}

// CommitTransaction commits the given transaction.
func CommitTransaction(tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTransaction rolls back the given transaction.
func RollbackTransaction(tx *sql.Tx) {
	tx.Rollback()
}

func InsertEvent(db *sql.DB, ev events.Event) error {
	tx, err := StartTransaction(db)
	if err != nil {
		return err
	}
	if err := InsertEventWithTx(tx, ev); err != nil {
		RollbackTransaction(tx)
		return err
	}
	return CommitTransaction(tx)
}

func InsertEventWithTx(tx *sql.Tx, ev events.Event) error {
	var knob, errText *string
	if ev.Knob != "" {
		knob = &ev.Knob
	}
	if ev.Error != "" {
		errText = &ev.Error
	}

	_, err := tx.Exec(`INSERT INTO events (time, kind, knob, channel, raw, value, reachable, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.Time.UTC().Format(timeLayout), string(ev.Kind), knob, ev.Channel, ev.Raw, ev.Value, ev.Reachable, errText)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", ev.Kind, err)
	}
	return nil
}

// PruneEvents deletes events older than before and reports how many went.
func PruneEvents(db *sql.DB, before time.Time) (int64, error) {
	tx, err := StartTransaction(db)
	if err != nil {
		return 0, err
	}
	result, err := tx.Exec(`DELETE FROM events WHERE time < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		RollbackTransaction(tx)
		return 0, fmt.Errorf("prune events: %w", err)
	}
	if err := CommitTransaction(tx); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
