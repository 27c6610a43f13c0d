package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

const eventColumns = `time, kind, knob, channel, raw, value, reachable, error`

// RecentEvents returns up to limit events, newest first.
func RecentEvents(db *sql.DB, limit int) ([]events.Event, error) {
	rows, err := db.Query(`SELECT `+eventColumns+` FROM events ORDER BY time DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var evs []events.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

// LastReachability returns the most recent reachability event, if any.
func LastReachability(db *sql.DB) (events.Event, bool, error) {
	row := db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE kind = ? ORDER BY time DESC, id DESC LIMIT 1`, string(events.KindReachability))
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return events.Event{}, false, nil
	}
	if err != nil {
		return events.Event{}, false, err
	}
	return ev, true, nil
}

// LastVolume returns the most recent volume change that was applied
// successfully, if any.
func LastVolume(db *sql.DB) (events.Event, bool, error) {
	row := db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE kind = ? AND error IS NULL ORDER BY time DESC, id DESC LIMIT 1`, string(events.KindVolume))
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return events.Event{}, false, nil
	}
	if err != nil {
		return events.Event{}, false, err
	}
	return ev, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (events.Event, error) {
	var ev events.Event
	var ts, kind string
	var knob, errText sql.NullString

	if err := s.Scan(&ts, &kind, &knob, &ev.Channel, &ev.Raw, &ev.Value, &ev.Reachable, &errText); err != nil {
		if err == sql.ErrNoRows {
			return ev, err
		}
		return ev, fmt.Errorf("failed to scan event: %w", err)
	}

	t, err := time.Parse(timeLayout, ts)
	if err != nil {
		return ev, fmt.Errorf("bad event time %q: %w", ts, err)
	}
	ev.Time = t
	ev.Kind = events.Kind(kind)
	ev.Knob = knob.String
	ev.Error = errText.String
	return ev, nil
}
