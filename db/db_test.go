package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/hardware-ui/internal/events"
)

var t0 = time.Date(2024, 12, 31, 20, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesFileAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "journal.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, InsertEvent(db, events.Event{Time: t0, Kind: events.KindNextTrack, Knob: "next_track"}))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	evs, err := RecentEvents(db, 10)
	require.NoError(t, err)
	assert.Len(t, evs, 1, "reopening keeps existing rows")
}

func TestInsertAndRecentEvents(t *testing.T) {
	db := openTestDB(t)

	volume := events.Event{Time: t0, Kind: events.KindVolume, Knob: "volume", Channel: 0, Raw: 512, Value: 50}
	failed := events.Event{Time: t0.Add(1500 * time.Millisecond), Kind: events.KindNextTrack, Knob: "next_track", Channel: 1, Raw: 700, Error: "player returned non-success status: 502"}
	outage := events.Event{Time: t0.Add(10 * time.Second), Kind: events.KindReachability, Reachable: false}

	for _, ev := range []events.Event{volume, failed, outage} {
		require.NoError(t, InsertEvent(db, ev))
	}

	evs, err := RecentEvents(db, 10)
	require.NoError(t, err)
	require.Len(t, evs, 3)

	assert.Equal(t, outage, evs[0])
	assert.Equal(t, failed, evs[1])
	assert.Equal(t, volume, evs[2])

	evs, err = RecentEvents(db, 1)
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}

func TestRecentEvents_OrdersSubsecondTimes(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, InsertEvent(db, events.Event{Time: t0.Add(550 * time.Millisecond), Kind: events.KindVolume, Value: 2}))
	require.NoError(t, InsertEvent(db, events.Event{Time: t0.Add(500 * time.Millisecond), Kind: events.KindVolume, Value: 1}))

	evs, err := RecentEvents(db, 10)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, 2, evs[0].Value)
}

func TestLastReachability(t *testing.T) {
	db := openTestDB(t)

	_, found, err := LastReachability(db)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, InsertEvent(db, events.Event{Time: t0, Kind: events.KindReachability, Reachable: false}))
	require.NoError(t, InsertEvent(db, events.Event{Time: t0.Add(time.Minute), Kind: events.KindReachability, Reachable: true}))
	require.NoError(t, InsertEvent(db, events.Event{Time: t0.Add(2 * time.Minute), Kind: events.KindVolume, Value: 30}))

	ev, found, err := LastReachability(db)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, ev.Reachable)
	assert.True(t, ev.Time.Equal(t0.Add(time.Minute)))
}

func TestLastVolume(t *testing.T) {
	db := openTestDB(t)

	_, found, err := LastVolume(db)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, InsertEvent(db, events.Event{Time: t0, Kind: events.KindVolume, Knob: "volume", Raw: 512, Value: 50}))
	require.NoError(t, InsertEvent(db, events.Event{Time: t0.Add(time.Second), Kind: events.KindVolume, Knob: "volume", Raw: 700, Value: 68, Error: "amixer failed"}))

	tx, err := StartTransaction(db)
	require.NoError(t, err)
	for i := 0; i < 600; i++ {
		require.NoError(t, InsertEventWithTx(tx, events.Event{Time: t0.Add(time.Minute + time.Duration(i)*time.Second), Kind: events.KindNextTrack, Knob: "next_track"}))
	}
	require.NoError(t, CommitTransaction(tx))

	ev, found, err := LastVolume(db)
	require.NoError(t, err)
	require.True(t, found, "older volume changes are found however many events follow")
	assert.Equal(t, 50, ev.Value)
	assert.Empty(t, ev.Error)
	assert.True(t, ev.Time.Equal(t0))
}

func TestPruneEvents(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, InsertEvent(db, events.Event{Time: t0.Add(time.Duration(i) * 24 * time.Hour), Kind: events.KindVolume}))
	}

	removed, err := PruneEvents(db, t0.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	evs, err := RecentEvents(db, 10)
	require.NoError(t, err)
	assert.Len(t, evs, 3)
}

func TestJournal_Record(t *testing.T) {
	db := openTestDB(t)
	j := NewJournal(db)

	require.NoError(t, j.Record(context.Background(), events.Event{Time: t0, Kind: events.KindVolume, Knob: "volume", Value: 42}))

	evs, err := RecentEvents(db, 1)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, 42, evs[0].Value)
}
