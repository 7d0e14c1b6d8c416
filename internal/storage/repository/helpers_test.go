package repository

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

const testSchema = `
	CREATE TABLE decks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		card_list TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		external_id TEXT,
		first_seen TEXT NOT NULL,
		last_used TEXT NOT NULL,
		tags TEXT
	);
	CREATE UNIQUE INDEX idx_decks_fingerprint ON decks(fingerprint);

	CREATE TABLE matches (
		match_id TEXT PRIMARY KEY,
		timestamp_ended TEXT NOT NULL,
		local_player TEXT NOT NULL DEFAULT '',
		opponent TEXT NOT NULL DEFAULT '',
		deck_id INTEGER NOT NULL REFERENCES decks(id),
		result TEXT NOT NULL DEFAULT 'unknown',
		cubes INTEGER,
		turns INTEGER NOT NULL DEFAULT 0,
		location_1 TEXT NOT NULL DEFAULT '',
		location_2 TEXT NOT NULL DEFAULT '',
		location_3 TEXT NOT NULL DEFAULT '',
		snap_turn_self INTEGER NOT NULL DEFAULT 0,
		snap_turn_opponent INTEGER NOT NULL DEFAULT 0,
		final_snap_state TEXT NOT NULL DEFAULT '',
		opponent_revealed_cards TEXT NOT NULL DEFAULT '[]',
		season TEXT NOT NULL DEFAULT '',
		rank TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE match_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id TEXT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
		turn INTEGER NOT NULL DEFAULT 0,
		kind TEXT NOT NULL,
		actor TEXT NOT NULL,
		card_id TEXT NOT NULL,
		location_index INTEGER NOT NULL DEFAULT -1,
		source_zone TEXT NOT NULL DEFAULT '',
		target_zone TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '{}'
	);
	CREATE UNIQUE INDEX idx_match_events_unique ON match_events(
		match_id, turn, kind, actor, card_id, location_index, source_zone, target_zone, details
	);
`

// setupRepoTestDB creates an in-memory database with the match tracking tables.
func setupRepoTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// testClock is the fixed "now" used by analytics filters in tests.
var testClock = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func insertTestDeck(t *testing.T, db *sql.DB, name string, cards []string) int64 {
	t.Helper()
	deck := &models.Deck{
		Name:        name,
		Cards:       cards,
		Fingerprint: fmt.Sprintf("fp-%s", name),
		FirstSeen:   models.FormatTime(testClock),
		LastUsed:    models.FormatTime(testClock),
	}
	require.NoError(t, NewDeckRepository(db).Create(context.Background(), deck))
	return deck.ID
}

type testMatch struct {
	id       string
	deckID   int64
	result   string
	cubes    *int
	daysAgo  int
	opponent string
	season   string
	locs     [3]string
	revealed []string
}

func cubes(v int) *int { return &v }

func insertTestMatch(t *testing.T, db *sql.DB, tm testMatch) {
	t.Helper()
	m := &models.Match{
		MatchID:          tm.id,
		TimestampEnded:   models.FormatTime(testClock.AddDate(0, 0, -tm.daysAgo)),
		LocalPlayer:      "me",
		Opponent:         tm.opponent,
		DeckID:           tm.deckID,
		Result:           tm.result,
		Cubes:            tm.cubes,
		Turns:            6,
		Location1:        tm.locs[0],
		Location2:        tm.locs[1],
		Location3:        tm.locs[2],
		OpponentRevealed: tm.revealed,
		Season:           tm.season,
	}
	require.NoError(t, NewMatchRepository(db).Create(context.Background(), m))
}

func insertTestEvent(t *testing.T, db *sql.DB, matchID, kind, card string) {
	t.Helper()
	_, err := NewEventRepository(db).InsertIgnore(context.Background(), []*models.MatchEvent{{
		MatchID:       matchID,
		Turn:          1,
		Kind:          kind,
		Actor:         models.ActorLocal,
		CardID:        card,
		LocationIndex: models.NoLocation,
	}})
	require.NoError(t, err)
}
