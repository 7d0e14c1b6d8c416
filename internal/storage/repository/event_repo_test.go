package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

func TestEncodeDetails(t *testing.T) {
	empty, err := EncodeDetails(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", empty)

	a, err := EncodeDetails(map[string]any{"energy": 2, "source": "live"})
	require.NoError(t, err)
	b, err := EncodeDetails(map[string]any{"source": "live", "energy": 2})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, `{"energy":2,"source":"live"}`, a)
}

func TestEventRepository_InsertIgnore(t *testing.T) {
	db := setupRepoTestDB(t)
	deckID := insertTestDeck(t, db, "Zoo", []string{"A"})
	insertTestMatch(t, db, testMatch{id: "M1", deckID: deckID, result: models.ResultWin})
	repo := NewEventRepository(db)
	ctx := context.Background()

	events := []*models.MatchEvent{
		{MatchID: "M1", Turn: 3, Kind: models.KindDrawn, Actor: models.ActorLocal, CardID: "X",
			LocationIndex: models.NoLocation, SourceZone: models.ZoneDeck, TargetZone: models.ZoneHand},
		{MatchID: "M1", Turn: 4, Kind: models.KindPlayed, Actor: models.ActorLocal, CardID: "X",
			LocationIndex: 1, SourceZone: models.ZoneHand, TargetZone: models.ZoneLocation,
			Details: map[string]any{"energy": 2}},
	}

	n, err := repo.InsertIgnore(ctx, events)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.InsertIgnore(ctx, events)
	require.NoError(t, err)
	assert.Zero(t, n, "replaying the same events inserts nothing")

	stored, err := repo.ListForMatch(ctx, "M1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, models.KindDrawn, stored[0].Kind)
	assert.Equal(t, models.NoLocation, stored[0].LocationIndex)
	assert.Nil(t, stored[0].Details)
	assert.Equal(t, 1, stored[1].LocationIndex)
	assert.Equal(t, float64(2), stored[1].Details["energy"])
}

func TestEventRepository_DetailsDistinguishEvents(t *testing.T) {
	db := setupRepoTestDB(t)
	deckID := insertTestDeck(t, db, "Zoo", []string{"A"})
	insertTestMatch(t, db, testMatch{id: "M1", deckID: deckID, result: models.ResultWin})
	repo := NewEventRepository(db)

	base := models.MatchEvent{MatchID: "M1", Turn: 6, Kind: models.KindDrawn, Actor: models.ActorLocal, CardID: "X", LocationIndex: models.NoLocation}
	withDetail := base
	withDetail.Details = map[string]any{"source": "reconciliation"}

	n, err := repo.InsertIgnore(context.Background(), []*models.MatchEvent{&base, &withDetail})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEventRepository_InsertIgnoreWithoutUniqueIndex(t *testing.T) {
	db := setupRepoTestDB(t)
	_, err := db.Exec(`DROP INDEX idx_match_events_unique`)
	require.NoError(t, err)

	deckID := insertTestDeck(t, db, "Zoo", []string{"A"})
	insertTestMatch(t, db, testMatch{id: "M1", deckID: deckID, result: models.ResultWin})
	repo := NewEventRepository(db)
	ctx := context.Background()

	ev := []*models.MatchEvent{{MatchID: "M1", Turn: 1, Kind: models.KindDrawn, Actor: models.ActorLocal, CardID: "X", LocationIndex: models.NoLocation}}
	_, err = repo.InsertIgnore(ctx, ev)
	require.NoError(t, err)
	_, err = repo.InsertIgnore(ctx, ev)
	require.NoError(t, err)

	count, err := repo.CountForMatch(ctx, "M1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
