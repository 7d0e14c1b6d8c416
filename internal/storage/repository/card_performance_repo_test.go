package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

var twelveCards = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K", "L"}

func findCard(perfs []*models.CardPerformance, id string) *models.CardPerformance {
	for _, p := range perfs {
		if p.CardID == id {
			return p
		}
	}
	return nil
}

// Ten matches with card A drawn in six (four won) and not drawn in four (one won).
func TestCardPerformance_Counterfactual(t *testing.T) {
	db := setupRepoTestDB(t)
	deckID := insertTestDeck(t, db, "Letters", twelveCards)

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("M%02d", i)
		drawn := i < 6
		var won bool
		if drawn {
			won = i < 4
		} else {
			won = i == 6
		}

		result, c := models.ResultLoss, -1
		if won {
			result, c = models.ResultWin, 2
		}
		insertTestMatch(t, db, testMatch{id: id, deckID: deckID, result: result, cubes: cubes(c)})

		// Every match records at least one local event.
		insertTestEvent(t, db, id, models.KindDrawn, "B")
		if drawn {
			insertTestEvent(t, db, id, models.KindDrawn, "A")
		}
	}

	perfs, err := NewCardPerformanceRepository(db).GetCardPerformance(context.Background(), models.Filter{})
	require.NoError(t, err)
	require.Len(t, perfs, 12)

	a := findCard(perfs, "A")
	require.NotNil(t, a)
	assert.Equal(t, 10, a.TotalGamesInDeck)
	assert.Equal(t, 6, a.Drawn.Games)
	assert.Equal(t, 4, a.Drawn.Wins)
	assert.Equal(t, 4, a.NotDrawn.Games)
	assert.Equal(t, 1, a.NotDrawn.Wins)
	assert.InDelta(t, 66.67, *a.Drawn.WinRate(), 0.01)
	assert.InDelta(t, 25.0, *a.NotDrawn.WinRate(), 0.001)

	// drawn: 4*2 + 2*(-1) = 6 over 6 games; not drawn: 2 + 3*(-1) = -1 over 4 games
	assert.InDelta(t, 1.0-(-0.25), a.DeltaCubesDrawn, 1e-9)
	assert.Positive(t, a.DeltaCubesDrawn)

	assert.Zero(t, a.Played.Games)
	assert.Equal(t, 10, a.NotPlayed.Games)
}

func TestCardPerformance_PlayedImpliesDrawn(t *testing.T) {
	db := setupRepoTestDB(t)
	deckID := insertTestDeck(t, db, "Letters", twelveCards)
	insertTestMatch(t, db, testMatch{id: "M1", deckID: deckID, result: models.ResultWin, cubes: cubes(2)})
	insertTestEvent(t, db, "M1", models.KindPlayed, "C")

	perfs, err := NewCardPerformanceRepository(db).GetCardPerformance(context.Background(), models.Filter{})
	require.NoError(t, err)

	c := findCard(perfs, "C")
	require.NotNil(t, c)
	assert.Equal(t, 1, c.Drawn.Games)
	assert.Equal(t, 1, c.Played.Games)
	assert.Equal(t, 2.0, c.DeltaCubesDrawn, "drawn-only reports its own average")
	assert.Equal(t, 2.0, c.DeltaCubesPlayed)

	d := findCard(perfs, "D")
	require.NotNil(t, d)
	assert.Equal(t, 1, d.NotDrawn.Games)
	assert.Equal(t, -2.0, d.DeltaCubesDrawn, "not-drawn-only is negated")
}

func TestCardPerformance_MatchesWithoutEventsAreNotDrawn(t *testing.T) {
	db := setupRepoTestDB(t)
	deckID := insertTestDeck(t, db, "Letters", []string{"A", "B", "A"})
	insertTestMatch(t, db, testMatch{id: "M1", deckID: deckID, result: models.ResultWin, cubes: cubes(2)})
	insertTestMatch(t, db, testMatch{id: "M2", deckID: deckID, result: models.ResultLoss, cubes: cubes(-1)})
	insertTestEvent(t, db, "M2", models.KindDrawn, "A")

	perfs, err := NewCardPerformanceRepository(db).GetCardPerformance(context.Background(), models.Filter{})
	require.NoError(t, err)
	require.Len(t, perfs, 2)

	a := findCard(perfs, "A")
	assert.Equal(t, 2, a.TotalGamesInDeck, "duplicate cards count once per match")
	assert.Equal(t, a.TotalGamesInDeck, a.Drawn.Games+a.NotDrawn.Games)
	assert.Equal(t, a.TotalGamesInDeck, a.Played.Games+a.NotPlayed.Games)
	assert.Equal(t, 1, a.Drawn.Games)
	assert.Equal(t, 1, a.NotDrawn.Games)
	assert.Equal(t, 1, a.NotDrawn.Wins)
	assert.Equal(t, 2, a.NotPlayed.Games)
	assert.InDelta(t, -3.0, a.DeltaCubesDrawn, 1e-9)

	b := findCard(perfs, "B")
	assert.Equal(t, 2, b.NotDrawn.Games)
	assert.Zero(t, b.Drawn.Games)
	assert.Nil(t, b.Drawn.WinRate())
}

func TestCardPerformance_OpponentEventsIgnored(t *testing.T) {
	db := setupRepoTestDB(t)
	deckID := insertTestDeck(t, db, "Letters", []string{"A", "B"})
	insertTestMatch(t, db, testMatch{id: "M1", deckID: deckID, result: models.ResultWin, cubes: cubes(1)})
	insertTestEvent(t, db, "M1", models.KindDrawn, "B")
	_, err := NewEventRepository(db).InsertIgnore(context.Background(), []*models.MatchEvent{{
		MatchID: "M1", Turn: 2, Kind: models.KindPlayed, Actor: models.ActorOpponent, CardID: "A", LocationIndex: 0,
	}})
	require.NoError(t, err)

	perfs, err := NewCardPerformanceRepository(db).GetCardPerformance(context.Background(), models.Filter{})
	require.NoError(t, err)
	a := findCard(perfs, "A")
	assert.Equal(t, 0, a.Played.Games)
	assert.Equal(t, 1, a.NotDrawn.Games)
}

func TestDeltaCubes(t *testing.T) {
	tests := []struct {
		name    string
		with    models.PartitionStats
		without models.PartitionStats
		want    float64
	}{
		{"both", models.PartitionStats{Games: 2, Cubes: 4}, models.PartitionStats{Games: 1, Cubes: -1}, 3},
		{"with only", models.PartitionStats{Games: 2, Cubes: 4}, models.PartitionStats{}, 2},
		{"without only", models.PartitionStats{}, models.PartitionStats{Games: 2, Cubes: 4}, -2},
		{"neither", models.PartitionStats{}, models.PartitionStats{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeltaCubes(tt.with, tt.without))
		})
	}
}
