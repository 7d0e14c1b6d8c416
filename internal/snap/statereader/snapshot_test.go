package statereader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/snap-companion/internal/snap/refgraph"
	"github.com/ramonehamilton/snap-companion/internal/snap/statereader/statetest"
)

func decode(t *testing.T, g *statetest.Game) *refgraph.Graph {
	t.Helper()
	graph, err := refgraph.Decode(g.JSON())
	require.NoError(t, err)
	return graph
}

func liveGame() *statetest.Game {
	return &statetest.Game{
		MatchID:       "M1",
		Turn:          4,
		TotalTurns:    6,
		CubeValue:     2,
		LocalName:     "me",
		OpponentName:  "Rival",
		Hand:          []string{"Hulk", "Iceman"},
		Graveyard:     []string{"Bucky"},
		Board:         [3][]string{{"Quicksilver"}, nil, {"Medusa"}},
		OpponentBoard: [3][]string{nil, {"Wolverine"}, nil},
		Locations:     [3]string{"Xandar", "Atlantis", "Asgard"},
		Plays:         []Play{},
		Drawn:         []string{"Hulk", "Iceman", "Quicksilver", "Medusa"},
		LocalSnapTurn: 3,
		Season:        "2026-03",
		Rank:          "Gold",
	}
}

// Play is an alias kept local to the tests for brevity.
type Play = statetest.Play

func TestExtractSnapshot_LiveMatch(t *testing.T) {
	game := liveGame()
	game.Plays = []Play{
		{Card: "Medusa", Location: 2, Energy: 2, Turn: 2},
		{Card: "Hulk", Location: 1, Energy: 6, Stage: "Staged"},
	}

	snap := ExtractSnapshot(decode(t, game))
	require.Empty(t, snap.Missing)
	assert.NoError(t, snap.Err())

	assert.True(t, snap.InMatch())
	assert.False(t, snap.Ended())
	assert.Equal(t, "M1", snap.MatchID)
	assert.Equal(t, Known(4), snap.Turn)
	assert.Equal(t, Known(6), snap.TotalTurns)
	assert.Equal(t, Known(2), snap.CubeValue)
	assert.Equal(t, "2026-03", snap.Season)
	assert.Equal(t, "Gold", snap.Rank)

	require.NotNil(t, snap.Local)
	require.NotNil(t, snap.Opponent)
	assert.Equal(t, "me", snap.Local.Name)
	assert.Equal(t, "Rival", snap.Opponent.Name)
	assert.Equal(t, Known(4), snap.Local.Energy)
	assert.Len(t, snap.Local.Hand, 2)
	assert.Equal(t, "Bucky", snap.Local.Graveyard[0].DefID)
	assert.Equal(t, Known(2), snap.OpponentHandCount())

	require.Len(t, snap.Locations, 3)
	assert.Equal(t, "Xandar", snap.Locations[0].DefID)
	assert.Equal(t, "Quicksilver", snap.Locations[0].SelfCards[0].DefID)
	assert.Empty(t, snap.Locations[1].SelfCards)
	assert.Equal(t, "Wolverine", snap.Locations[1].OpponentCards[0].DefID)
	assert.Equal(t, Known(1), snap.Locations[0].SelfPower)
	assert.Equal(t, Known(1), snap.Locations[1].OpponentPower)

	require.Len(t, snap.StageRequests, 2)
	assert.Equal(t, StageRequest{Stage: TerminalStage, CardDefID: "Medusa", TargetLocation: 2, Energy: 2, Turn: Known(2)}, snap.StageRequests[0])
	assert.Equal(t, "Staged", snap.StageRequests[1].Stage)
	assert.False(t, snap.StageRequests[1].Turn.OK)

	assert.Equal(t, []string{"Hulk", "Iceman", "Quicksilver", "Medusa"}, snap.CardsDrawn)
	assert.Equal(t, SnapSelf, snap.SnapState())
}

func TestExtractSnapshot_EndGame(t *testing.T) {
	game := liveGame()
	game.OpponentSnapTurn = 5
	game.End = &statetest.End{
		FinalTurn: 6,
		Cubes:     statetest.Cubes(4),
		DeckID:    "deck-1",
		DeckName:  "Surfer",
		Deck:      []string{"Hulk", "Iceman"},
		Drawn:     []string{"Hulk", "Iceman"},
		Played:    []string{"Hulk"},
	}

	snap := ExtractSnapshot(decode(t, game))
	require.Empty(t, snap.Missing)
	require.True(t, snap.Ended())

	end := snap.EndGame
	assert.False(t, end.IsBattleMode)
	assert.Equal(t, 6, end.FinalTurn)
	assert.Equal(t, []string{"Xandar", "Atlantis", "Asgard"}, end.Locations)
	assert.Equal(t, statetest.LocalAccount, end.AccountID, "the local account item is selected")
	require.NotNil(t, end.Cubes)
	assert.Equal(t, 4, *end.Cubes)
	assert.False(t, end.IsLoser)
	assert.Equal(t, "deck-1", end.DeckExternalID)
	assert.Equal(t, "Surfer", end.DeckName)
	assert.Equal(t, []string{"Hulk", "Iceman"}, end.DeckCards)
	assert.Equal(t, []string{"Hulk"}, end.CardsPlayed)
	assert.Equal(t, []string{"Wolverine"}, end.OpponentRevealed)
	assert.Equal(t, SnapBoth, snap.SnapState())
}

func TestExtractSnapshot_UnownedCardsBelongToNeitherSide(t *testing.T) {
	game := liveGame()
	game.UnownedBoard = [3][]string{{"Nightcrawler"}, nil, nil}
	game.DanglingOwnerBoard = [3][]string{nil, nil, {"Sentinel"}}
	game.End = &statetest.End{FinalTurn: 6, Cubes: statetest.Cubes(1), Deck: []string{"Hulk"}}

	snap := ExtractSnapshot(decode(t, game))
	require.Empty(t, snap.Missing)
	require.Len(t, snap.Locations, 3)

	assert.Equal(t, []string{"Quicksilver"}, cardDefs(snap.Locations[0].SelfCards))
	assert.Empty(t, snap.Locations[0].OpponentCards)
	assert.Equal(t, []string{"Wolverine"}, cardDefs(snap.Locations[1].OpponentCards))
	assert.Equal(t, []string{"Medusa"}, cardDefs(snap.Locations[2].SelfCards))
	assert.Empty(t, snap.Locations[2].OpponentCards)

	require.True(t, snap.Ended())
	assert.Equal(t, []string{"Wolverine"}, snap.EndGame.OpponentRevealed)
}

func cardDefs(cards []Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.DefID)
	}
	return out
}

func TestExtractSnapshot_EndGameWithoutCubes(t *testing.T) {
	game := liveGame()
	game.End = &statetest.End{FinalTurn: 6, IsLoser: true, BattleMode: true}

	snap := ExtractSnapshot(decode(t, game))
	require.True(t, snap.Ended())
	assert.Nil(t, snap.EndGame.Cubes)
	assert.True(t, snap.EndGame.IsLoser)
	assert.True(t, snap.EndGame.IsBattleMode)
}

func TestExtractSnapshot_BetweenMatches(t *testing.T) {
	snap := ExtractSnapshot(decode(t, &statetest.Game{}))
	assert.False(t, snap.InMatch())
	assert.Empty(t, snap.Missing)
	assert.Equal(t, SnapNone, snap.SnapState())
}

func TestExtractSnapshot_MissingPaths(t *testing.T) {
	game := liveGame()
	game.OmitTurn = true
	snap := ExtractSnapshot(decode(t, game))
	assert.Equal(t, []string{"RemoteGame.GameState.Turn"}, snap.Missing)
	assert.Equal(t, "?", snap.Turn.String())
	assert.Equal(t, "M1", snap.MatchID, "other fields are still extracted")

	game = liveGame()
	game.OmitMatchID = true
	snap = ExtractSnapshot(decode(t, game))
	assert.False(t, snap.InMatch())
	assert.Equal(t, []string{"RemoteGame.GameState.Id"}, snap.Missing)
	assert.Error(t, snap.Err())
}

func TestExtractSnapshot_UnresolvedLocalPlayer(t *testing.T) {
	graph, err := refgraph.Decode([]byte(`{"RemoteGame": {
		"GameState": {"Id": "M9", "Turn": 1, "TotalTurns": 6, "CubeValue": 1,
			"Players": [{"EntityId": "1"}, {"EntityId": "2"}], "Locations": []},
		"ClientPlayerInfo": {"Player": {"$ref": "404"}}
	}}`))
	require.NoError(t, err)

	snap := ExtractSnapshot(graph)
	assert.Contains(t, snap.Missing, "RemoteGame.ClientPlayerInfo.Player")
	assert.Nil(t, snap.Local)
}

func TestValue(t *testing.T) {
	assert.Equal(t, "?", Value[int]{}.String())
	assert.Equal(t, "7", Known(7).String())
	assert.Equal(t, 3, Value[int]{}.Or(3))
	assert.Equal(t, 7, Known(7).Or(3))
}
