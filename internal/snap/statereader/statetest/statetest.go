// Package statetest builds game state documents for tests. The documents use
// the same "$id"/"$ref"/"$values" encoding the client writes.
package statetest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

const (
	localRef    = "p1"
	opponentRef = "p2"

	LocalAccount    = "acct-local"
	OpponentAccount = "acct-opp"
)

// Play is a staged card play of the local player.
type Play struct {
	Card     string
	Location int
	Energy   int
	Stage    string // defaults to PostTurn
	Turn     int    // 0 omits the field
}

// End describes the end-game block.
type End struct {
	BattleMode bool
	FinalTurn  int
	Locations  []string // defaults to the live location ids
	Cubes      *int
	IsLoser    bool
	DeckID     string
	DeckName   string
	Deck       []string
	Drawn      []string
	Played     []string
}

// Game describes one game-state document.
type Game struct {
	MatchID      string
	Turn         int
	TotalTurns   int
	CubeValue    int
	LocalName    string
	OpponentName string

	Hand      []string
	Graveyard []string
	Banished  []string
	Board     [3][]string
	// OpponentBoard cards are written with Revealed set.
	OpponentBoard [3][]string
	// UnownedBoard cards are revealed and carry no Owner.
	UnownedBoard [3][]string
	// DanglingOwnerBoard cards are revealed and reference a missing owner.
	DanglingOwnerBoard [3][]string
	Locations          [3]string

	Plays []Play
	Drawn []string

	LocalSnapTurn    int
	OpponentSnapTurn int
	Season           string
	Rank             string

	End *End

	// OmitMatchID drops GameState.Id and ClientGameInfo.GameId.
	OmitMatchID bool
	// OmitTurn drops GameState.Turn.
	OmitTurn bool

	nextID int
}

// Cubes returns a pointer for End.Cubes.
func Cubes(v int) *int { return &v }

func (g *Game) id() string {
	g.nextID++
	return strconv.Itoa(100 + g.nextID)
}

func (g *Game) card(def, owner string, revealed bool) map[string]any {
	c := map[string]any{
		"$id":       g.id(),
		"EntityId":  g.id(),
		"CardDefId": def,
		"Cost":      1,
		"Power":     1,
	}
	if owner != "" {
		c["Owner"] = map[string]any{"$ref": owner}
	}
	if revealed {
		c["Revealed"] = true
	}
	return c
}

func (g *Game) pile(defs []string, owner string) map[string]any {
	cards := make([]any, 0, len(defs))
	for _, d := range defs {
		cards = append(cards, g.card(d, owner, false))
	}
	return map[string]any{"Cards": map[string]any{"$values": cards}}
}

// Document returns the decoded-JSON shape of the game state.
func (g *Game) Document() map[string]any {
	if g.MatchID == "" {
		return map[string]any{"Version": 1}
	}
	g.nextID = 0

	local := map[string]any{
		"$id":       localRef,
		"EntityId":  "10",
		"AccountId": LocalAccount,
		"Name":      g.LocalName,
		"Energy":    g.Turn,
		"SnapTurn":  g.LocalSnapTurn,
		"Hand":      g.pile(g.Hand, localRef),
		"Deck":      g.pile(nil, localRef),
		"Graveyard": g.pile(g.Graveyard, localRef),
		"Banished":  g.pile(g.Banished, localRef),
	}
	opp := map[string]any{
		"$id":       opponentRef,
		"EntityId":  "20",
		"AccountId": OpponentAccount,
		"Name":      g.OpponentName,
		"Energy":    g.Turn,
		"SnapTurn":  g.OpponentSnapTurn,
		"Hand":      g.pile([]string{"hidden", "hidden"}, opponentRef),
	}

	locations := make([]any, 0, 3)
	for i := 0; i < 3; i++ {
		cards := make([]any, 0)
		for _, d := range g.Board[i] {
			cards = append(cards, g.card(d, localRef, true))
		}
		for _, d := range g.OpponentBoard[i] {
			cards = append(cards, g.card(d, opponentRef, true))
		}
		for _, d := range g.UnownedBoard[i] {
			cards = append(cards, g.card(d, "", true))
		}
		for _, d := range g.DanglingOwnerBoard[i] {
			cards = append(cards, g.card(d, "p-missing", true))
		}
		locations = append(locations, map[string]any{
			"$id":           g.id(),
			"EntityId":      "L" + strconv.Itoa(i),
			"SlotIndex":     i,
			"LocationDefId": g.Locations[i],
			"Cards":         map[string]any{"$values": cards},
			"Power":         []any{len(g.OpponentBoard[i]), len(g.Board[i])},
		})
	}

	requests := make([]any, 0, len(g.Plays))
	for _, p := range g.Plays {
		stage := p.Stage
		if stage == "" {
			stage = "PostTurn"
		}
		req := map[string]any{
			"Stage":              stage,
			"Card":               g.card(p.Card, localRef, false),
			"TargetZoneEntityId": "L" + strconv.Itoa(p.Location),
			"EnergySpent":        p.Energy,
		}
		if p.Turn > 0 {
			req["Turn"] = p.Turn
		}
		requests = append(requests, req)
	}

	state := map[string]any{
		"$id":        g.id(),
		"TotalTurns": g.TotalTurns,
		"CubeValue":  g.CubeValue,
		"Players":    map[string]any{"$values": []any{opp, local}},
		"Locations":  locations,
	}
	clientGame := map[string]any{"Season": g.Season}
	if !g.OmitMatchID {
		state["Id"] = g.MatchID
		clientGame["GameId"] = g.MatchID
	}
	if !g.OmitTurn {
		state["Turn"] = g.Turn
	}
	if g.End != nil {
		state["ClientResultMessage"] = g.endBlock()
	}

	return map[string]any{
		"RemoteGame": map[string]any{
			"GameState":      state,
			"ClientGameInfo": clientGame,
			"ClientPlayerInfo": map[string]any{
				"Player":        map[string]any{"$ref": localRef},
				"AccountId":     LocalAccount,
				"Rank":          g.Rank,
				"StageRequests": map[string]any{"$values": requests},
				"CardsDrawn":    map[string]any{"$values": anyList(g.Drawn)},
			},
		},
	}
}

func anyList(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func (g *Game) endBlock() map[string]any {
	e := g.End
	locs := e.Locations
	if locs == nil {
		locs = g.Locations[:]
	}

	deckCards := make([]any, 0, len(e.Deck))
	for _, d := range e.Deck {
		deckCards = append(deckCards, map[string]any{"CardDefId": d})
	}

	item := map[string]any{
		"AccountId": LocalAccount,
		"IsLoser":   e.IsLoser,
		"Deck": map[string]any{
			"Id":    e.DeckID,
			"Name":  e.DeckName,
			"Cards": map[string]any{"$values": deckCards},
		},
		"CardsDrawn":  anyList(e.Drawn),
		"CardsPlayed": anyList(e.Played),
	}
	if e.Cubes != nil {
		item["CubeValue"] = *e.Cubes
	}

	opp := map[string]any{"AccountId": OpponentAccount, "IsLoser": !e.IsLoser}
	if e.Cubes != nil {
		opp["CubeValue"] = -*e.Cubes
	}

	return map[string]any{
		"IsBattleMode":           e.BattleMode,
		"FinalTurn":              e.FinalTurn,
		"Locations":              anyList(locs),
		"GameResultAccountItems": []any{opp, item},
	}
}

// JSON encodes the document.
func (g *Game) JSON() []byte {
	return mustJSON(g.Document())
}

// Deck is a collection-file deck.
type Deck struct {
	ID    string
	Name  string
	Cards []string
}

// Collection encodes a collection document holding decks under
// ServerState.PlayerState.Decks.
func Collection(decks ...Deck) []byte {
	items := make([]any, 0, len(decks))
	for i, d := range decks {
		cards := make([]any, 0, len(d.Cards))
		for _, c := range d.Cards {
			cards = append(cards, map[string]any{"CardDefId": c})
		}
		items = append(items, map[string]any{
			"$id":   strconv.Itoa(i + 1),
			"Id":    d.ID,
			"Name":  d.Name,
			"Cards": map[string]any{"$values": cards},
		})
	}
	return mustJSON(map[string]any{
		"ServerState": map[string]any{
			"PlayerState": map[string]any{
				"Decks": map[string]any{"$values": items},
			},
		},
	})
}

// PlayState encodes a selected-deck document.
func PlayState(deckID string) []byte {
	return mustJSON(map[string]any{
		"SelectedDeckId": map[string]any{"Value": deckID},
	})
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		tb.Fatalf("write %s: %v", path, err)
	}
	return path
}

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
