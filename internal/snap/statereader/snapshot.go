package statereader

import (
	"fmt"
	"sort"

	"github.com/ramonehamilton/snap-companion/internal/snap/refgraph"
)

// NoLocation marks an event or request without a target location.
const NoLocation = -1

// TerminalStage is the stage value of a committed card play.
const TerminalStage = "PostTurn"

// Final snap states derived from the two snap turns.
const (
	SnapNone     = "none"
	SnapSelf     = "self"
	SnapOpponent = "opponent"
	SnapBoth     = "both"
)

// Value is an extracted field that may be missing from the file.
type Value[T any] struct {
	V  T
	OK bool
}

// Known wraps a present value.
func Known[T any](v T) Value[T] {
	return Value[T]{V: v, OK: true}
}

// Or returns the value or def when missing.
func (v Value[T]) Or(def T) T {
	if !v.OK {
		return def
	}
	return v.V
}

// String renders a missing value as "?".
func (v Value[T]) String() string {
	if !v.OK {
		return "?"
	}
	return fmt.Sprint(v.V)
}

// Card is one card instance on the board or in a pile.
type Card struct {
	EntityID string
	DefID    string
	OwnerID  string
	Revealed bool
	Power    int
	Cost     int
}

// Player is one side of the match.
type Player struct {
	EntityID  string
	AccountID string
	Name      string
	Energy    Value[int]
	SnapTurn  int
	Hand      []Card
	Deck      []Card
	Graveyard []Card
	Banished  []Card
}

// Location is one of the three board slots.
type Location struct {
	EntityID      string
	Slot          int
	DefID         string
	SelfPower     Value[int]
	OpponentPower Value[int]
	SelfCards     []Card
	OpponentCards []Card
}

// StageRequest is a card play staged by the local client.
type StageRequest struct {
	Stage          string
	CardDefID      string
	TargetLocation int
	Energy         int
	Turn           Value[int]
}

// EndGame is the authoritative result block written when a match ends.
type EndGame struct {
	IsBattleMode     bool
	FinalTurn        int
	Locations        []string
	AccountID        string
	Cubes            *int
	IsLoser          bool
	DeckExternalID   string
	DeckName         string
	DeckCards        []string
	CardsDrawn       []string
	CardsPlayed      []string
	OpponentRevealed []string
}

// Snapshot is the live match view extracted from one game-state read.
type Snapshot struct {
	MatchID       string
	Turn          Value[int]
	TotalTurns    Value[int]
	CubeValue     Value[int]
	Local         *Player
	Opponent      *Player
	Locations     []Location
	Season        string
	Rank          string
	StageRequests []StageRequest
	CardsDrawn    []string
	EndGame       *EndGame

	// Missing lists the required field paths that were absent.
	Missing []string
}

// InMatch reports whether the file describes a match.
func (s *Snapshot) InMatch() bool {
	return s.MatchID != ""
}

// Ended reports whether the end-game block is present.
func (s *Snapshot) Ended() bool {
	return s.EndGame != nil
}

// Err returns the shape errors for every missing path, or nil.
func (s *Snapshot) Err() error {
	return ShapeErrors(s.Missing)
}

// OpponentHandCount returns the number of cards in the opponent's hand.
func (s *Snapshot) OpponentHandCount() Value[int] {
	if s.Opponent == nil {
		return Value[int]{}
	}
	return Known(len(s.Opponent.Hand))
}

// SnapState classifies who snapped during the match.
func (s *Snapshot) SnapState() string {
	self := s.Local != nil && s.Local.SnapTurn > 0
	opp := s.Opponent != nil && s.Opponent.SnapTurn > 0
	switch {
	case self && opp:
		return SnapBoth
	case self:
		return SnapSelf
	case opp:
		return SnapOpponent
	}
	return SnapNone
}

// ExtractSnapshot pulls the live match view out of a decoded game-state
// document. It never fails: absent paths are recorded in Missing and the
// affected fields are left unknown.
func ExtractSnapshot(g *refgraph.Graph) *Snapshot {
	x := &extractor{g: g, snap: &Snapshot{}, localIndex: -1}
	x.run()
	return x.snap
}

type extractor struct {
	g          *refgraph.Graph
	snap       *Snapshot
	localIndex  int
	localID     string
	opponentIDs map[string]bool
	locSlots    map[string]int
}

func (x *extractor) miss(path string) {
	x.snap.Missing = append(x.snap.Missing, path)
}

func (x *extractor) intValue(v any, path, name string) Value[int] {
	n, ok := x.g.Int(v, path)
	if !ok {
		x.miss(name)
		return Value[int]{}
	}
	return Known(n)
}

func (x *extractor) run() {
	g := x.g
	remote, ok := g.Object(g.Root(), "RemoteGame")
	if !ok {
		return
	}
	state, ok := g.Object(remote, "GameState")
	if !ok {
		x.miss("RemoteGame.GameState")
		return
	}
	clientGame, _ := g.Object(remote, "ClientGameInfo")
	clientPlayer, _ := g.Object(remote, "ClientPlayerInfo")

	id, ok := g.String(state, "Id")
	if !ok || id == "" {
		id, ok = g.String(clientGame, "GameId")
	}
	if !ok || id == "" {
		x.miss("RemoteGame.GameState.Id")
		return
	}
	x.snap.MatchID = id

	x.snap.Turn = x.intValue(state, "Turn", "RemoteGame.GameState.Turn")
	x.snap.TotalTurns = x.intValue(state, "TotalTurns", "RemoteGame.GameState.TotalTurns")
	x.snap.CubeValue = x.intValue(state, "CubeValue", "RemoteGame.GameState.CubeValue")
	x.snap.Season, _ = g.String(clientGame, "Season")
	x.snap.Rank, _ = g.String(clientPlayer, "Rank")

	x.players(state, clientPlayer)
	x.locations(state)
	x.stageRequests(clientPlayer)
	if drawn, ok := g.List(clientPlayer, "CardsDrawn"); ok {
		x.snap.CardsDrawn = x.defIDs(drawn)
	}

	if result, ok := g.Object(state, "ClientResultMessage"); ok {
		x.endGame(result, clientPlayer)
	}
}

func (x *extractor) players(state, clientPlayer map[string]any) {
	g := x.g
	players, ok := g.List(state, "Players")
	if !ok {
		x.miss("RemoteGame.GameState.Players")
		return
	}

	localRef, _ := g.Object(clientPlayer, "Player")
	localEntity, _ := g.String(localRef, "EntityId")
	localAccount, ok := g.String(clientPlayer, "AccountId")
	if !ok {
		localAccount, _ = g.String(localRef, "AccountId")
	}

	for i, p := range players {
		entity, _ := g.String(p, "EntityId")
		account, _ := g.String(p, "AccountId")
		if (localEntity != "" && entity == localEntity) || (localEntity == "" && localAccount != "" && account == localAccount) {
			x.localIndex = i
			break
		}
	}
	if x.localIndex < 0 {
		x.miss("RemoteGame.ClientPlayerInfo.Player")
		return
	}

	x.snap.Local = x.player(players[x.localIndex])
	x.localID = x.snap.Local.EntityID
	x.opponentIDs = make(map[string]bool)
	for i, p := range players {
		if i == x.localIndex {
			continue
		}
		if x.snap.Opponent == nil {
			x.snap.Opponent = x.player(p)
		}
		if entity, ok := g.String(p, "EntityId"); ok && entity != "" && entity != x.localID {
			x.opponentIDs[entity] = true
		}
	}
}

func (x *extractor) player(v any) *Player {
	g := x.g
	p := &Player{}
	p.EntityID, _ = g.String(v, "EntityId")
	p.AccountID, _ = g.String(v, "AccountId")
	p.Name, _ = g.String(v, "Name")
	if energy, ok := g.Int(v, "Energy"); ok {
		p.Energy = Known(energy)
	}
	p.SnapTurn, _ = g.Int(v, "SnapTurn")
	p.Hand = x.pile(v, "Hand")
	p.Deck = x.pile(v, "Deck")
	p.Graveyard = x.pile(v, "Graveyard")
	p.Banished = x.pile(v, "Banished")
	return p
}

func (x *extractor) pile(player any, zone string) []Card {
	items, ok := x.g.List(player, zone, "Cards")
	if !ok {
		return nil
	}
	cards := make([]Card, 0, len(items))
	for _, item := range items {
		cards = append(cards, x.card(item))
	}
	return cards
}

func (x *extractor) card(v any) Card {
	g := x.g
	if s, ok := refgraph.AsString(v); ok {
		return Card{DefID: s}
	}
	c := Card{}
	c.EntityID, _ = g.String(v, "EntityId")
	c.DefID, _ = g.String(v, "CardDefId")
	c.Revealed, _ = g.Bool(v, "Revealed")
	c.Power, _ = g.Int(v, "Power")
	c.Cost, _ = g.Int(v, "Cost")
	if owner, ok := g.Get(v, "Owner"); ok {
		if id, ok := g.String(owner, "EntityId"); ok {
			c.OwnerID = id
		} else if id, ok := refgraph.AsString(owner); ok {
			c.OwnerID = id
		}
	}
	return c
}

func (x *extractor) locations(state map[string]any) {
	g := x.g
	items, ok := g.List(state, "Locations")
	if !ok {
		x.miss("RemoteGame.GameState.Locations")
		return
	}

	x.locSlots = make(map[string]int, len(items))
	for i, item := range items {
		loc := Location{Slot: i}
		loc.EntityID, _ = g.String(item, "EntityId")
		if slot, ok := g.Int(item, "SlotIndex"); ok {
			loc.Slot = slot
		}
		loc.DefID, _ = g.String(item, "LocationDefId")

		if cards, ok := g.List(item, "Cards"); ok {
			for _, raw := range cards {
				// Cards whose owner resolves to no player belong to neither side.
				c := x.card(raw)
				switch {
				case x.localID != "" && c.OwnerID == x.localID:
					loc.SelfCards = append(loc.SelfCards, c)
				case x.opponentIDs[c.OwnerID]:
					loc.OpponentCards = append(loc.OpponentCards, c)
				}
			}
		}

		if powers, ok := g.List(item, "Power"); ok && x.localIndex >= 0 {
			for i, raw := range powers {
				n, ok := refgraph.AsInt(raw)
				if !ok {
					continue
				}
				if i == x.localIndex {
					loc.SelfPower = Known(n)
				} else {
					loc.OpponentPower = Known(n)
				}
			}
		}

		if loc.EntityID != "" {
			x.locSlots[loc.EntityID] = loc.Slot
		}
		x.snap.Locations = append(x.snap.Locations, loc)
	}

	sort.SliceStable(x.snap.Locations, func(i, j int) bool {
		return x.snap.Locations[i].Slot < x.snap.Locations[j].Slot
	})
}

func (x *extractor) stageRequests(clientPlayer map[string]any) {
	g := x.g
	items, ok := g.List(clientPlayer, "StageRequests")
	if !ok {
		return
	}
	for _, item := range items {
		req := StageRequest{TargetLocation: NoLocation}
		req.Stage, _ = g.String(item, "Stage")
		if card, ok := g.Get(item, "Card"); ok {
			req.CardDefID = x.card(card).DefID
		}
		if zone, ok := g.String(item, "TargetZoneEntityId"); ok {
			if slot, found := x.locSlots[zone]; found {
				req.TargetLocation = slot
			}
		}
		req.Energy, _ = g.Int(item, "EnergySpent")
		if turn, ok := g.Int(item, "Turn"); ok {
			req.Turn = Known(turn)
		}
		x.snap.StageRequests = append(x.snap.StageRequests, req)
	}
}

func (x *extractor) defIDs(items []any) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if id := x.card(item).DefID; id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (x *extractor) endGame(result, clientPlayer map[string]any) {
	g := x.g
	end := &EndGame{}
	end.IsBattleMode, _ = g.Bool(result, "IsBattleMode")

	if turn, ok := g.Int(result, "FinalTurn"); ok {
		end.FinalTurn = turn
	} else {
		end.FinalTurn = x.snap.Turn.Or(0)
	}

	if locs, ok := g.List(result, "Locations"); ok {
		for _, raw := range locs {
			if s, ok := refgraph.AsString(raw); ok {
				end.Locations = append(end.Locations, s)
				continue
			}
			id, _ := g.String(raw, "LocationDefId")
			end.Locations = append(end.Locations, id)
		}
	} else {
		for _, loc := range x.snap.Locations {
			end.Locations = append(end.Locations, loc.DefID)
		}
	}

	localAccount, _ := g.String(clientPlayer, "AccountId")
	if localAccount == "" && x.snap.Local != nil {
		localAccount = x.snap.Local.AccountID
	}

	items, ok := g.List(result, "GameResultAccountItems")
	if !ok || len(items) == 0 {
		x.miss("RemoteGame.GameState.ClientResultMessage.GameResultAccountItems")
		x.snap.EndGame = end
		return
	}
	item := items[0]
	for _, candidate := range items {
		if account, ok := g.String(candidate, "AccountId"); ok && account == localAccount {
			item = candidate
			break
		}
	}

	end.AccountID, _ = g.String(item, "AccountId")
	if cubes, ok := g.Int(item, "CubeValue"); ok {
		end.Cubes = &cubes
	}
	end.IsLoser, _ = g.Bool(item, "IsLoser")
	if deck, ok := g.Object(item, "Deck"); ok {
		end.DeckExternalID, _ = g.String(deck, "Id")
		end.DeckName, _ = g.String(deck, "Name")
		if cards, ok := g.List(deck, "Cards"); ok {
			end.DeckCards = x.defIDs(cards)
		}
	}
	if drawn, ok := g.List(item, "CardsDrawn"); ok {
		end.CardsDrawn = x.defIDs(drawn)
	}
	if played, ok := g.List(item, "CardsPlayed"); ok {
		end.CardsPlayed = x.defIDs(played)
	}

	seen := make(map[string]bool)
	for _, loc := range x.snap.Locations {
		for _, c := range loc.OpponentCards {
			if c.Revealed && c.DefID != "" && !seen[c.DefID] {
				seen[c.DefID] = true
				end.OpponentRevealed = append(end.OpponentRevealed, c.DefID)
			}
		}
	}

	x.snap.EndGame = end
}
