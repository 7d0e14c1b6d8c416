package tracker

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ramonehamilton/snap-companion/internal/events"
	"github.com/ramonehamilton/snap-companion/internal/snap/deckid"
	"github.com/ramonehamilton/snap-companion/internal/snap/statereader"
	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// ClassifyResult derives the match result. The cube delta decides when
// present; otherwise the loser flag does. ambiguous reports a cube delta
// that disagrees with the flag.
func ClassifyResult(cubes *int, isLoser bool) (result string, ambiguous bool) {
	if cubes == nil {
		if isLoser {
			return models.ResultLoss, false
		}
		return models.ResultWin, false
	}
	switch {
	case *cubes > 0:
		return models.ResultWin, isLoser
	case *cubes < 0:
		return models.ResultLoss, !isLoser
	}
	return models.ResultTie, isLoser
}

// NormalizeLocations pads or truncates ids to exactly three slots.
func NormalizeLocations(ids []string) [3]string {
	var out [3]string
	copy(out[:], ids)
	return out
}

// commit records the ended match in snap. It returns false when the store
// already held the match id.
func (o *Observer) commit(ctx context.Context, snap *statereader.Snapshot) (bool, error) {
	end := snap.EndGame
	id := snap.MatchID

	cards := end.DeckCards
	if len(cards) == 0 {
		cards = o.initialDeck
	}
	if len(cards) == 0 {
		return false, fmt.Errorf("match %s: end-game block carries no deck", id)
	}
	deck := o.deckInput(ctx, end, cards)

	result, ambiguous := ClassifyResult(end.Cubes, end.IsLoser)
	if ambiguous {
		o.logger.Warn("cube delta disagrees with loser flag",
			zap.String("match_id", id),
			zap.Intp("cubes", end.Cubes),
			zap.Bool("is_loser", end.IsLoser),
			zap.String("result", result))
	}

	turns := end.FinalTurn
	if turns == 0 {
		turns = snap.Turn.Or(0)
	}
	locs := NormalizeLocations(end.Locations)

	match := &models.Match{
		MatchID:          id,
		TimestampEnded:   models.FormatTime(o.now()),
		LocalPlayer:      playerName(snap.Local, ""),
		Opponent:         playerName(snap.Opponent, models.OpponentPlaceholder),
		Result:           result,
		Cubes:            end.Cubes,
		Turns:            turns,
		Location1:        locs[0],
		Location2:        locs[1],
		Location3:        locs[2],
		FinalSnapState:   snap.SnapState(),
		OpponentRevealed: end.OpponentRevealed,
		Season:           snap.Season,
		Rank:             snap.Rank,
	}
	if snap.Local != nil {
		match.SnapTurnSelf = snap.Local.SnapTurn
	}
	if snap.Opponent != nil {
		match.SnapTurnOpponent = snap.Opponent.SnapTurn
	}

	var interim []*models.MatchEvent
	if buf, ok := o.buffers[id]; ok {
		interim = buf.events
	}
	evs := Reconcile(id, interim, end)

	recorded, err := o.store.RecordMatch(ctx, match, deck, evs)
	if err != nil {
		return false, err
	}

	o.buffers = make(map[string]*matchBuffer)
	if !recorded {
		o.logger.Debug("match already recorded", zap.String("match_id", id))
		return false, nil
	}
	o.lastCommitted = id

	o.publish(ctx, events.TypeMatchCommitted, events.MatchCommittedEvent{
		MatchID:  id,
		Result:   result,
		Cubes:    end.Cubes,
		DeckName: deck.Name,
		Opponent: match.Opponent,
		Events:   len(evs),
	})
	return true, nil
}

// deckInput prefers the collection's name and id for the end-game decklist.
// Decks the collection does not know are tagged auto-generated.
func (o *Observer) deckInput(ctx context.Context, end *statereader.EndGame, cards []string) models.DeckInput {
	coll, err := o.loadCollection(ctx)
	if err != nil {
		coll = o.collection.Cached()
	}
	if d, ok := coll.ByFingerprint(deckid.Fingerprint(cards)); ok {
		return models.DeckInput{Cards: cards, ExternalID: d.ExternalID, Name: d.Name}
	}
	return models.DeckInput{
		Cards:      cards,
		ExternalID: end.DeckExternalID,
		Name:       end.DeckName,
		Tags:       []string{models.TagAutoGenerated},
	}
}

func playerName(p *statereader.Player, fallback string) string {
	if p == nil || p.Name == "" {
		return fallback
	}
	return p.Name
}
