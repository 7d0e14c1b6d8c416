package tracker

import (
	"github.com/ramonehamilton/snap-companion/internal/snap/statereader"
	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// ReconciliationSource is the "source" detail of synthesized events.
const ReconciliationSource = "reconciliation"

// Reconcile merges interim events with the end-game block. Interim events
// keep their order; at most one local drawn event per card survives. Cards
// the end-game block reports as drawn or played without a matching interim
// event get a synthetic event at the final turn. Every played card is also
// given a drawn event.
func Reconcile(matchID string, interim []*models.MatchEvent, end *statereader.EndGame) []*models.MatchEvent {
	out := make([]*models.MatchEvent, 0, len(interim))
	drawn := make(map[string]bool)
	played := make(map[string]bool)
	var playedOrder []string

	for _, e := range interim {
		if e.Actor == models.ActorLocal {
			switch e.Kind {
			case models.KindDrawn:
				if drawn[e.CardID] {
					continue
				}
				drawn[e.CardID] = true
			case models.KindPlayed:
				if !played[e.CardID] {
					played[e.CardID] = true
					playedOrder = append(playedOrder, e.CardID)
				}
			}
		}
		e.MatchID = matchID
		out = append(out, e)
	}

	if end == nil {
		end = &statereader.EndGame{}
	}

	needDrawn := make([]string, 0, len(end.CardsDrawn)+len(end.CardsPlayed)+len(playedOrder))
	needDrawn = append(needDrawn, end.CardsDrawn...)
	needDrawn = append(needDrawn, end.CardsPlayed...)
	needDrawn = append(needDrawn, playedOrder...)
	for _, card := range needDrawn {
		if card == "" || drawn[card] {
			continue
		}
		drawn[card] = true
		out = append(out, synthetic(matchID, end.FinalTurn, models.KindDrawn, card))
	}

	for _, card := range end.CardsPlayed {
		if card == "" || played[card] {
			continue
		}
		played[card] = true
		out = append(out, synthetic(matchID, end.FinalTurn, models.KindPlayed, card))
	}
	return out
}

func synthetic(matchID string, turn int, kind, card string) *models.MatchEvent {
	e := &models.MatchEvent{
		MatchID:       matchID,
		Turn:          turn,
		Kind:          kind,
		Actor:         models.ActorLocal,
		CardID:        card,
		LocationIndex: models.NoLocation,
		Details:       map[string]any{"source": ReconciliationSource},
	}
	if kind == models.KindDrawn {
		e.SourceZone, e.TargetZone = models.ZoneDeck, models.ZoneHand
	} else {
		e.SourceZone, e.TargetZone = models.ZoneHand, models.ZoneLocation
	}
	return e
}
