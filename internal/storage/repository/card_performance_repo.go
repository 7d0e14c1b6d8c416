package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/ramonehamilton/snap-companion/internal/storage/models"
)

// CardPerformanceRepository computes per-card drawn/played partitions.
type CardPerformanceRepository interface {
	// GetCardPerformance returns one row per card that appeared in a deck
	// used by at least one match under the filter, ordered by games in deck.
	GetCardPerformance(ctx context.Context, filter models.Filter) ([]*models.CardPerformance, error)
}

type cardPerformanceRepository struct {
	db Querier
}

// NewCardPerformanceRepository creates a new card performance repository.
func NewCardPerformanceRepository(db Querier) CardPerformanceRepository {
	return &cardPerformanceRepository{db: db}
}

// matchDeck is one filtered match joined with its decklist.
type matchDeck struct {
	matchID string
	won     bool
	cubes   int
	cards   []string
}

// cardEvents records which cards were drawn or played in one match.
type cardEvents struct {
	drawn  map[string]bool
	played map[string]bool
}

func (r *cardPerformanceRepository) GetCardPerformance(ctx context.Context, filter models.Filter) ([]*models.CardPerformance, error) {
	// Deck membership is a JSON column, so the universe and the events are
	// fetched separately and joined here.
	universe, err := r.matchUniverse(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(universe) == 0 {
		return nil, nil
	}

	events, err := r.localEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	perfByCard := make(map[string]*models.CardPerformance)
	for _, md := range universe {
		// A match without observed events partitions every card as not drawn
		// and not played.
		evs := events[md.matchID]
		if evs == nil {
			evs = &cardEvents{}
		}

		seen := make(map[string]bool, len(md.cards))
		for _, card := range md.cards {
			if card == "" || seen[card] {
				continue
			}
			seen[card] = true

			perf, ok := perfByCard[card]
			if !ok {
				perf = &models.CardPerformance{CardID: card}
				perfByCard[card] = perf
			}
			perf.TotalGamesInDeck++

			played := evs.played[card]
			drawn := evs.drawn[card] || played

			if drawn {
				addPartition(&perf.Drawn, md)
			} else {
				addPartition(&perf.NotDrawn, md)
			}
			if played {
				addPartition(&perf.Played, md)
			} else {
				addPartition(&perf.NotPlayed, md)
			}
		}
	}

	results := make([]*models.CardPerformance, 0, len(perfByCard))
	for _, perf := range perfByCard {
		perf.DeltaCubesDrawn = DeltaCubes(perf.Drawn, perf.NotDrawn)
		perf.DeltaCubesPlayed = DeltaCubes(perf.Played, perf.NotPlayed)
		results = append(results, perf)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalGamesInDeck != results[j].TotalGamesInDeck {
			return results[i].TotalGamesInDeck > results[j].TotalGamesInDeck
		}
		return results[i].CardID < results[j].CardID
	})
	return results, nil
}

func addPartition(p *models.PartitionStats, md matchDeck) {
	p.Games++
	if md.won {
		p.Wins++
	}
	p.Cubes += md.cubes
}

// DeltaCubes is avg(with) - avg(without). With one side empty the other
// side's average is reported with its own sign: positive for the "with"
// side, negated for the "without" side. Both empty yields zero.
func DeltaCubes(with, without models.PartitionStats) float64 {
	a, b := with.AvgCubes(), without.AvgCubes()
	switch {
	case a != nil && b != nil:
		return *a - *b
	case a != nil:
		return *a
	case b != nil:
		return -*b
	default:
		return 0
	}
}

func (r *cardPerformanceRepository) matchUniverse(ctx context.Context, filter models.Filter) ([]matchDeck, error) {
	where, args := buildFilter(filter)
	query := `
		SELECT m.match_id, m.result, COALESCE(m.cubes, 0), d.card_list
		FROM matches m
		JOIN decks d ON d.id = m.deck_id
		` + where

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query match decks: %w", err)
	}
	defer closeRows(rows)

	var universe []matchDeck
	for rows.Next() {
		var md matchDeck
		var result string
		var cards sql.NullString
		if err := rows.Scan(&md.matchID, &result, &md.cubes, &cards); err != nil {
			return nil, fmt.Errorf("failed to scan match deck: %w", err)
		}
		decoded, err := decodeStrings(cards)
		if err != nil {
			// Skip the row rather than fail the whole report.
			continue
		}
		md.won = result == models.ResultWin
		md.cards = decoded
		universe = append(universe, md)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match decks: %w", err)
	}
	return universe, nil
}

func (r *cardPerformanceRepository) localEvents(ctx context.Context, filter models.Filter) (map[string]*cardEvents, error) {
	where, args := buildFilter(filter)
	query := `
		SELECT e.match_id, e.kind, e.card_id
		FROM match_events e
		JOIN matches m ON m.match_id = e.match_id
		JOIN decks d ON d.id = m.deck_id
		` + where + `
		AND e.actor = 'local'
		AND e.kind IN ('drawn', 'played')
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query card events: %w", err)
	}
	defer closeRows(rows)

	events := make(map[string]*cardEvents)
	for rows.Next() {
		var matchID, kind, card string
		if err := rows.Scan(&matchID, &kind, &card); err != nil {
			return nil, fmt.Errorf("failed to scan card event: %w", err)
		}
		evs, ok := events[matchID]
		if !ok {
			evs = &cardEvents{drawn: map[string]bool{}, played: map[string]bool{}}
			events[matchID] = evs
		}
		if kind == models.KindPlayed {
			evs.played[card] = true
		} else {
			evs.drawn[card] = true
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating card events: %w", err)
	}
	return events, nil
}
